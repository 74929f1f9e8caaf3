package domain

import "time"

// statusTransitions lists the moves UpdateStatus may make. Assignment out of
// staging has its own operation and is not reachable from here.
var statusTransitions = map[Status]map[Status]bool{
	StatusAssigned: {
		StatusContacted: true, StatusQualified: true, StatusConverted: true, StatusLost: true,
	},
	StatusContacted: {
		StatusQualified: true, StatusConverted: true, StatusLost: true,
	},
	StatusQualified: {
		StatusContacted: true, StatusConverted: true, StatusLost: true,
	},
}

var terminalStatuses = map[Status]bool{
	StatusConverted: true,
	StatusLost:      true,
}

// IsTerminal reports whether no further status change is allowed.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// CanTransition reports whether UpdateStatus may move a lead from -> to.
func CanTransition(from, to Status) bool {
	return statusTransitions[from][to]
}

// ValidateStatusTransition returns a non-empty reason when from -> to is
// not allowed. Same-status requests are the caller's no-op, not an error.
func ValidateStatusTransition(from, to Status) string {
	switch {
	case !to.Valid():
		return "unknown status " + string(to)
	case from == StatusStaging:
		return "lead must be assigned before its status can change"
	case to == StatusStaging || to == StatusAssigned:
		return "status " + string(to) + " is set by assignment only"
	case IsTerminal(from):
		return "lead is already " + string(from)
	case !CanTransition(from, to):
		return "cannot move from " + string(from) + " to " + string(to)
	}
	return ""
}

// ClientTypeFor returns the client type a lead has after entering status.
// Conversion is one-way.
func ClientTypeFor(status Status, current ClientType) ClientType {
	if status == StatusConverted {
		return ClientTypeClient
	}
	if current == "" {
		return ClientTypeLead
	}
	return current
}

// InitialFollowUpDate is the start of the next UTC calendar day after now.
func InitialFollowUpDate(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
}

// ValidDayOfWeek reports whether d is 0 (Sunday) through 6.
func ValidDayOfWeek(d int) bool {
	return d >= 0 && d <= 6
}
