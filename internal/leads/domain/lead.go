// Package domain holds the lead lifecycle's core types and rules. It has no
// dependencies on storage or transport.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a lead's position in the lifecycle.
type Status string

const (
	StatusStaging   Status = "staging"
	StatusAssigned  Status = "assigned"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusStaging, StatusAssigned, StatusContacted, StatusQualified, StatusConverted, StatusLost:
		return true
	}
	return false
}

// Tag is an agent-facing temperature label.
type Tag string

const (
	TagHot  Tag = "Hot"
	TagWarm Tag = "Warm"
	TagCold Tag = "Cold"
	TagDead Tag = "Dead"
)

// ParseTag accepts any casing of a known tag.
func ParseTag(raw string) (Tag, bool) {
	for _, t := range []Tag{TagHot, TagWarm, TagCold, TagDead} {
		if strings.EqualFold(strings.TrimSpace(raw), string(t)) {
			return t, true
		}
	}
	return "", false
}

// ClientType distinguishes prospects from converted clients.
type ClientType string

const (
	ClientTypeLead   ClientType = "lead"
	ClientTypeClient ClientType = "client"
)

// Frequency is a follow-up cadence.
type Frequency string

const (
	FrequencyTwiceWeek Frequency = "twice_week"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
)

// Valid reports whether f is a known cadence.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyTwiceWeek, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// ActivityType classifies audit trail entries.
type ActivityType string

const (
	ActivityCreated       ActivityType = "created"
	ActivityAssigned      ActivityType = "assigned"
	ActivityStatusChanged ActivityType = "status_changed"
	ActivityFollowUp      ActivityType = "follow_up"
	ActivityNoteAdded     ActivityType = "note_added"
	ActivityTaskAdded     ActivityType = "task_added"
)

// FollowUpStatus is the state of a scheduled follow-up.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpCompleted FollowUpStatus = "completed"
	FollowUpCancelled FollowUpStatus = "cancelled"
)

// FollowUpTypeInitial marks the single follow-up created on first assignment.
const FollowUpTypeInitial = "initial"

// Lead is a contact record moving through the lifecycle.
type Lead struct {
	ID                 uuid.UUID
	FirstName          string
	LastName           string
	Emails             []string
	Phones             []string
	Company            *string
	JobTitle           *string
	Source             string
	Status             Status
	Tag                *Tag
	ClientType         ClientType
	AssignedTo         *uuid.UUID
	AssignedBy         *uuid.UUID
	AssignedAt         *time.Time
	FollowUpFrequency  *Frequency
	FollowUpDayOfWeek  *int
	HasInitialFollowUp bool
	Message            *string
	PropertyAddress    *string
	PropertyDetails    *string
	ArchivedAt         *time.Time
	ArchivedBy         *uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// IsArchived reports whether the lead is hidden from active views.
func (l Lead) IsArchived() bool {
	return l.ArchivedAt != nil
}

// FirstEmail returns the first email or "".
func (l Lead) FirstEmail() string {
	if len(l.Emails) == 0 {
		return ""
	}
	return l.Emails[0]
}

// FirstPhone returns the first phone or "".
func (l Lead) FirstPhone() string {
	if len(l.Phones) == 0 {
		return ""
	}
	return l.Phones[0]
}

// IsAssignedTo reports whether agentID currently owns the lead.
func (l Lead) IsAssignedTo(agentID uuid.UUID) bool {
	return l.AssignedTo != nil && *l.AssignedTo == agentID
}

// Activity is one append-only audit entry.
type Activity struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	Type        ActivityType
	Description string
	ActorID     *uuid.UUID
	Metadata    map[string]any
	CreatedAt   time.Time
}

// FollowUp is a scheduled touchpoint owned by an agent.
type FollowUp struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	AgentID       uuid.UUID
	ScheduledDate time.Time
	Status        FollowUpStatus
	Type          string
	CreatedAt     time.Time
}

// Note is free text attached to a lead, visible to its owner.
type Note struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	OwnerID   uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

// Agent is a user who can receive leads.
type Agent struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Role               string
	IsActive           bool
	RoundRobinPriority int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
