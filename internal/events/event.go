// Package events defines the domain events exchanged between modules.
// Infrastructure (Bus, Handler) lives in platform/events.
package events

import (
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the in-process event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Intake Events
// =============================================================================

// LeadIngested is published after the intake pipeline created a staging lead.
type LeadIngested struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
	// Channel is "mailbox", "webhook" or "api".
	Channel string `json:"channel"`
}

func (e LeadIngested) EventName() string { return "intake.lead.ingested" }

// DuplicateDetected is published when an inbound candidate matched an existing lead.
type DuplicateDetected struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Email  string    `json:"email"`
	Source string    `json:"source"`
}

func (e DuplicateDetected) EventName() string { return "intake.lead.duplicate" }

// =============================================================================
// Lifecycle Events
// =============================================================================

// LeadAssigned is published after an assignment or reassignment committed.
type LeadAssigned struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	AgentID       uuid.UUID  `json:"agentId"`
	PreviousAgent *uuid.UUID `json:"previousAgent,omitempty"`
	AssignedBy    *uuid.UUID `json:"assignedBy,omitempty"`
	// Mode is "auto", "manual" or "reassign".
	Mode string `json:"mode"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStatusChanged is published after a status transition committed.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// FollowUpScheduled is published when the initial follow-up was created.
type FollowUpScheduled struct {
	BaseEvent
	FollowUpID uuid.UUID `json:"followUpId"`
	LeadID     uuid.UUID `json:"leadId"`
	AgentID    uuid.UUID `json:"agentId"`
	Date       string    `json:"date"`
}

func (e FollowUpScheduled) EventName() string { return "leads.followup.scheduled" }

// FollowUpDue is published by the worker when a pending follow-up's reminder fires.
type FollowUpDue struct {
	BaseEvent
	FollowUpID    uuid.UUID `json:"followUpId"`
	LeadID        uuid.UUID `json:"leadId"`
	AgentID       uuid.UUID `json:"agentId"`
	ScheduledDate string    `json:"scheduledDate"`
}

func (e FollowUpDue) EventName() string { return "leads.followup.due" }
