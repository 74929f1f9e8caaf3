package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListLeads(ctx context.Context, filter ListFilter) ([]domain.Lead, int, error)
	FindByEmail(ctx context.Context, email string) ([]domain.Lead, error)
	ListStaging(ctx context.Context) ([]domain.Lead, error)
}

// LeadWriter provides write operations that are not lifecycle transitions.
type LeadWriter interface {
	CreateLead(ctx context.Context, params CreateLeadParams) (domain.Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	DeleteStagingLead(ctx context.Context, id uuid.UUID) (bool, error)
	SetArchived(ctx context.Context, id uuid.UUID, archived bool, actorID *uuid.UUID) (domain.Lead, error)
}

// Transitioner commits a status-guarded change together with its activity.
type Transitioner interface {
	ApplyTransition(ctx context.Context, t Transition) (domain.Lead, error)
}

// ActivityLogger records the audit trail on leads.
type ActivityLogger interface {
	AddActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error)
	ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error)
}

// FollowUpStore persists scheduled follow-ups.
type FollowUpStore interface {
	ClaimInitialFollowUp(ctx context.Context, leadID uuid.UUID) (bool, error)
	CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (domain.FollowUp, error)
	ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUp, error)
	ReassignPendingFollowUps(ctx context.Context, leadID, fromAgent, toAgent uuid.UUID) (int, error)
	SetCadence(ctx context.Context, leadID uuid.UUID, frequency *domain.Frequency, dayOfWeek *int) (domain.Lead, error)
}

// NoteStore persists lead notes.
type NoteStore interface {
	CreateNote(ctx context.Context, params CreateNoteParams) (domain.Note, error)
	ListNotes(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, limit int) ([]domain.Note, error)
	CopyNotes(ctx context.Context, leadID, fromOwner, toOwner uuid.UUID, limit int) (int, error)
}

// LeadsRepository composes every lead store.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	Transitioner
	ActivityLogger
	FollowUpStore
	NoteStore
}

var _ LeadsRepository = (*Repository)(nil)
