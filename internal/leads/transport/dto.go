// Package transport holds the leads API request and response shapes.
package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

type AssignLeadRequest struct {
	// AgentID selects manual assignment; omitted means round robin.
	AgentID   *uuid.UUID `json:"agentId"`
	Frequency string     `json:"followUpFrequency" validate:"omitempty,followup_frequency"`
	DayOfWeek *int       `json:"followUpDayOfWeek" validate:"omitempty,weekday"`
}

type ReassignLeadRequest struct {
	AgentID           uuid.UUID `json:"agentId" validate:"required"`
	CopyNotes         bool      `json:"copyNotes"`
	NoteLimit         int       `json:"noteLimit" validate:"omitempty,min=1,max=20"`
	TransferFollowUps bool      `json:"transferFollowUps"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=staging assigned contacted qualified converted lost"`
}

type UpdateTagRequest struct {
	Tag string `json:"tag" validate:"required,max=20"`
}

type SetCadenceRequest struct {
	Frequency string `json:"frequency" validate:"required,followup_frequency"`
	DayOfWeek *int   `json:"dayOfWeek" validate:"omitempty,weekday"`
}

type CreateNoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

type BulkRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

type BulkAssignRequest struct {
	IDs     []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
	AgentID *uuid.UUID  `json:"agentId"`
}

type DuplicateCheckRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

type DedupCommitRequest struct {
	Fingerprint string `json:"fingerprint" validate:"required,len=32,hexadecimal"`
}

type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	FullName           string     `json:"fullName"`
	Emails             []string   `json:"emails"`
	Phones             []string   `json:"phones"`
	Company            *string    `json:"company,omitempty"`
	JobTitle           *string    `json:"jobTitle,omitempty"`
	Source             string     `json:"source"`
	Status             string     `json:"status"`
	Tag                *string    `json:"tag,omitempty"`
	ClientType         string     `json:"clientType"`
	AssignedTo         *uuid.UUID `json:"assignedTo,omitempty"`
	AssignedBy         *uuid.UUID `json:"assignedBy,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty"`
	FollowUpFrequency  *string    `json:"followUpFrequency,omitempty"`
	FollowUpDayOfWeek  *int       `json:"followUpDayOfWeek,omitempty"`
	HasInitialFollowUp bool       `json:"hasInitialFollowUp"`
	Message            *string    `json:"message,omitempty"`
	PropertyAddress    *string    `json:"propertyAddress,omitempty"`
	PropertyDetails    *string    `json:"propertyDetails,omitempty"`
	ArchivedAt         *time.Time `json:"archivedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type AssignLeadResponse struct {
	Lead            LeadResponse      `json:"lead"`
	AgentID         uuid.UUID         `json:"agentId"`
	AgentName       string            `json:"agentName"`
	Mode            string            `json:"mode"`
	FollowUp        *FollowUpResponse `json:"followUp,omitempty"`
	FollowUpCreated bool              `json:"followUpCreated"`
	Warnings        []string          `json:"warnings,omitempty"`
}

type ReassignLeadResponse struct {
	Lead           LeadResponse `json:"lead"`
	AgentID        uuid.UUID    `json:"agentId"`
	AgentName      string       `json:"agentName"`
	NotesCopied    int          `json:"notesCopied"`
	FollowUpsMoved int          `json:"followUpsMoved"`
	Warnings       []string     `json:"warnings,omitempty"`
}

type ActivityResponse struct {
	ID          uuid.UUID      `json:"id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	ActorID     *uuid.UUID     `json:"actorId,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

type FollowUpResponse struct {
	ID            uuid.UUID `json:"id"`
	AgentID       uuid.UUID `json:"agentId"`
	ScheduledDate string    `json:"scheduledDate"`
	Status        string    `json:"status"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
}

type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type DuplicateCheckResponse struct {
	IsDuplicate bool       `json:"isDuplicate"`
	LeadID      *uuid.UUID `json:"leadId,omitempty"`
	// AssignedToYou is set for agents; admins always see the lead id.
	AssignedToYou *bool `json:"assignedToYou,omitempty"`
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:                 l.ID,
		FirstName:          l.FirstName,
		LastName:           l.LastName,
		FullName:           l.FullName(),
		Emails:             nonNil(l.Emails),
		Phones:             nonNil(l.Phones),
		Company:            l.Company,
		JobTitle:           l.JobTitle,
		Source:             l.Source,
		Status:             string(l.Status),
		ClientType:         string(l.ClientType),
		AssignedTo:         l.AssignedTo,
		AssignedBy:         l.AssignedBy,
		AssignedAt:         l.AssignedAt,
		FollowUpDayOfWeek:  l.FollowUpDayOfWeek,
		HasInitialFollowUp: l.HasInitialFollowUp,
		Message:            l.Message,
		PropertyAddress:    l.PropertyAddress,
		PropertyDetails:    l.PropertyDetails,
		ArchivedAt:         l.ArchivedAt,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
	if l.Tag != nil {
		t := string(*l.Tag)
		resp.Tag = &t
	}
	if l.FollowUpFrequency != nil {
		f := string(*l.FollowUpFrequency)
		resp.FollowUpFrequency = &f
	}
	return resp
}

func ToActivityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:          a.ID,
		Type:        string(a.Type),
		Description: a.Description,
		ActorID:     a.ActorID,
		Metadata:    a.Metadata,
		CreatedAt:   a.CreatedAt,
	}
}

func ToFollowUpResponse(f domain.FollowUp) FollowUpResponse {
	return FollowUpResponse{
		ID:            f.ID,
		AgentID:       f.AgentID,
		ScheduledDate: f.ScheduledDate.Format(time.DateOnly),
		Status:        string(f.Status),
		Type:          f.Type,
		CreatedAt:     f.CreatedAt,
	}
}

func ToNoteResponse(n domain.Note) NoteResponse {
	return NoteResponse{ID: n.ID, OwnerID: n.OwnerID, AuthorID: n.AuthorID, Body: n.Body, CreatedAt: n.CreatedAt}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
