// Package lifecycle moves leads through assignment, status, tag, archive and
// reassignment, recording an activity for every committed change.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/followup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

const (
	ModeAuto     = "auto"
	ModeManual   = "manual"
	ModeReassign = "reassign"

	DefaultNoteCopyLimit = 5
	MaxNoteCopyLimit     = 20
)

const (
	msgLeadNotFound  = "lead not found"
	msgAgentNotFound = "agent not found"
	msgConcurrent    = "lead was changed by another request; reload and retry"
)

// Store is the lead persistence the service needs.
type Store interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ApplyTransition(ctx context.Context, t repository.Transition) (domain.Lead, error)
	SetArchived(ctx context.Context, id uuid.UUID, archived bool, actorID *uuid.UUID) (domain.Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
	CopyNotes(ctx context.Context, leadID, fromOwner, toOwner uuid.UUID, limit int) (int, error)
	ReassignPendingFollowUps(ctx context.Context, leadID, fromAgent, toAgent uuid.UUID) (int, error)
	CreateNote(ctx context.Context, params repository.CreateNoteParams) (domain.Note, error)
	ListNotes(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, limit int) ([]domain.Note, error)
}

// Distributor picks the next agent and advances the rotation after fn succeeds.
type Distributor interface {
	WithTurn(ctx context.Context, fn func(agent domain.Agent) error) (domain.Agent, bool, error)
}

// AgentReader loads agents for manual assignment.
type AgentReader interface {
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
}

// FollowUps creates initial follow-ups and stores cadence preferences.
type FollowUps interface {
	EnsureInitial(ctx context.Context, leadID, agentID uuid.UUID, assignedAt time.Time, actorID *uuid.UUID) (domain.FollowUp, bool, error)
	SetCadence(ctx context.Context, leadID uuid.UUID, frequency string, dayOfWeek *int, actorID *uuid.UUID) (domain.Lead, error)
}

// Actor is who asked for a change. The zero Actor with System set is the
// intake pipeline or a worker.
type Actor struct {
	ID     uuid.UUID
	Admin  bool
	System bool
}

// SystemActor acts with full rights and no user id.
func SystemActor() Actor {
	return Actor{System: true}
}

func (a Actor) idPtr() *uuid.UUID {
	if a.System || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}

func (a Actor) privileged() bool {
	return a.System || a.Admin
}

type Service struct {
	store     Store
	dist      Distributor
	agents    AgentReader
	followUps FollowUps
	bus       events.Bus
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// New builds a Service. bus and m may be nil.
func New(store Store, dist Distributor, agents AgentReader, followUps FollowUps, bus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:     store,
		dist:      dist,
		agents:    agents,
		followUps: followUps,
		bus:       bus,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, e)
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(msgLeadNotFound)
	case errors.Is(err, repository.ErrStaleState):
		return apperr.Conflict(msgConcurrent)
	}
	return err
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	return lead, translate(err)
}

func authorize(actor Actor, lead domain.Lead) error {
	if actor.privileged() || lead.IsAssignedTo(actor.ID) {
		return nil
	}
	return apperr.Forbidden("lead is not assigned to you")
}

// Get returns a lead the actor may see.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// =============================================================================
// Assignment
// =============================================================================

type AssignInput struct {
	LeadID uuid.UUID
	// AgentID selects manual mode; nil asks the distributor.
	AgentID   *uuid.UUID
	Actor     Actor
	Frequency string
	DayOfWeek *int
}

type AssignResult struct {
	Lead            domain.Lead
	Agent           domain.Agent
	Mode            string
	FollowUp        *domain.FollowUp
	FollowUpCreated bool
	// Warnings lists post-commit steps that failed without undoing the assignment.
	Warnings []string
}

// Assign moves a staging lead to assigned. When no agent is available the
// lead stays in staging and an Unprocessable error is returned.
func (s *Service) Assign(ctx context.Context, in AssignInput) (AssignResult, error) {
	if !in.Actor.privileged() {
		return AssignResult{}, apperr.Forbidden("only admins can assign staging leads")
	}

	var cadence *repository.Cadence
	if in.Frequency != "" || in.DayOfWeek != nil {
		freq, err := followup.ParseFrequency(in.Frequency)
		if err != nil {
			return AssignResult{}, err
		}
		if in.DayOfWeek != nil && !domain.ValidDayOfWeek(*in.DayOfWeek) {
			return AssignResult{}, apperr.Validation("day of week must be between 0 and 6")
		}
		cadence = &repository.Cadence{Frequency: freq, DayOfWeek: in.DayOfWeek}
	}

	lead, err := s.load(ctx, in.LeadID)
	if err != nil {
		return AssignResult{}, err
	}
	if lead.IsArchived() {
		return AssignResult{}, apperr.Validation("archived leads cannot be assigned")
	}
	if lead.Status != domain.StatusStaging {
		return AssignResult{}, apperr.Conflict("lead is already assigned")
	}

	apply := func(agent domain.Agent) (domain.Lead, error) {
		t := repository.Transition{
			LeadID:         lead.ID,
			ExpectedStatus: domain.StatusStaging,
			Status:         domain.StatusAssigned,
			Assignment: &repository.Assignment{
				AgentID:    agent.ID,
				AssignedBy: in.Actor.idPtr(),
				At:         s.now().UTC(),
			},
			Cadence:       cadence,
			RequireActive: true,
			Activity: domain.Activity{
				Type:        domain.ActivityAssigned,
				Description: fmt.Sprintf("Assigned to %s", agentLabel(agent)),
				ActorID:     in.Actor.idPtr(),
				Metadata:    map[string]any{"agentId": agent.ID.String()},
			},
		}
		if lead.Tag == nil {
			warm := domain.TagWarm
			t.Tag = &warm
		}
		return s.store.ApplyTransition(ctx, t)
	}

	var (
		agent   domain.Agent
		updated domain.Lead
		mode    string
	)
	if in.AgentID != nil {
		mode = ModeManual
		agent, err = s.agents.GetAgent(ctx, *in.AgentID)
		if errors.Is(err, distribution.ErrAgentNotFound) {
			return AssignResult{}, apperr.NotFound(msgAgentNotFound)
		}
		if err != nil {
			return AssignResult{}, err
		}
		if !agent.IsActive {
			return AssignResult{}, apperr.Validation("agent is not active")
		}
		updated, err = apply(agent)
		if err != nil {
			s.recordAssignment(lead.ID, agent.ID, mode, false)
			return AssignResult{}, translate(err)
		}
	} else {
		mode = ModeAuto
		var ok bool
		agent, ok, err = s.dist.WithTurn(ctx, func(a domain.Agent) error {
			var applyErr error
			updated, applyErr = apply(a)
			return applyErr
		})
		if err != nil {
			s.recordAssignment(lead.ID, agent.ID, mode, false)
			return AssignResult{}, translate(err)
		}
		if !ok {
			s.recordAssignment(lead.ID, uuid.Nil, mode, false)
			return AssignResult{}, apperr.Unprocessable("no agent available").WithDetails(map[string]string{"leadId": lead.ID.String()})
		}
	}
	s.recordAssignment(lead.ID, agent.ID, mode, true)

	result := AssignResult{Lead: updated, Agent: agent, Mode: mode}
	s.ensureFollowUp(ctx, &result, in.Actor)

	s.publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     updated.ID,
		AgentID:    agent.ID,
		AssignedBy: in.Actor.idPtr(),
		Mode:       mode,
	})
	return result, nil
}

func (s *Service) ensureFollowUp(ctx context.Context, result *AssignResult, actor Actor) {
	assignedAt := s.now()
	if result.Lead.AssignedAt != nil {
		assignedAt = *result.Lead.AssignedAt
	}
	f, created, err := s.followUps.EnsureInitial(ctx, result.Lead.ID, result.Agent.ID, assignedAt, actor.idPtr())
	if err != nil {
		s.log.WithContext(ctx).Error("initial follow-up failed", "leadId", result.Lead.ID, "error", err)
		result.Warnings = append(result.Warnings, "initial follow-up could not be scheduled")
		return
	}
	result.Lead.HasInitialFollowUp = true
	result.FollowUpCreated = created
	if created {
		result.FollowUp = &f
	}
}

func (s *Service) recordAssignment(leadID, agentID uuid.UUID, mode string, ok bool) {
	s.metrics.Assigned(mode, ok)
	agent := ""
	if agentID != uuid.Nil {
		agent = agentID.String()
	}
	s.log.Assignment(leadID.String(), agent, mode, ok)
}

func agentLabel(a domain.Agent) string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID.String()
}

// =============================================================================
// Status and tag
// =============================================================================

// UpdateStatus applies a lifecycle transition. Requesting the current status
// is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, leadID uuid.UUID, status string, actor Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Lead{}, err
	}

	to := domain.Status(status)
	if lead.Status == to {
		return lead, nil
	}
	if reason := domain.ValidateStatusTransition(lead.Status, to); reason != "" {
		return domain.Lead{}, apperr.Validation(reason)
	}

	clientType := domain.ClientTypeFor(to, lead.ClientType)
	updated, err := s.store.ApplyTransition(ctx, repository.Transition{
		LeadID:         lead.ID,
		ExpectedStatus: lead.Status,
		Status:         to,
		ClientType:     &clientType,
		Activity: domain.Activity{
			Type:        domain.ActivityStatusChanged,
			Description: fmt.Sprintf("Status changed from %s to %s", lead.Status, to),
			ActorID:     actor.idPtr(),
			Metadata:    map[string]any{"from": string(lead.Status), "to": string(to)},
		},
	})
	if err != nil {
		return domain.Lead{}, translate(err)
	}

	s.log.WithContext(ctx).Info("lead status changed", "leadId", lead.ID, "from", lead.Status, "to", to)
	s.publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		OldStatus: string(lead.Status),
		NewStatus: string(to),
		ActorID:   actor.idPtr(),
	})
	return updated, nil
}

// UpdateTag sets the temperature tag and records it as a status change.
func (s *Service) UpdateTag(ctx context.Context, leadID uuid.UUID, rawTag string, actor Actor) (domain.Lead, error) {
	tag, ok := domain.ParseTag(rawTag)
	if !ok {
		return domain.Lead{}, apperr.Validation("tag must be one of Hot, Warm, Cold, Dead")
	}

	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Lead{}, err
	}
	if lead.Tag != nil && *lead.Tag == tag {
		return lead, nil
	}

	description := "Tag set to " + string(tag)
	meta := map[string]any{"tag": string(tag)}
	if lead.Tag != nil {
		description = fmt.Sprintf("Tag changed from %s to %s", *lead.Tag, tag)
		meta["previousTag"] = string(*lead.Tag)
	}

	updated, err := s.store.ApplyTransition(ctx, repository.Transition{
		LeadID:         lead.ID,
		ExpectedStatus: lead.Status,
		Status:         lead.Status,
		Tag:            &tag,
		Activity: domain.Activity{
			Type:        domain.ActivityStatusChanged,
			Description: description,
			ActorID:     actor.idPtr(),
			Metadata:    meta,
		},
	})
	return updated, translate(err)
}

// SetCadence stores follow-up preferences for a lead the actor may edit.
func (s *Service) SetCadence(ctx context.Context, leadID uuid.UUID, frequency string, dayOfWeek *int, actor Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Lead{}, err
	}
	return s.followUps.SetCadence(ctx, leadID, frequency, dayOfWeek, actor.idPtr())
}

// =============================================================================
// Reassignment
// =============================================================================

type ReassignInput struct {
	LeadID            uuid.UUID
	AgentID           uuid.UUID
	Actor             Actor
	CopyNotes         bool
	NoteLimit         int
	TransferFollowUps bool
}

type ReassignResult struct {
	Lead           domain.Lead
	Agent          domain.Agent
	NotesCopied    int
	FollowUpsMoved int
	Warnings       []string
}

// Reassign hands an assigned lead to another agent, optionally carrying its
// recent notes and pending follow-ups along.
func (s *Service) Reassign(ctx context.Context, in ReassignInput) (ReassignResult, error) {
	if !in.Actor.privileged() {
		return ReassignResult{}, apperr.Forbidden("only admins can reassign leads")
	}
	limit := in.NoteLimit
	if limit == 0 {
		limit = DefaultNoteCopyLimit
	}
	if limit < 0 || limit > MaxNoteCopyLimit {
		return ReassignResult{}, apperr.Validation(fmt.Sprintf("note limit must be between 1 and %d", MaxNoteCopyLimit))
	}

	lead, err := s.load(ctx, in.LeadID)
	if err != nil {
		return ReassignResult{}, err
	}
	if lead.IsArchived() {
		return ReassignResult{}, apperr.Validation("archived leads cannot be reassigned")
	}
	if lead.Status == domain.StatusStaging || lead.AssignedTo == nil {
		return ReassignResult{}, apperr.Validation("lead is not assigned yet")
	}
	if *lead.AssignedTo == in.AgentID {
		return ReassignResult{}, apperr.Validation("lead is already assigned to this agent")
	}

	agent, err := s.agents.GetAgent(ctx, in.AgentID)
	if errors.Is(err, distribution.ErrAgentNotFound) {
		return ReassignResult{}, apperr.NotFound(msgAgentNotFound)
	}
	if err != nil {
		return ReassignResult{}, err
	}
	if !agent.IsActive {
		return ReassignResult{}, apperr.Validation("agent is not active")
	}

	previous := *lead.AssignedTo
	updated, err := s.store.ApplyTransition(ctx, repository.Transition{
		LeadID:         lead.ID,
		ExpectedStatus: lead.Status,
		Status:         lead.Status,
		Assignment: &repository.Assignment{
			AgentID:    agent.ID,
			AssignedBy: in.Actor.idPtr(),
			At:         s.now().UTC(),
		},
		RequireActive: true,
		Activity: domain.Activity{
			Type:        domain.ActivityAssigned,
			Description: fmt.Sprintf("Reassigned to %s", agentLabel(agent)),
			ActorID:     in.Actor.idPtr(),
			Metadata: map[string]any{
				"agentId":         agent.ID.String(),
				"previousAgentId": previous.String(),
			},
		},
	})
	if err != nil {
		return ReassignResult{}, translate(err)
	}
	s.recordAssignment(lead.ID, agent.ID, ModeReassign, true)

	result := ReassignResult{Lead: updated, Agent: agent}
	if in.CopyNotes {
		n, err := s.store.CopyNotes(ctx, lead.ID, previous, agent.ID, limit)
		if err != nil {
			s.log.WithContext(ctx).Error("copy notes on reassign failed", "leadId", lead.ID, "error", err)
			result.Warnings = append(result.Warnings, "notes could not be copied")
		}
		result.NotesCopied = n
	}
	if in.TransferFollowUps {
		n, err := s.store.ReassignPendingFollowUps(ctx, lead.ID, previous, agent.ID)
		if err != nil {
			s.log.WithContext(ctx).Error("follow-up handover failed", "leadId", lead.ID, "error", err)
			result.Warnings = append(result.Warnings, "pending follow-ups could not be transferred")
		}
		result.FollowUpsMoved = n
	}
	if !updated.HasInitialFollowUp {
		assign := AssignResult{Lead: updated, Agent: agent}
		s.ensureFollowUp(ctx, &assign, in.Actor)
		result.Lead = assign.Lead
		result.Warnings = append(result.Warnings, assign.Warnings...)
	}

	s.publish(ctx, events.LeadAssigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		AgentID:       agent.ID,
		PreviousAgent: &previous,
		AssignedBy:    in.Actor.idPtr(),
		Mode:          ModeReassign,
	})
	return result, nil
}

// =============================================================================
// Visibility, removal and notes
// =============================================================================

// Archive hides a lead from active views. Archiving twice is a no-op.
func (s *Service) Archive(ctx context.Context, leadID uuid.UUID, actor Actor) (domain.Lead, error) {
	return s.setArchived(ctx, leadID, true, actor)
}

// Restore returns an archived lead to active views with its prior status.
func (s *Service) Restore(ctx context.Context, leadID uuid.UUID, actor Actor) (domain.Lead, error) {
	return s.setArchived(ctx, leadID, false, actor)
}

func (s *Service) setArchived(ctx context.Context, leadID uuid.UUID, archived bool, actor Actor) (domain.Lead, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Lead{}, err
	}
	if lead.IsArchived() == archived {
		return lead, nil
	}
	updated, err := s.store.SetArchived(ctx, leadID, archived, actor.idPtr())
	return updated, translate(err)
}

// Delete removes a lead permanently.
func (s *Service) Delete(ctx context.Context, leadID uuid.UUID, actor Actor) error {
	if !actor.privileged() {
		return apperr.Forbidden("only admins can delete leads")
	}
	return translate(s.store.DeleteLead(ctx, leadID))
}

// AddNote attaches a note owned by the lead's current agent, or by the
// author when the lead is unassigned.
func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, body string, actor Actor) (domain.Note, error) {
	if actor.idPtr() == nil {
		return domain.Note{}, apperr.Validation("notes need an author")
	}
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return domain.Note{}, err
	}
	if err := authorize(actor, lead); err != nil {
		return domain.Note{}, err
	}
	owner := actor.ID
	if lead.AssignedTo != nil {
		owner = *lead.AssignedTo
	}
	note, err := s.store.CreateNote(ctx, repository.CreateNoteParams{
		LeadID:   leadID,
		OwnerID:  owner,
		AuthorID: actor.ID,
		Body:     body,
	})
	return note, translate(err)
}

// ListNotes returns the notes visible to actor, newest first.
func (s *Service) ListNotes(ctx context.Context, leadID uuid.UUID, actor Actor, limit int) ([]domain.Note, error) {
	lead, err := s.load(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, lead); err != nil {
		return nil, err
	}
	var owner *uuid.UUID
	if !actor.privileged() {
		owner = actor.idPtr()
	}
	return s.store.ListNotes(ctx, leadID, owner, limit)
}
