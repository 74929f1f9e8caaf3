// Package notification e-mails agents in response to lead events.
// Domain modules publish events and never talk to the mail transport.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/email"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// AgentReader resolves the recipient of a notification.
type AgentReader interface {
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
}

// Module handles notification events.
type Module struct {
	leads  leads.Lookup
	agents AgentReader
	sender email.Sender
	log    *logger.Logger

	leadNotFound  error
	agentNotFound error
}

// Options names the not-found sentinels of the lookups so that events for
// deleted rows are dropped instead of retried.
type Options struct {
	LeadNotFound  error
	AgentNotFound error
}

func New(lookup leads.Lookup, agents AgentReader, sender email.Sender, opts Options, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Module{
		leads:         lookup,
		agents:        agents,
		sender:        sender,
		log:           log,
		leadNotFound:  opts.LeadNotFound,
		agentNotFound: opts.AgentNotFound,
	}
}

// RegisterHandlers subscribes to the lead events that notify an agent.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.FollowUpDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.FollowUpDue:
		return m.handleFollowUpDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	agent, notice, ok, err := m.resolve(ctx, e.LeadID, e.AgentID)
	if err != nil || !ok {
		return err
	}

	if err := m.sender.SendLeadAssignedEmail(ctx, agent.Email, notice.LeadNotice); err != nil {
		m.log.Error("failed to send lead assigned email", "error", err, "leadId", e.LeadID, "agentId", e.AgentID)
		return err
	}
	m.log.Info("lead assigned email sent", "leadId", e.LeadID, "agentId", e.AgentID, "mode", e.Mode)
	return nil
}

func (m *Module) handleFollowUpDue(ctx context.Context, e events.FollowUpDue) error {
	agent, notice, ok, err := m.resolve(ctx, e.LeadID, e.AgentID)
	if err != nil || !ok {
		return err
	}
	if notice.assignedTo != nil && *notice.assignedTo != agent.ID {
		m.log.Debug("follow-up owner no longer assigned, skipping reminder", "followUpId", e.FollowUpID, "leadId", e.LeadID)
		return nil
	}

	if err := m.sender.SendFollowUpDueEmail(ctx, agent.Email, e.ScheduledDate, notice.LeadNotice); err != nil {
		m.log.Error("failed to send follow-up email", "error", err, "followUpId", e.FollowUpID)
		return err
	}
	m.log.Info("follow-up email sent", "followUpId", e.FollowUpID, "agentId", e.AgentID)
	return nil
}

type leadNotice struct {
	email.LeadNotice
	assignedTo *uuid.UUID
}

// resolve loads the agent and lead. ok is false when the event should be
// dropped: a deleted lead or agent, or an agent without an address.
func (m *Module) resolve(ctx context.Context, leadID, agentID uuid.UUID) (domain.Agent, leadNotice, bool, error) {
	agent, err := m.agents.GetAgent(ctx, agentID)
	if m.isNotFound(err, m.agentNotFound) {
		m.log.Warn("notification agent not found", "agentId", agentID)
		return domain.Agent{}, leadNotice{}, false, nil
	}
	if err != nil {
		return domain.Agent{}, leadNotice{}, false, err
	}
	if agent.Email == "" {
		return domain.Agent{}, leadNotice{}, false, nil
	}

	lead, err := m.leads.Summary(ctx, leadID)
	if m.isNotFound(err, m.leadNotFound) {
		m.log.Warn("notification lead not found", "leadId", leadID)
		return domain.Agent{}, leadNotice{}, false, nil
	}
	if err != nil {
		return domain.Agent{}, leadNotice{}, false, err
	}

	n := leadNotice{
		LeadNotice: email.LeadNotice{
			AgentName: agent.Name,
			LeadName:  lead.FullName,
			Email:     lead.Email,
			Phone:     lead.Phone,
			Source:    lead.Source,
		},
		assignedTo: lead.AssignedTo,
	}
	if lead.Message != nil {
		n.Message = *lead.Message
	}
	return agent, n, true, nil
}

func (m *Module) isNotFound(err, sentinel error) bool {
	return err != nil && sentinel != nil && errors.Is(err, sentinel)
}
