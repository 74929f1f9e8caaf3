package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/email"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

var (
	errLeadGone  = errors.New("lead not found")
	errAgentGone = errors.New("agent not found")
)

type testLookup map[uuid.UUID]leads.Lead

func (l testLookup) Summary(_ context.Context, id uuid.UUID) (leads.Lead, error) {
	if lead, ok := l[id]; ok {
		return lead, nil
	}
	return leads.Lead{}, errLeadGone
}

type testAgents map[uuid.UUID]domain.Agent

func (a testAgents) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	if agent, ok := a[id]; ok {
		return agent, nil
	}
	return domain.Agent{}, errAgentGone
}

type sentEmail struct {
	kind string
	to   string
	date string
	lead email.LeadNotice
}

type testSender struct {
	sent []sentEmail
	err  error
}

func (s *testSender) SendLeadAssignedEmail(_ context.Context, to string, lead email.LeadNotice) error {
	s.sent = append(s.sent, sentEmail{kind: "assigned", to: to, lead: lead})
	return s.err
}

func (s *testSender) SendFollowUpDueEmail(_ context.Context, to, date string, lead email.LeadNotice) error {
	s.sent = append(s.sent, sentEmail{kind: "followup", to: to, date: date, lead: lead})
	return s.err
}

type fixture struct {
	module *Module
	sender *testSender
	leadID uuid.UUID
	agent  domain.Agent
}

func newFixture() fixture {
	agent := domain.Agent{ID: uuid.New(), Name: "Alice", Email: "alice@example.com", IsActive: true}
	leadID := uuid.New()
	msg := "Interested in 12 Oak St"
	lookup := testLookup{leadID: {
		ID:         leadID,
		FullName:   "John Smith",
		Email:      "john@test.com",
		Phone:      "+14158675309",
		Source:     "zillow",
		Message:    &msg,
		AssignedTo: &agent.ID,
	}}
	sender := &testSender{}
	m := New(lookup, testAgents{agent.ID: agent}, sender, Options{LeadNotFound: errLeadGone, AgentNotFound: errAgentGone}, logger.Discard())
	return fixture{module: m, sender: sender, leadID: leadID, agent: agent}
}

func TestLeadAssignedEmailsAgent(t *testing.T) {
	f := newFixture()
	err := f.module.Handle(context.Background(), events.LeadAssigned{LeadID: f.leadID, AgentID: f.agent.ID, Mode: "auto"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(f.sender.sent))
	}
	got := f.sender.sent[0]
	if got.kind != "assigned" || got.to != "alice@example.com" {
		t.Fatalf("unexpected email %+v", got)
	}
	if got.lead.LeadName != "John Smith" || got.lead.AgentName != "Alice" || got.lead.Message != "Interested in 12 Oak St" {
		t.Fatalf("unexpected notice %+v", got.lead)
	}
}

func TestFollowUpDueEmailsOwner(t *testing.T) {
	f := newFixture()
	err := f.module.Handle(context.Background(), events.FollowUpDue{FollowUpID: uuid.New(), LeadID: f.leadID, AgentID: f.agent.ID, ScheduledDate: "2024-06-04"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].kind != "followup" || f.sender.sent[0].date != "2024-06-04" {
		t.Fatalf("unexpected emails %+v", f.sender.sent)
	}
}

func TestFollowUpDueSkipsFormerOwner(t *testing.T) {
	f := newFixture()
	former := domain.Agent{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"}
	f.module.agents = testAgents{f.agent.ID: f.agent, former.ID: former}

	err := f.module.Handle(context.Background(), events.FollowUpDue{FollowUpID: uuid.New(), LeadID: f.leadID, AgentID: former.ID, ScheduledDate: "2024-06-04"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("reassigned lead should not remind former owner, sent %+v", f.sender.sent)
	}
}

func TestMissingRowsAreDropped(t *testing.T) {
	f := newFixture()
	cases := []events.Event{
		events.LeadAssigned{LeadID: uuid.New(), AgentID: f.agent.ID},
		events.LeadAssigned{LeadID: f.leadID, AgentID: uuid.New()},
	}
	for _, e := range cases {
		if err := f.module.Handle(context.Background(), e); err != nil {
			t.Fatalf("Handle(%+v): %v", e, err)
		}
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("sent %d emails, want 0", len(f.sender.sent))
	}
}

func TestAgentWithoutEmailIsSkipped(t *testing.T) {
	f := newFixture()
	f.agent.Email = ""
	f.module.agents = testAgents{f.agent.ID: f.agent}
	if err := f.module.Handle(context.Background(), events.LeadAssigned{LeadID: f.leadID, AgentID: f.agent.ID}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("expected no email")
	}
}

func TestSendFailureIsReturned(t *testing.T) {
	f := newFixture()
	f.sender.err = errors.New("smtp down")
	err := f.module.Handle(context.Background(), events.FollowUpDue{LeadID: f.leadID, AgentID: f.agent.ID, ScheduledDate: "2024-06-04"})
	if err == nil {
		t.Fatal("expected send error so the reminder task retries")
	}
}

func TestRegisterHandlersSubscribes(t *testing.T) {
	f := newFixture()
	bus := events.NewInMemoryBus(logger.Discard())
	f.module.RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.LeadAssigned{LeadID: f.leadID, AgentID: f.agent.ID}); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d emails via bus, want 1", len(f.sender.sent))
	}
}
