package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/followup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/leadstest"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/lifecycle"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
)

const homeStackBody = "Name: John Smith\nEmail: john@test.com\nPhone: 555-123-4567\nMessage: Interested in 123 Main St\n"

func leadsAll() repository.ListFilter { return repository.ListFilter{} }

type fixedClassifier string

func (f fixedClassifier) Classify(string, string, string) string { return string(f) }

type recordingArchiver struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (r *recordingArchiver) Archive(_ context.Context, msg Message, _ string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return "key", r.err
}

type fixture struct {
	store    *leadstest.Store
	agents   *leadstest.Agents
	pipeline *Pipeline
	archive  *recordingArchiver
}

func newFixture(autoAssign bool, agents ...domain.Agent) *fixture {
	store := leadstest.NewStore()
	agentStore := leadstest.NewAgents(agents...)
	fu := followup.New(store, nil, nil, nil, nil)
	svc := lifecycle.New(store, distribution.New(agentStore, nil, nil), agentStore, fu, nil, nil, nil)
	archive := &recordingArchiver{}
	p := New(Deps{
		Classifier: fixedClassifier("HomeStack"),
		Leads:      store,
		Dedup:      dedup.New(store, nil, nil),
		Assigner:   svc,
		Archiver:   archive,
	}, Options{AutoAssign: autoAssign})
	return &fixture{store: store, agents: agentStore, pipeline: p, archive: archive}
}

func TestProcessMessageCreatesAndAssigns(t *testing.T) {
	agent := leadstest.Agent(1, 1, true)
	f := newFixture(true, agent)
	ctx := context.Background()

	body := "Name: John Smith\nEmail: john@test.com\nPhone: (415) 867-5309\nMessage: Interested in 123 Main St\n"
	res, err := f.pipeline.ProcessMessage(ctx, Message{From: "leads@homestack.com", Subject: "New Lead: John Smith", Body: body})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Outcome != OutcomeCreatedAssigned {
		t.Fatalf("outcome = %s (%s), want %s", res.Outcome, res.Reason, OutcomeCreatedAssigned)
	}
	if res.AgentID == nil || *res.AgentID != agent.ID {
		t.Fatalf("agent = %v, want %v", res.AgentID, agent.ID)
	}
	lead, err := f.store.GetLead(ctx, *res.LeadID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if lead.Source != "HomeStack" || lead.Status != domain.StatusAssigned {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if len(lead.Phones) != 1 || lead.Phones[0] != "+14158675309" {
		t.Fatalf("phones = %v, want E.164", lead.Phones)
	}
	followUps, _ := f.store.ListFollowUps(ctx, lead.ID)
	if len(followUps) != 1 {
		t.Fatalf("got %d follow-ups, want 1", len(followUps))
	}
	if len(f.archive.msgs) != 1 {
		t.Fatalf("archived %d messages, want 1", len(f.archive.msgs))
	}
}

func TestProcessMessageWithoutAgentsStaysInStaging(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	res, err := f.pipeline.ProcessMessage(ctx, Message{Subject: "New Lead: John Smith", Body: homeStackBody})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Outcome != OutcomeCreatedUnassigned || res.Reason != "no agent available" {
		t.Fatalf("got %s (%s)", res.Outcome, res.Reason)
	}
	lead, _ := f.store.GetLead(ctx, *res.LeadID)
	if lead.Status != domain.StatusStaging || lead.AssignedTo != nil {
		t.Fatalf("lead left staging: %+v", lead)
	}
}

func TestProcessMessageAutoAssignDisabled(t *testing.T) {
	f := newFixture(false, leadstest.Agent(1, 1, true))
	res, err := f.pipeline.ProcessMessage(context.Background(), Message{Subject: "New Lead: John Smith", Body: homeStackBody})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Outcome != OutcomeCreatedUnassigned || res.AgentID != nil {
		t.Fatalf("got %s agent %v", res.Outcome, res.AgentID)
	}
}

func TestDuplicateRecordsInquiryOnExistingLead(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()
	existing := f.store.Put(domain.Lead{FirstName: "John", LastName: "Smith", Emails: []string{"JOHN@test.com"}, Source: "Zillow"})

	res, err := f.pipeline.ProcessMessage(ctx, Message{Subject: "New Lead: John Smith", Body: homeStackBody})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Outcome != OutcomeDuplicate || res.LeadID == nil || *res.LeadID != existing.ID {
		t.Fatalf("got %s lead %v, want duplicate of %v", res.Outcome, res.LeadID, existing.ID)
	}
	leads, total, _ := f.store.ListLeads(ctx, leadsAll())
	if total != 1 || len(leads) != 1 {
		t.Fatalf("duplicate created a lead: total %d", total)
	}
	notes := f.store.Activities(existing.ID, domain.ActivityNoteAdded)
	if len(notes) != 1 || !strings.Contains(notes[0].Description, "HomeStack") {
		t.Fatalf("expected one inquiry activity, got %+v", notes)
	}
}

func TestDiscardsCandidateWithoutContact(t *testing.T) {
	f := newFixture(true, leadstest.Agent(1, 1, true))
	res, err := f.pipeline.ProcessCandidate(context.Background(), extractor.Candidate{FirstName: "Nobody"}, ChannelWebhook)
	if err != nil {
		t.Fatalf("ProcessCandidate: %v", err)
	}
	if res.Outcome != OutcomeDiscarded || res.Reason != "missing contact details" {
		t.Fatalf("got %s (%s)", res.Outcome, res.Reason)
	}
	if res.Source != ChannelWebhook {
		t.Fatalf("source = %q, want channel fallback", res.Source)
	}
}

func TestDiscardsMessageWithoutLeadData(t *testing.T) {
	f := newFixture(true)
	res, err := f.pipeline.ProcessMessage(context.Background(), Message{Subject: "Newsletter", Body: "Nothing here."})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if res.Outcome != OutcomeDiscarded {
		t.Fatalf("got %s", res.Outcome)
	}
}

func TestProcessCandidateTruncatesMessage(t *testing.T) {
	f := newFixture(false)
	long := strings.Repeat("é", extractor.MaxMessageLength+50)
	res, err := f.pipeline.ProcessCandidate(context.Background(), extractor.Candidate{
		FirstName: "Ana", Emails: []string{"ana@example.com"}, Message: long, Source: "Website",
	}, ChannelWebhook)
	if err != nil {
		t.Fatalf("ProcessCandidate: %v", err)
	}
	if got := []rune(res.Candidate.Message); len(got) != extractor.MaxMessageLength+3 {
		t.Fatalf("message length %d runes", len(got))
	}
}

func TestCreateFailureIsReturned(t *testing.T) {
	f := newFixture(false)
	f.store.Fail["CreateLead"] = true
	_, err := f.pipeline.ProcessCandidate(context.Background(), extractor.Candidate{
		FirstName: "Ana", Emails: []string{"ana@example.com"},
	}, ChannelAPI)
	if !errors.Is(err, leadstest.ErrInjected) {
		t.Fatalf("err = %v, want injected", err)
	}
}

func TestArchiveFailureDoesNotStopIntake(t *testing.T) {
	f := newFixture(false)
	f.archive.err = errors.New("bucket gone")
	res, err := f.pipeline.ProcessMessage(context.Background(), Message{Subject: "New Lead: John Smith", Body: homeStackBody})
	if err != nil || res.Outcome != OutcomeCreatedUnassigned {
		t.Fatalf("got %s, %v", res.Outcome, err)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	f := newFixture(true, leadstest.Agent(1, 1, true))
	res := f.pipeline.Preview(Message{Subject: "New Lead: John Smith", Body: "<p>Name: John Smith<br>Email: john@test.com</p>"})
	if res.Source != "HomeStack" || res.Candidate.FirstName != "John" {
		t.Fatalf("unexpected preview %+v", res)
	}
	_, total, _ := f.store.ListLeads(context.Background(), leadsAll())
	if total != 0 {
		t.Fatalf("preview persisted %d leads", total)
	}
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	if got := archiveKey(at, "Zillow", "<abc/123@mail.example.com>"); got != "2024/06/03/Zillow/abc_123_mail.example.com.json" {
		t.Fatalf("archiveKey = %q", got)
	}
}
