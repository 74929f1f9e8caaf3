package followup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/leadstest"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
)

type recordedReminder struct {
	followUpID uuid.UUID
	runAt      time.Time
}

type fakeReminders struct {
	mu    sync.Mutex
	calls []recordedReminder
}

func (f *fakeReminders) ScheduleFollowUpReminder(_ context.Context, followUpID, _, _ uuid.UUID, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedReminder{followUpID: followUpID, runAt: runAt})
	return nil
}

func newScheduler(store *leadstest.Store, reminders ReminderScheduler) *Scheduler {
	s := New(store, reminders, nil, nil, nil)
	s.now = func() time.Time { return time.Date(2024, 5, 10, 22, 30, 0, 0, time.UTC) }
	return s
}

func TestEnsureInitialCreatesOneNextDayFollowUp(t *testing.T) {
	store := leadstest.NewStore()
	reminders := &fakeReminders{}
	s := newScheduler(store, reminders)
	lead := store.Put(domain.Lead{FirstName: "Ana", Emails: []string{"ana@example.com"}, Status: domain.StatusAssigned})
	agentID := uuid.New()

	f, created, err := s.EnsureInitial(context.Background(), lead.ID, agentID, time.Time{}, nil)
	if err != nil {
		t.Fatalf("EnsureInitial: %v", err)
	}
	if !created {
		t.Fatal("expected follow-up to be created")
	}
	want := time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC)
	if !f.ScheduledDate.Equal(want) {
		t.Fatalf("scheduled %v, want %v", f.ScheduledDate, want)
	}
	if f.Type != domain.FollowUpTypeInitial || f.Status != domain.FollowUpPending || f.AgentID != agentID {
		t.Fatalf("unexpected follow-up %+v", f)
	}

	_, again, err := s.EnsureInitial(context.Background(), lead.ID, agentID, time.Time{}, nil)
	if err != nil || again {
		t.Fatalf("second call created=%v err=%v, want no-op", again, err)
	}

	all, _ := store.ListFollowUps(context.Background(), lead.ID)
	if len(all) != 1 {
		t.Fatalf("got %d follow-ups, want 1", len(all))
	}
	if got := store.Activities(lead.ID, domain.ActivityFollowUp); len(got) != 1 {
		t.Fatalf("got %d follow_up activities, want 1", len(got))
	}
	if len(reminders.calls) != 1 || !reminders.calls[0].runAt.Equal(want) {
		t.Fatalf("unexpected reminders %+v", reminders.calls)
	}
	stored, _ := store.GetLead(context.Background(), lead.ID)
	if !stored.HasInitialFollowUp {
		t.Fatal("expected has_initial_followup to be set")
	}
}

func TestEnsureInitialDatesFromAssignment(t *testing.T) {
	store := leadstest.NewStore()
	s := newScheduler(store, nil)
	lead := store.Put(domain.Lead{FirstName: "Eve", Emails: []string{"eve@example.com"}, Status: domain.StatusAssigned})

	assignedAt := time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)
	f, created, err := s.EnsureInitial(context.Background(), lead.ID, uuid.New(), assignedAt, nil)
	if err != nil || !created {
		t.Fatalf("EnsureInitial created=%v err=%v", created, err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !f.ScheduledDate.Equal(want) {
		t.Fatalf("scheduled %v, want %v", f.ScheduledDate, want)
	}
}

func TestEnsureInitialConcurrentCallsCreateOne(t *testing.T) {
	store := leadstest.NewStore()
	s := newScheduler(store, nil)
	lead := store.Put(domain.Lead{FirstName: "Ben", Phones: []string{"+15550100"}, Status: domain.StatusAssigned})

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.EnsureInitial(context.Background(), lead.ID, uuid.New(), time.Time{}, nil)
			if err != nil {
				t.Errorf("EnsureInitial: %v", err)
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("created %d follow-ups, want 1", created)
	}
}

func TestEnsureInitialReleasesClaimOnFailure(t *testing.T) {
	store := leadstest.NewStore()
	s := newScheduler(store, nil)
	lead := store.Put(domain.Lead{FirstName: "Cy", Emails: []string{"cy@example.com"}, Status: domain.StatusAssigned})

	store.Fail["CreateFollowUp"] = true
	if _, _, err := s.EnsureInitial(context.Background(), lead.ID, uuid.New(), time.Time{}, nil); err == nil {
		t.Fatal("expected error")
	}
	stored, _ := store.GetLead(context.Background(), lead.ID)
	if stored.HasInitialFollowUp {
		t.Fatal("claim should be released after a failed insert")
	}

	delete(store.Fail, "CreateFollowUp")
	if _, created, err := s.EnsureInitial(context.Background(), lead.ID, uuid.New(), time.Time{}, nil); err != nil || !created {
		t.Fatalf("retry created=%v err=%v", created, err)
	}
}

func TestSetCadence(t *testing.T) {
	store := leadstest.NewStore()
	s := newScheduler(store, nil)
	lead := store.Put(domain.Lead{FirstName: "Di", Emails: []string{"di@example.com"}, Status: domain.StatusAssigned})
	monday := 1

	got, err := s.SetCadence(context.Background(), lead.ID, "weekly", &monday, nil)
	if err != nil {
		t.Fatalf("SetCadence: %v", err)
	}
	if got.FollowUpFrequency == nil || *got.FollowUpFrequency != domain.FrequencyWeekly {
		t.Fatalf("frequency = %v", got.FollowUpFrequency)
	}
	if got.FollowUpDayOfWeek == nil || *got.FollowUpDayOfWeek != 1 {
		t.Fatalf("day = %v", got.FollowUpDayOfWeek)
	}
	acts := store.Activities(lead.ID, domain.ActivityFollowUp)
	if len(acts) != 1 || acts[0].Description != "Follow-up cadence set to weekly on Monday" {
		t.Fatalf("unexpected activities %+v", acts)
	}

	cleared, err := s.SetCadence(context.Background(), lead.ID, "", nil, nil)
	if err != nil || cleared.FollowUpFrequency != nil || cleared.FollowUpDayOfWeek != nil {
		t.Fatalf("clear failed: %+v %v", cleared, err)
	}
}

func TestSetCadenceRejectsInvalidInput(t *testing.T) {
	store := leadstest.NewStore()
	s := newScheduler(store, nil)
	lead := store.Put(domain.Lead{FirstName: "Ed", Emails: []string{"ed@example.com"}})
	seven := 7

	tests := []struct {
		name string
		freq string
		day  *int
		kind apperr.Kind
	}{
		{"unknown frequency", "daily", nil, apperr.KindValidation},
		{"weekday out of range", "weekly", &seven, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SetCadence(context.Background(), lead.ID, tt.freq, tt.day, nil)
			if apperr.GetKind(err) != tt.kind {
				t.Fatalf("kind = %v, want %v (err %v)", apperr.GetKind(err), tt.kind, err)
			}
		})
	}

	if _, err := s.SetCadence(context.Background(), uuid.New(), "weekly", nil, nil); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("missing lead: %v", err)
	}
}
