package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
)

type fakeStore struct {
	mu        sync.Mutex
	leads     []domain.Lead
	findErr   error
	deleteErr map[uuid.UUID]error
	deleted   []uuid.UUID
	// beforeDelete runs under the lock, ahead of each delete.
	beforeDelete func(id uuid.UUID)
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) ([]domain.Lead, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []domain.Lead
	for _, l := range f.leads {
		for _, e := range l.Emails {
			if strings.EqualFold(e, email) {
				out = append(out, l)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListStaging(context.Context) ([]domain.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Lead
	for _, l := range f.leads {
		if l.Status == domain.StatusStaging && !l.IsArchived() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteStagingLead(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return false, err
	}
	if f.beforeDelete != nil {
		f.beforeDelete(id)
	}
	for i, l := range f.leads {
		if l.ID == id {
			if l.Status != domain.StatusStaging || l.IsArchived() {
				return false, nil
			}
			f.leads = append(f.leads[:i], f.leads[i+1:]...)
			f.deleted = append(f.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func stagingLead(name, email, phone, source string, createdOffset time.Duration) domain.Lead {
	first, last, _ := strings.Cut(name, " ")
	return domain.Lead{
		ID:        uuid.New(),
		FirstName: first,
		LastName:  last,
		Emails:    []string{email},
		Phones:    []string{phone},
		Source:    source,
		Status:    domain.StatusStaging,
		CreatedAt: base.Add(createdOffset),
	}
}

func TestFindByEmailIsCaseInsensitive(t *testing.T) {
	agent := uuid.New()
	existing := stagingLead("John Smith", "john@test.com", "", "Zillow", 0)
	existing.AssignedTo = &agent
	e := New(&fakeStore{leads: []domain.Lead{existing}}, nil, nil)

	m, ok := e.FindByEmail(context.Background(), "JOHN@TEST.COM", nil)
	if !ok || m.LeadID != existing.ID {
		t.Fatalf("expected match on %s, got %+v ok=%v", existing.ID, m, ok)
	}
	if !m.Visible {
		t.Fatal("unscoped lookup must be visible")
	}

	other := uuid.New()
	m, ok = e.FindByEmail(context.Background(), "john@test.com", &other)
	if !ok || m.Visible {
		t.Fatalf("expected hidden match for non-owner, got %+v ok=%v", m, ok)
	}
	m, _ = e.FindByEmail(context.Background(), "john@test.com", &agent)
	if !m.Visible {
		t.Fatal("owner should see the match")
	}
}

func TestFindByEmailSwallowsStoreErrors(t *testing.T) {
	e := New(&fakeStore{findErr: errors.New("db down")}, nil, nil)
	if _, ok := e.FindByEmail(context.Background(), "a@b.com", nil); ok {
		t.Fatal("store error must read as no match")
	}
}

func TestFindAnyTriesEachEmail(t *testing.T) {
	existing := stagingLead("A B", "second@x.com", "", "other", 0)
	e := New(&fakeStore{leads: []domain.Lead{existing}}, nil, nil)
	m, ok := e.FindAny(context.Background(), []string{"first@x.com", "Second@X.com"}, nil)
	if !ok || m.LeadID != existing.ID {
		t.Fatalf("expected match via second email, got %+v ok=%v", m, ok)
	}
}

func TestGroupKeepsEarliest(t *testing.T) {
	early := stagingLead("John Smith", "john@test.com", "555-1", "Zillow", 0)
	late := stagingLead("john  SMITH", "JOHN@test.com", "555-1", "Zillow", time.Hour)
	distinct := stagingLead("John Smith", "john@test.com", "555-1", "Redfin", 0)

	sets := Group([]domain.Lead{late, distinct, early})
	if len(sets) != 1 {
		t.Fatalf("expected one duplicate set, got %d", len(sets))
	}
	if sets[0].Keep.ID != early.ID {
		t.Fatalf("expected earliest lead kept")
	}
	if len(sets[0].Remove) != 1 || sets[0].Remove[0].ID != late.ID {
		t.Fatalf("expected only the later lead removed, got %+v", sets[0].Remove)
	}
}

func TestGroupTieBreaksOnSmallestID(t *testing.T) {
	a := stagingLead("Pat Lee", "pat@x.com", "1", "other", 0)
	b := stagingLead("Pat Lee", "pat@x.com", "1", "other", 0)
	a.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b.ID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	sets := Group([]domain.Lead{b, a})
	if len(sets) != 1 || sets[0].Keep.ID != a.ID {
		t.Fatalf("expected smallest id kept, got %+v", sets)
	}
}

func TestPreviewAndCommit(t *testing.T) {
	early := stagingLead("John Smith", "john@test.com", "555-123-4567", "HomeStack", 0)
	late := stagingLead("John Smith", "john@test.com", "555-123-4567", "HomeStack", time.Minute)
	store := &fakeStore{leads: []domain.Lead{early, late}}
	e := New(store, nil, nil)

	report, err := e.Preview(context.Background())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if report.Scanned != 2 || report.RemoveCount != 1 || report.Fingerprint == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(store.deleted) != 0 {
		t.Fatal("preview must not delete")
	}

	result, err := e.Commit(context.Background(), report.Fingerprint)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.Deleted != 1 || len(store.deleted) != 1 || store.deleted[0] != late.ID {
		t.Fatalf("expected only the later duplicate deleted, got %+v", result)
	}
	if len(store.leads) != 1 || store.leads[0].ID != early.ID {
		t.Fatal("earlier lead must survive")
	}
}

func TestCommitRejectsStaleFingerprint(t *testing.T) {
	early := stagingLead("John Smith", "john@test.com", "1", "HomeStack", 0)
	late := stagingLead("John Smith", "john@test.com", "1", "HomeStack", time.Minute)
	store := &fakeStore{leads: []domain.Lead{early, late}}
	e := New(store, nil, nil)

	report, _ := e.Preview(context.Background())
	store.leads = append(store.leads, stagingLead("John Smith", "john@test.com", "1", "HomeStack", 2*time.Minute))

	_, err := e.Commit(context.Background(), report.Fingerprint)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatal("stale commit must not delete anything")
	}
}

func TestCommitRequiresFingerprint(t *testing.T) {
	e := New(&fakeStore{}, nil, nil)
	if _, err := e.Commit(context.Background(), ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommitReportsPerItemFailures(t *testing.T) {
	keep := stagingLead("A B", "a@b.com", "1", "other", 0)
	r1 := stagingLead("A B", "a@b.com", "1", "other", time.Minute)
	r2 := stagingLead("A B", "a@b.com", "1", "other", 2*time.Minute)
	store := &fakeStore{
		leads:     []domain.Lead{keep, r1, r2},
		deleteErr: map[uuid.UUID]error{r1.ID: errors.New("locked")},
	}
	e := New(store, nil, nil)

	report, _ := e.Preview(context.Background())
	result, err := e.Commit(context.Background(), report.Fingerprint)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.Deleted != 1 || result.Failed != 1 || len(result.Items) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCommitSkipsLeadsAssignedMeanwhile(t *testing.T) {
	keep := stagingLead("A B", "a@b.com", "1", "other", 0)
	raced := stagingLead("A B", "a@b.com", "1", "other", time.Minute)
	store := &fakeStore{leads: []domain.Lead{keep, raced}}
	store.beforeDelete = func(id uuid.UUID) {
		for i := range store.leads {
			if store.leads[i].ID == id {
				store.leads[i].Status = domain.StatusAssigned
			}
		}
	}
	e := New(store, nil, nil)

	report, _ := e.Preview(context.Background())
	result, err := e.Commit(context.Background(), report.Fingerprint)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.Deleted != 0 || result.Skipped != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Items) != 1 || !result.Items[0].Skipped || result.Items[0].Deleted {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if len(store.leads) != 2 {
		t.Fatal("assigned lead must survive the commit")
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := stagingLead("A B", "a@b.com", "1", "other", 0)
	b := stagingLead("A B", "a@b.com", "1", "other", time.Minute)
	c := stagingLead("C D", "c@d.com", "2", "other", 0)
	d := stagingLead("C D", "c@d.com", "2", "other", time.Minute)

	f1 := Fingerprint(Group([]domain.Lead{a, b, c, d}))
	f2 := Fingerprint(Group([]domain.Lead{d, c, b, a}))
	if f1 != f2 {
		t.Fatal("fingerprint must not depend on input order")
	}
}
