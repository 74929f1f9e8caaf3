package leadsources

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

type memStore struct {
	sources []LeadSource
}

func (m *memStore) ListActive(context.Context) ([]classifier.Registration, error) {
	out := make([]classifier.Registration, 0, len(m.sources))
	for _, s := range m.sources {
		if s.IsActive {
			out = append(out, s.Registration)
		}
	}
	return out, nil
}

func (m *memStore) List(context.Context, bool) ([]LeadSource, error) { return m.sources, nil }

func (m *memStore) Create(_ context.Context, reg classifier.Registration) (LeadSource, error) {
	for _, s := range m.sources {
		if s.Name == reg.Name {
			return LeadSource{}, ErrNameTaken
		}
	}
	src := LeadSource{ID: uuid.New(), Registration: reg, IsActive: true}
	m.sources = append(m.sources, src)
	return src, nil
}

func (m *memStore) Upsert(ctx context.Context, reg classifier.Registration) (LeadSource, error) {
	for i, s := range m.sources {
		if s.Name == reg.Name {
			m.sources[i].Registration = reg
			return m.sources[i], nil
		}
	}
	return m.Create(ctx, reg)
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) (LeadSource, error) {
	for i, s := range m.sources {
		if s.ID == id {
			m.sources[i].IsActive = active
			return m.sources[i], nil
		}
	}
	return LeadSource{}, ErrNotFound
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	for i, s := range m.sources {
		if s.ID == id {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func newTestService() (*Service, *memStore) {
	store := &memStore{}
	log := logger.Discard()
	return NewService(store, NewRegistry(store, log), log), store
}

func TestCreateReloadsClassifier(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	src, err := svc.Create(ctx, classifier.Registration{Name: "Acme", EmailPatterns: []string{"*@acme-leads.com"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := svc.Classify("desk@acme-leads.com", "hi", ""); got != "Acme" {
		t.Fatalf("Classify = %q", got)
	}

	if _, err := svc.Create(ctx, classifier.Registration{Name: "Acme"}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate name err = %v", err)
	}

	if _, err := svc.SetActive(ctx, src.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := svc.Classify("desk@acme-leads.com", "hi", ""); got != classifier.SourceOther {
		t.Fatalf("inactive source still matches: %q", got)
	}

	if err := svc.Delete(ctx, src.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, src.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestSeedUpserts(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	regs := []classifier.Registration{{Name: "Zillow", DomainPatterns: []string{"*.zillow.com"}}}

	if err := svc.Seed(ctx, regs); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := svc.Seed(ctx, regs); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if len(store.sources) != 1 {
		t.Fatalf("seed created %d rows, want 1", len(store.sources))
	}
	if got := svc.Classify("x@mail.zillow.com", "", ""); got != "Zillow" {
		t.Fatalf("Classify = %q", got)
	}
}
