package agents

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

type memStore struct {
	agents map[uuid.UUID]domain.Agent
}

func (m *memStore) Create(_ context.Context, name, email, role string) (domain.Agent, error) {
	for _, a := range m.agents {
		if a.Email == email {
			return domain.Agent{}, ErrEmailTaken
		}
	}
	a := domain.Agent{ID: uuid.New(), Name: name, Email: email, Role: role, IsActive: true}
	m.agents[a.ID] = a
	return a, nil
}

func (m *memStore) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return domain.Agent{}, ErrNotFound
	}
	return a, nil
}

func (m *memStore) List(context.Context, bool) ([]domain.Agent, error) {
	out := make([]domain.Agent, 0, len(m.agents))
	for _, a := range m.agents {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) (domain.Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return domain.Agent{}, ErrNotFound
	}
	a.IsActive = active
	m.agents[id] = a
	return a, nil
}

func TestServiceCreateDefaultsRole(t *testing.T) {
	svc := NewService(&memStore{agents: map[uuid.UUID]domain.Agent{}}, logger.Discard())
	a, err := svc.Create(context.Background(), "Alice", "alice@example.com", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Role != "agent" {
		t.Fatalf("role = %q, want agent", a.Role)
	}

	_, err = svc.Create(context.Background(), "Alice Two", "alice@example.com", "agent")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate email err = %v", err)
	}
}

func TestServiceNotFoundIsTranslated(t *testing.T) {
	svc := NewService(&memStore{agents: map[uuid.UUID]domain.Agent{}}, logger.Discard())
	if _, err := svc.Get(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if _, err := svc.SetActive(context.Background(), uuid.New(), false); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("SetActive err = %v", err)
	}
}

func TestServiceSetActive(t *testing.T) {
	store := &memStore{agents: map[uuid.UUID]domain.Agent{}}
	svc := NewService(store, logger.Discard())
	a, _ := svc.Create(context.Background(), "Bob", "bob@example.com", "agent")

	got, err := svc.SetActive(context.Background(), a.ID, false)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got.IsActive || store.agents[a.ID].IsActive {
		t.Fatal("agent still active")
	}
}
