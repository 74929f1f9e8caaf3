package distribution

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

type fakeAgentStore struct {
	mu       sync.Mutex
	agents   map[uuid.UUID]*domain.Agent
	casFails int
}

func newFakeAgentStore(agents ...domain.Agent) *fakeAgentStore {
	s := &fakeAgentStore{agents: make(map[uuid.UUID]*domain.Agent)}
	for i := range agents {
		a := agents[i]
		s.agents[a.ID] = &a
	}
	return s
}

func (s *fakeAgentStore) ListActiveAgents(context.Context) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Agent
	for _, a := range s.agents {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *fakeAgentStore) GetAgent(_ context.Context, id uuid.UUID) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return domain.Agent{}, ErrAgentNotFound
	}
	return *a, nil
}

func (s *fakeAgentStore) CompareAndSetPriority(_ context.Context, id uuid.UUID, expected, next int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.casFails > 0 {
		s.casFails--
		return false, nil
	}
	a, ok := s.agents[id]
	if !ok || a.RoundRobinPriority != expected {
		return false, nil
	}
	a.RoundRobinPriority = next
	return true, nil
}

func agent(name string, priority int, active bool) domain.Agent {
	return domain.Agent{ID: uuid.New(), Name: name, RoundRobinPriority: priority, IsActive: active}
}

func TestRoundRobinCycles(t *testing.T) {
	a, b, c := agent("A", 1, true), agent("B", 2, true), agent("C", 3, true)
	d := New(newFakeAgentStore(a, b, c), nil, nil)
	ctx := context.Background()

	var got []string
	for i := 0; i < 4; i++ {
		next, ok, err := d.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("Next: ok=%v err=%v", ok, err)
		}
		got = append(got, next.Name)
		if err := d.Advance(ctx, next.ID); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	want := []string{"A", "B", "C", "A"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestNextWithNoActiveAgents(t *testing.T) {
	d := New(newFakeAgentStore(agent("Off", 0, false)), nil, nil)
	_, ok, err := d.Next(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no agent and no error, got ok=%v err=%v", ok, err)
	}
}

func TestNextTieBreaksOnSmallestID(t *testing.T) {
	x, y := agent("X", 1, true), agent("Y", 1, true)
	x.ID = uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	y.ID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	d := New(newFakeAgentStore(x, y), nil, nil)

	next, _, _ := d.Next(context.Background())
	if next.Name != "Y" {
		t.Fatalf("expected Y on tie, got %s", next.Name)
	}
}

func TestAdvanceIgnoresInactivePriorities(t *testing.T) {
	a, b := agent("A", 1, true), agent("Off", 50, false)
	store := newFakeAgentStore(a, b, agent("C", 4, true))
	d := New(store, nil, nil)

	if err := d.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	got, _ := store.GetAgent(context.Background(), a.ID)
	if got.RoundRobinPriority != 5 {
		t.Fatalf("expected priority 5, got %d", got.RoundRobinPriority)
	}
}

func TestAdvanceRetriesOnContention(t *testing.T) {
	a := agent("A", 1, true)
	store := newFakeAgentStore(a, agent("B", 2, true))
	store.casFails = 2
	d := New(store, nil, nil)

	if err := d.Advance(context.Background(), a.ID); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	store.casFails = defaultAdvanceAttempts
	if err := d.Advance(context.Background(), a.ID); !errors.Is(err, ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
}

func TestWithTurnAdvancesOnlyOnSuccess(t *testing.T) {
	a, b := agent("A", 1, true), agent("B", 2, true)
	store := newFakeAgentStore(a, b)
	d := New(store, nil, nil)
	ctx := context.Background()

	boom := errors.New("assignment failed")
	picked, ok, err := d.WithTurn(ctx, func(domain.Agent) error { return boom })
	if !ok || !errors.Is(err, boom) || picked.Name != "A" {
		t.Fatalf("unexpected result %v %v %v", picked.Name, ok, err)
	}
	if got, _ := store.GetAgent(ctx, a.ID); got.RoundRobinPriority != 1 {
		t.Fatal("failed assignment must not advance the agent")
	}

	picked, ok, err = d.WithTurn(ctx, func(domain.Agent) error { return nil })
	if !ok || err != nil || picked.Name != "A" {
		t.Fatalf("unexpected result %v %v %v", picked.Name, ok, err)
	}
	next, _, _ := d.Next(ctx)
	if next.Name != "B" {
		t.Fatalf("expected B after A advanced, got %s", next.Name)
	}
}

func TestWithTurnSerializesConcurrentCallers(t *testing.T) {
	a, b, c := agent("A", 1, true), agent("B", 2, true), agent("C", 3, true)
	d := New(newFakeAgentStore(a, b, c), nil, nil)

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = d.WithTurn(context.Background(), func(ag domain.Agent) error {
				mu.Lock()
				counts[ag.Name]++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	for _, name := range []string{"A", "B", "C"} {
		if counts[name] != 10 {
			t.Fatalf("expected an even split, got %v", counts)
		}
	}
}
