// Package distribution picks the next agent for a lead using a rotating
// round-robin priority.
package distribution

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// LockKey serializes every Next/Advance pair across processes.
const LockKey = "distribution:round-robin"

const defaultAdvanceAttempts = 5

// ErrContention is returned when Advance keeps losing its compare-and-set.
var ErrContention = errors.New("round-robin priority changed concurrently")

// ErrAgentNotFound is returned by stores for unknown agent ids.
var ErrAgentNotFound = errors.New("agent not found")

// Store is the agent persistence the distributor needs.
type Store interface {
	ListActiveAgents(ctx context.Context) ([]domain.Agent, error)
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
	// CompareAndSetPriority sets the agent's priority to next only if it is
	// still expected, and reports whether it did.
	CompareAndSetPriority(ctx context.Context, id uuid.UUID, expected, next int) (bool, error)
}

// Locker provides mutual exclusion by key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Distributor hands out agents in priority order.
type Distributor struct {
	store    Store
	locker   Locker
	log      *logger.Logger
	attempts int
}

// New creates a Distributor. A nil locker falls back to an in-process lock.
func New(store Store, locker Locker, log *logger.Logger) *Distributor {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Distributor{store: store, locker: locker, log: log, attempts: defaultAdvanceAttempts}
}

// Next returns the active agent with the lowest priority, ties going to the
// smallest id. ok is false when no agent is active.
func (d *Distributor) Next(ctx context.Context) (domain.Agent, bool, error) {
	agents, err := d.store.ListActiveAgents(ctx)
	if err != nil {
		return domain.Agent{}, false, fmt.Errorf("list active agents: %w", err)
	}
	return pick(agents)
}

func pick(agents []domain.Agent) (domain.Agent, bool, error) {
	var best *domain.Agent
	for i := range agents {
		a := &agents[i]
		if !a.IsActive {
			continue
		}
		if best == nil || before(*a, *best) {
			best = a
		}
	}
	if best == nil {
		return domain.Agent{}, false, nil
	}
	return *best, true, nil
}

func before(a, b domain.Agent) bool {
	if a.RoundRobinPriority != b.RoundRobinPriority {
		return a.RoundRobinPriority < b.RoundRobinPriority
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Advance moves agentID behind every active agent by setting its priority
// to the active maximum plus one.
func (d *Distributor) Advance(ctx context.Context, agentID uuid.UUID) error {
	for attempt := 0; attempt < d.attempts; attempt++ {
		agent, err := d.store.GetAgent(ctx, agentID)
		if err != nil {
			return fmt.Errorf("load agent: %w", err)
		}
		agents, err := d.store.ListActiveAgents(ctx)
		if err != nil {
			return fmt.Errorf("list active agents: %w", err)
		}

		next := maxPriority(agents, agent.RoundRobinPriority) + 1
		ok, err := d.store.CompareAndSetPriority(ctx, agentID, agent.RoundRobinPriority, next)
		if err != nil {
			return fmt.Errorf("update priority: %w", err)
		}
		if ok {
			return nil
		}
		d.log.WithContext(ctx).Debug("round-robin priority moved underneath us, retrying", "agentId", agentID, "attempt", attempt+1)
	}
	return ErrContention
}

func maxPriority(agents []domain.Agent, floor int) int {
	m := floor
	for _, a := range agents {
		if a.IsActive && a.RoundRobinPriority > m {
			m = a.RoundRobinPriority
		}
	}
	return m
}

// WithTurn picks the next agent and runs fn with it while holding the
// distribution lock. The agent is advanced only when fn succeeds. ok is
// false, with no error, when no agent is active.
func (d *Distributor) WithTurn(ctx context.Context, fn func(agent domain.Agent) error) (domain.Agent, bool, error) {
	unlock, err := d.locker.Lock(ctx, LockKey)
	if err != nil {
		return domain.Agent{}, false, fmt.Errorf("acquire distribution lock: %w", err)
	}
	defer unlock()

	agent, ok, err := d.Next(ctx)
	if err != nil || !ok {
		return domain.Agent{}, ok, err
	}

	if err := fn(agent); err != nil {
		return agent, true, err
	}

	if err := d.Advance(ctx, agent.ID); err != nil {
		// The assignment already committed; the agent may be served again.
		d.log.WithContext(ctx).Error("failed to advance round-robin priority", "agentId", agent.ID, "error", err)
	}
	return agent, true, nil
}
