package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// InMemoryBus is a Bus that dispatches within the current process.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	if log == nil {
		log = logger.Discard()
	}
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

func (b *InMemoryBus) snapshot(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.handlers[eventName]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Publish dispatches event to each handler on its own goroutine. The
// request context is detached so handlers survive the request.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.snapshot(event.EventName()) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked", "event", event.EventName(), "panic", fmt.Sprint(r))
				}
			}()
			if err := h.Handle(detached, event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync dispatches event to each handler in registration order.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range b.snapshot(event.EventName()) {
		if err := h.Handle(ctx, event); err != nil {
			return fmt.Errorf("%s: %w", event.EventName(), err)
		}
	}
	return nil
}

// Wait blocks until all asynchronous handlers have returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
