package distribution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerIsExclusive(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedisLocker(client, time.Second, 100*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected timeout while held, got %v", err)
	}

	unlock()
	unlock2, err := l.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock2()
}

func TestRedisLockerReleaseKeepsForeignLock(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedisLocker(client, time.Second, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	// Simulate expiry and takeover by another holder.
	client.Set(ctx, "k", "someone-else", time.Second)
	unlock()

	if v, _ := client.Get(ctx, "k").Result(); v != "someone-else" {
		t.Fatalf("release must not delete a lock it no longer owns, got %q", v)
	}
}

func TestLocalLockerHonorsContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, _ := l.Lock(context.Background(), "")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDistributorWithRedisLocker(t *testing.T) {
	client := newTestRedis(t)
	a, b := agent("A", 1, true), agent("B", 2, true)
	d := New(newFakeAgentStore(a, b), NewRedisLocker(client, time.Second, time.Second), nil)

	first, _, err := d.WithTurn(context.Background(), func(domain.Agent) error { return nil })
	if err != nil || first.Name != "A" {
		t.Fatalf("unexpected first pick %s err=%v", first.Name, err)
	}
	second, _, _ := d.WithTurn(context.Background(), func(domain.Agent) error { return nil })
	if second.Name != "B" {
		t.Fatalf("expected B second, got %s", second.Name)
	}
}
