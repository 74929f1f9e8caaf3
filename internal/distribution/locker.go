package distribution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// LocalLocker is a single-process Locker. Keys are ignored; there is one lock.
type LocalLocker struct {
	sem chan struct{}
}

// NewLocalLocker returns an unlocked LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

// Lock blocks until the lock is free or ctx ends.
func (l *LocalLocker) Lock(ctx context.Context, _ string) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ErrLockTimeout is returned when a Redis lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for lock")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process using the same Redis.
// Each lock expires after ttl so a crashed holder cannot block forever.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

// NewRedisLocker creates a RedisLocker. wait bounds how long Lock blocks.
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait, poll: 25 * time.Millisecond}
}

// Lock acquires key with SET NX and returns a release func that only
// deletes the key if this holder still owns it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		timer := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
