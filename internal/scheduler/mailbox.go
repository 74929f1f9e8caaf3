package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

const defaultMailboxBatch = 50

// MailboxPollTimeout bounds one scheduled poll.
const MailboxPollTimeout = 2 * time.Minute

// FetchedMessage is one mailbox message with its UID.
type FetchedMessage struct {
	UID     int
	Payload IntakeMessagePayload
}

// Mailbox lists messages newer than a UID.
type Mailbox interface {
	FetchAfter(ctx context.Context, afterUID, limit int) ([]FetchedMessage, error)
}

// Cursor remembers the last enqueued UID.
type Cursor interface {
	Load(ctx context.Context) (int, error)
	Save(ctx context.Context, uid int) error
}

// MessageEnqueuer hands a fetched message to the worker queue.
type MessageEnqueuer interface {
	EnqueueIntakeMessage(ctx context.Context, payload IntakeMessagePayload) error
}

// MailboxPoller moves new mailbox messages onto the queue, advancing the
// cursor after each successful enqueue.
type MailboxPoller struct {
	mailbox  Mailbox
	cursor   Cursor
	enqueuer MessageEnqueuer
	batch    int
	metrics  *metrics.Metrics
	log      *logger.Logger
	running  sync.Mutex
}

func NewMailboxPoller(mailbox Mailbox, cursor Cursor, enqueuer MessageEnqueuer, batch int, m *metrics.Metrics, log *logger.Logger) *MailboxPoller {
	if batch <= 0 {
		batch = defaultMailboxBatch
	}
	if log == nil {
		log = logger.Discard()
	}
	return &MailboxPoller{mailbox: mailbox, cursor: cursor, enqueuer: enqueuer, batch: batch, metrics: m, log: log}
}

// Poll runs one fetch. An overlapping call returns immediately with zero.
func (p *MailboxPoller) Poll(ctx context.Context) (int, error) {
	if !p.running.TryLock() {
		return 0, nil
	}
	defer p.running.Unlock()

	last, err := p.cursor.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load mailbox cursor: %w", err)
	}

	msgs, err := p.mailbox.FetchAfter(ctx, last, p.batch)
	if err != nil {
		return 0, fmt.Errorf("fetch mailbox: %w", err)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].UID < msgs[j].UID })

	enqueued := 0
	for _, m := range msgs {
		if m.UID <= last {
			continue
		}
		payload := m.Payload
		payload.UID = m.UID
		if err := p.enqueuer.EnqueueIntakeMessage(ctx, payload); err != nil {
			p.metrics.Fetched(enqueued)
			return enqueued, fmt.Errorf("enqueue uid %d: %w", m.UID, err)
		}
		if err := p.cursor.Save(ctx, m.UID); err != nil {
			p.metrics.Fetched(enqueued + 1)
			return enqueued + 1, fmt.Errorf("save mailbox cursor: %w", err)
		}
		last = m.UID
		enqueued++
	}

	p.metrics.Fetched(enqueued)
	if enqueued > 0 {
		p.log.WithContext(ctx).Info("mailbox messages enqueued", "count", enqueued, "lastUid", last)
	}
	return enqueued, nil
}

// RedisCursor stores the last UID under one key.
type RedisCursor struct {
	client redis.UniversalClient
	key    string
}

func NewRedisCursor(client redis.UniversalClient, folder string) *RedisCursor {
	return &RedisCursor{client: client, key: "intake:mailbox:" + folder + ":last_uid"}
}

func (c *RedisCursor) Load(ctx context.Context) (int, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	uid, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt cursor %q: %w", raw, err)
	}
	return uid, nil
}

// Save only moves the cursor forward.
func (c *RedisCursor) Save(ctx context.Context, uid int) error {
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, c.key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current, convErr := strconv.Atoi(raw); convErr == nil && current >= uid {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, strconv.Itoa(uid), 0)
			return nil
		})
		return err
	}, c.key)
}
