package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
)

// reminderOffset moves a date-only follow-up to the start of the working day.
const reminderOffset = 8 * time.Hour

const intakeRetention = 24 * time.Hour

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleFollowUpReminder enqueues one reminder per follow-up. Repeat calls
// for the same follow-up are ignored.
func (c *Client) ScheduleFollowUpReminder(ctx context.Context, followUpID, leadID, agentID uuid.UUID, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewFollowUpReminderTask(FollowUpReminderPayload{
		FollowUpID: followUpID.String(),
		LeadID:     leadID.String(),
		AgentID:    agentID.String(),
	})
	if err != nil {
		return err
	}

	return c.enqueue(ctx, task,
		asynq.ProcessAt(runAt.Add(reminderOffset)),
		asynq.TaskID("followup-reminder:"+followUpID.String()),
	)
}

// EnqueueIntakeMessage queues a fetched message for the pipeline. A message
// already queued under the same mailbox UID is ignored.
func (c *Client) EnqueueIntakeMessage(ctx context.Context, payload IntakeMessagePayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewIntakeMessageTask(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Retention(intakeRetention)}
	if payload.UID > 0 {
		opts = append(opts, asynq.TaskID("intake-message:"+strconv.Itoa(payload.UID)))
	}
	return c.enqueue(ctx, task, opts...)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	opts = append(opts, asynq.Queue(c.queue))
	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
