package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// MessageProcessor runs a fetched message through intake.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg intake.Message) (intake.Result, error)
}

// FollowUpReader loads a follow-up for its reminder.
type FollowUpReader interface {
	GetFollowUp(ctx context.Context, id uuid.UUID) (domain.FollowUp, error)
}

// TaskHandlers holds the per-task logic, independent of the asynq server.
type TaskHandlers struct {
	Pipeline  MessageProcessor
	FollowUps FollowUpReader
	Bus       events.Bus
	Log       *logger.Logger
}

// HandleIntakeMessage runs the pipeline for one queued message. Pipeline
// outcomes are final; only store failures are retried.
func (h *TaskHandlers) HandleIntakeMessage(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseIntakeMessagePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	res, err := h.Pipeline.ProcessMessage(ctx, payload.Message())
	if err != nil {
		return err
	}
	h.Log.WithContext(ctx).Debug("mailbox message processed", "uid", payload.UID, "outcome", res.Outcome, "source", res.Source)
	return nil
}

// HandleFollowUpReminder publishes FollowUpDue for a still-pending follow-up.
func (h *TaskHandlers) HandleFollowUpReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	id, err := uuid.Parse(payload.FollowUpID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	f, err := h.FollowUps.GetFollowUp(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if f.Status != domain.FollowUpPending {
		return nil
	}
	if h.Bus == nil {
		return nil
	}

	return h.Bus.PublishSync(ctx, events.FollowUpDue{
		BaseEvent:     events.NewBaseEvent(),
		FollowUpID:    f.ID,
		LeadID:        f.LeadID,
		AgentID:       f.AgentID,
		ScheduledDate: f.ScheduledDate.Format(time.DateOnly),
	})
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers *TaskHandlers, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	if handlers.Log == nil {
		handlers.Log = log
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIntakeMessage, handlers.HandleIntakeMessage)
	mux.HandleFunc(TaskFollowUpReminder, handlers.HandleFollowUpReminder)

	return &Worker{server: server, mux: mux, log: log}, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
