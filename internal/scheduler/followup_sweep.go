package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

const sweepBatch = 500

// DueFollowUps lists pending follow-ups up to a day.
type DueFollowUps interface {
	DuePendingFollowUps(ctx context.Context, day time.Time, limit int) ([]domain.FollowUp, error)
}

// ReminderEnqueuer matches Client.ScheduleFollowUpReminder.
type ReminderEnqueuer interface {
	ScheduleFollowUpReminder(ctx context.Context, followUpID, leadID, agentID uuid.UUID, runAt time.Time) error
}

// FollowUpSweep re-enqueues reminders for pending follow-ups that are due.
// Reminders are keyed by follow-up id, so ones already queued are skipped.
type FollowUpSweep struct {
	store     DueFollowUps
	reminders ReminderEnqueuer
	log       *logger.Logger
	now       func() time.Time
}

func NewFollowUpSweep(store DueFollowUps, reminders ReminderEnqueuer, log *logger.Logger) *FollowUpSweep {
	if log == nil {
		log = logger.Discard()
	}
	return &FollowUpSweep{store: store, reminders: reminders, log: log, now: time.Now}
}

func (s *FollowUpSweep) Run(ctx context.Context) error {
	today := s.now().UTC().Truncate(24 * time.Hour)
	due, err := s.store.DuePendingFollowUps(ctx, today, sweepBatch)
	if err != nil {
		return err
	}

	failed := 0
	for _, f := range due {
		if err := s.reminders.ScheduleFollowUpReminder(ctx, f.ID, f.LeadID, f.AgentID, f.ScheduledDate); err != nil {
			failed++
			s.log.WithContext(ctx).Warn("failed to enqueue follow-up reminder", "followUpId", f.ID, "error", err)
		}
	}
	if len(due) > 0 {
		s.log.WithContext(ctx).Info("follow-up sweep finished", "due", len(due), "failed", failed)
	}
	return nil
}
