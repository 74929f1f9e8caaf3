// Package followup creates the initial follow-up for newly assigned leads and
// stores agents' follow-up cadence preferences.
package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

const dateLayout = "2006-01-02"

// Store is the persistence the scheduler needs.
type Store interface {
	ClaimInitialFollowUp(ctx context.Context, leadID uuid.UUID) (bool, error)
	ReleaseInitialFollowUp(ctx context.Context, leadID uuid.UUID) error
	CreateFollowUp(ctx context.Context, params repository.CreateFollowUpParams) (domain.FollowUp, error)
	SetCadence(ctx context.Context, leadID uuid.UUID, frequency *domain.Frequency, dayOfWeek *int) (domain.Lead, error)
	AddActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error)
}

// ReminderScheduler enqueues a reminder for a follow-up's due date.
type ReminderScheduler interface {
	ScheduleFollowUpReminder(ctx context.Context, followUpID, leadID, agentID uuid.UUID, runAt time.Time) error
}

type Scheduler struct {
	store     Store
	reminders ReminderScheduler
	bus       events.Bus
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// New builds a Scheduler. reminders, bus and m may be nil.
func New(store Store, reminders ReminderScheduler, bus events.Bus, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Discard()
	}
	return &Scheduler{
		store:     store,
		reminders: reminders,
		bus:       bus,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// EnsureInitial creates the lead's initial follow-up, dated the UTC day after
// assignedAt, unless one was already claimed. A zero assignedAt means now.
// created is false on repeat calls.
func (s *Scheduler) EnsureInitial(ctx context.Context, leadID, agentID uuid.UUID, assignedAt time.Time, actorID *uuid.UUID) (domain.FollowUp, bool, error) {
	claimed, err := s.store.ClaimInitialFollowUp(ctx, leadID)
	if err != nil {
		return domain.FollowUp{}, false, fmt.Errorf("claim initial follow-up: %w", err)
	}
	if !claimed {
		return domain.FollowUp{}, false, nil
	}

	if assignedAt.IsZero() {
		assignedAt = s.now()
	}
	date := domain.InitialFollowUpDate(assignedAt)
	f, err := s.store.CreateFollowUp(ctx, repository.CreateFollowUpParams{
		LeadID:        leadID,
		AgentID:       agentID,
		ScheduledDate: date,
		Type:          domain.FollowUpTypeInitial,
		Activity: &domain.Activity{
			Type:        domain.ActivityFollowUp,
			Description: "Initial follow-up scheduled for " + date.Format(dateLayout),
			ActorID:     actorID,
			Metadata: map[string]any{
				"agentId":       agentID.String(),
				"scheduledDate": date.Format(dateLayout),
				"type":          domain.FollowUpTypeInitial,
			},
		},
	})
	if isUniqueViolation(err) {
		return domain.FollowUp{}, false, nil
	}
	if err != nil {
		if relErr := s.store.ReleaseInitialFollowUp(ctx, leadID); relErr != nil {
			s.log.WithContext(ctx).Error("failed to release initial follow-up claim", "leadId", leadID, "error", relErr)
		}
		return domain.FollowUp{}, false, fmt.Errorf("create initial follow-up: %w", err)
	}

	s.metrics.FollowUpCreated()
	s.log.WithContext(ctx).Info("initial follow-up scheduled", "leadId", leadID, "agentId", agentID, "date", date.Format(dateLayout))

	if s.bus != nil {
		s.bus.Publish(ctx, events.FollowUpScheduled{
			BaseEvent:  events.NewBaseEvent(),
			FollowUpID: f.ID,
			LeadID:     leadID,
			AgentID:    agentID,
			Date:       date.Format(dateLayout),
		})
	}
	if s.reminders != nil {
		if err := s.reminders.ScheduleFollowUpReminder(ctx, f.ID, leadID, agentID, date); err != nil {
			s.log.WithContext(ctx).Warn("failed to enqueue follow-up reminder", "followUpId", f.ID, "error", err)
		}
	}

	return f, true, nil
}

// SetCadence stores the follow-up frequency and preferred weekday. An empty
// frequency or nil weekday clears the value.
func (s *Scheduler) SetCadence(ctx context.Context, leadID uuid.UUID, frequency string, dayOfWeek *int, actorID *uuid.UUID) (domain.Lead, error) {
	freq, err := ParseFrequency(frequency)
	if err != nil {
		return domain.Lead{}, err
	}
	if dayOfWeek != nil && !domain.ValidDayOfWeek(*dayOfWeek) {
		return domain.Lead{}, apperr.Validation("day of week must be between 0 and 6")
	}

	lead, err := s.store.SetCadence(ctx, leadID, freq, dayOfWeek)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, err
	}

	if _, err := s.store.AddActivity(ctx, domain.Activity{
		LeadID:      leadID,
		Type:        domain.ActivityFollowUp,
		Description: DescribeCadence(freq, dayOfWeek),
		ActorID:     actorID,
		Metadata:    cadenceMetadata(freq, dayOfWeek),
	}); err != nil {
		s.log.WithContext(ctx).Warn("failed to record cadence activity", "leadId", leadID, "error", err)
	}
	return lead, nil
}

// ParseFrequency maps "" to nil and rejects unknown values.
func ParseFrequency(raw string) (*domain.Frequency, error) {
	if raw == "" {
		return nil, nil
	}
	f := domain.Frequency(raw)
	if !f.Valid() {
		return nil, apperr.Validation("unknown follow-up frequency " + raw)
	}
	return &f, nil
}

// DescribeCadence renders the activity text for a cadence change.
func DescribeCadence(freq *domain.Frequency, dayOfWeek *int) string {
	if freq == nil {
		return "Follow-up cadence cleared"
	}
	text := "Follow-up cadence set to " + string(*freq)
	if dayOfWeek != nil {
		text += " on " + time.Weekday(*dayOfWeek).String()
	}
	return text
}

func cadenceMetadata(freq *domain.Frequency, dayOfWeek *int) map[string]any {
	meta := map[string]any{}
	if freq != nil {
		meta["frequency"] = string(*freq)
	}
	if dayOfWeek != nil {
		meta["dayOfWeek"] = *dayOfWeek
	}
	return meta
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
