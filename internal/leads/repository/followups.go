package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

// CreateFollowUpParams describes a new pending follow-up.
type CreateFollowUpParams struct {
	LeadID        uuid.UUID
	AgentID       uuid.UUID
	ScheduledDate time.Time
	Type          string
	// Activity, when set, is written in the same transaction.
	Activity *domain.Activity
}

const followUpColumns = `id, lead_id, agent_id, scheduled_date, status, follow_up_type, created_at`

func scanFollowUp(row rowScanner) (domain.FollowUp, error) {
	var (
		f      domain.FollowUp
		status string
	)
	if err := row.Scan(&f.ID, &f.LeadID, &f.AgentID, &f.ScheduledDate, &status, &f.Type, &f.CreatedAt); err != nil {
		return domain.FollowUp{}, err
	}
	f.Status = domain.FollowUpStatus(status)
	return f, nil
}

// ClaimInitialFollowUp sets has_initial_followup and reports whether this
// call was the one that flipped it.
func (r *Repository) ClaimInitialFollowUp(ctx context.Context, leadID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET has_initial_followup = true, updated_at = now()
		WHERE id = $1 AND has_initial_followup = false
	`, leadID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseInitialFollowUp undoes a claim whose follow-up could not be written.
func (r *Repository) ReleaseInitialFollowUp(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET has_initial_followup = false, updated_at = now()
		WHERE id = $1
			AND NOT EXISTS (SELECT 1 FROM lead_follow_ups WHERE lead_id = $1 AND follow_up_type = $2)
	`, leadID, domain.FollowUpTypeInitial)
	return err
}

func (r *Repository) CreateFollowUp(ctx context.Context, params CreateFollowUpParams) (f domain.FollowUp, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.FollowUp{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	f, err = scanFollowUp(tx.QueryRow(ctx, `
		INSERT INTO lead_follow_ups (lead_id, agent_id, scheduled_date, status, follow_up_type)
		VALUES ($1, $2, $3::date, $4, $5)
		RETURNING `+followUpColumns,
		params.LeadID, params.AgentID, params.ScheduledDate.UTC(), string(domain.FollowUpPending), params.Type,
	))
	if err != nil {
		return domain.FollowUp{}, err
	}

	if params.Activity != nil {
		activity := *params.Activity
		activity.LeadID = params.LeadID
		if _, err = insertActivity(ctx, tx, activity); err != nil {
			return domain.FollowUp{}, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.FollowUp{}, err
	}
	return f, nil
}

func (r *Repository) ListFollowUps(ctx context.Context, leadID uuid.UUID) ([]domain.FollowUp, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM lead_follow_ups
		WHERE lead_id = $1
		ORDER BY scheduled_date ASC, created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

// GetFollowUp loads one follow-up.
func (r *Repository) GetFollowUp(ctx context.Context, id uuid.UUID) (domain.FollowUp, error) {
	f, err := scanFollowUp(r.pool.QueryRow(ctx, `SELECT `+followUpColumns+` FROM lead_follow_ups WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FollowUp{}, ErrNotFound
	}
	return f, err
}

// ReassignPendingFollowUps hands pending follow-ups from one agent to another.
func (r *Repository) ReassignPendingFollowUps(ctx context.Context, leadID, fromAgent, toAgent uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lead_follow_ups
		SET agent_id = $3
		WHERE lead_id = $1 AND agent_id = $2 AND status = $4
	`, leadID, fromAgent, toAgent, string(domain.FollowUpPending))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SetCadence stores the follow-up preferences; nil values clear them.
func (r *Repository) SetCadence(ctx context.Context, leadID uuid.UUID, frequency *domain.Frequency, dayOfWeek *int) (domain.Lead, error) {
	var freq *string
	if frequency != nil {
		v := string(*frequency)
		freq = &v
	}
	var day *int16
	if dayOfWeek != nil {
		v := int16(*dayOfWeek)
		day = &v
	}

	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads
		SET follow_up_frequency = $2, follow_up_day_of_week = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, leadID, freq, day))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// DuePendingFollowUps lists pending follow-ups scheduled on or before day.
func (r *Repository) DuePendingFollowUps(ctx context.Context, day time.Time, limit int) ([]domain.FollowUp, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+followUpColumns+`
		FROM lead_follow_ups
		WHERE status = $1 AND scheduled_date <= $2::date
		ORDER BY scheduled_date ASC, id ASC
		LIMIT $3
	`, string(domain.FollowUpPending), day.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
