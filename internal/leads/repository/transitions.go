package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

// Assignment sets the owner fields of a lead.
type Assignment struct {
	AgentID    uuid.UUID
	AssignedBy *uuid.UUID
	At         time.Time
}

// Cadence sets the follow-up preferences; nil fields clear them.
type Cadence struct {
	Frequency *domain.Frequency
	DayOfWeek *int
}

// Transition is a status-guarded update. The row is changed only while it
// still has ExpectedStatus, and Activity is written in the same transaction.
type Transition struct {
	LeadID         uuid.UUID
	ExpectedStatus domain.Status
	Status         domain.Status
	ClientType     *domain.ClientType
	Assignment     *Assignment
	Tag            *domain.Tag
	Cadence        *Cadence
	// RequireActive rejects archived leads.
	RequireActive bool
	Activity      domain.Activity
}

// ApplyTransition commits t or changes nothing. It returns ErrNotFound for
// unknown (or, with RequireActive, archived) leads and ErrStaleState when the
// status moved underneath the caller.
func (r *Repository) ApplyTransition(ctx context.Context, t Transition) (lead domain.Lead, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var clientType *string
	if t.ClientType != nil {
		v := string(*t.ClientType)
		clientType = &v
	}
	var tag *string
	if t.Tag != nil {
		v := string(*t.Tag)
		tag = &v
	}

	var (
		assignedTo *uuid.UUID
		assignedBy *uuid.UUID
		assignedAt *time.Time
	)
	if t.Assignment != nil {
		assignedTo = &t.Assignment.AgentID
		assignedBy = t.Assignment.AssignedBy
		assignedAt = nullableTime(t.Assignment.At)
	}

	var (
		frequency *string
		dayOfWeek *int16
	)
	if t.Cadence != nil {
		if t.Cadence.Frequency != nil {
			v := string(*t.Cadence.Frequency)
			frequency = &v
		}
		if t.Cadence.DayOfWeek != nil {
			v := int16(*t.Cadence.DayOfWeek)
			dayOfWeek = &v
		}
	}

	lead, err = scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET lead_status = $3,
			client_type = COALESCE($4::text, client_type),
			assigned_to = CASE WHEN $5 THEN $6::uuid ELSE assigned_to END,
			assigned_by = CASE WHEN $5 THEN $7::uuid ELSE assigned_by END,
			assigned_at = CASE WHEN $5 THEN COALESCE($8::timestamptz, now()) ELSE assigned_at END,
			lead_tag = COALESCE($9::text, lead_tag),
			follow_up_frequency = CASE WHEN $10 THEN $11::text ELSE follow_up_frequency END,
			follow_up_day_of_week = CASE WHEN $10 THEN $12::smallint ELSE follow_up_day_of_week END,
			updated_at = now()
		WHERE id = $1
			AND lead_status = $2
			AND (NOT $13 OR archived_at IS NULL)
		RETURNING `+leadColumns,
		t.LeadID, string(t.ExpectedStatus), string(t.Status),
		clientType,
		t.Assignment != nil, assignedTo, assignedBy, assignedAt,
		tag,
		t.Cadence != nil, frequency, dayOfWeek,
		t.RequireActive,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		err = classifyMiss(ctx, tx, t.LeadID, t.RequireActive)
		return domain.Lead{}, err
	}
	if err != nil {
		return domain.Lead{}, err
	}

	activity := t.Activity
	activity.LeadID = lead.ID
	if _, err = insertActivity(ctx, tx, activity); err != nil {
		return domain.Lead{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func classifyMiss(ctx context.Context, tx pgx.Tx, id uuid.UUID, requireActive bool) error {
	var archived bool
	err := tx.QueryRow(ctx, `SELECT archived_at IS NOT NULL FROM leads WHERE id = $1`, id).Scan(&archived)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if requireActive && archived {
		return ErrNotFound
	}
	return ErrStaleState
}
