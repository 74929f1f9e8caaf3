package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertActivity(ctx context.Context, q querier, a domain.Activity) (domain.Activity, error) {
	meta := a.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return domain.Activity{}, err
	}

	var activityType string
	err = q.QueryRow(ctx, `
		INSERT INTO lead_activities (lead_id, activity_type, description, actor_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, activity_type, description, actor_id, created_at
	`, a.LeadID, string(a.Type), a.Description, a.ActorID, metaJSON).Scan(
		&a.ID, &a.LeadID, &activityType, &a.Description, &a.ActorID, &a.CreatedAt,
	)
	if err != nil {
		return domain.Activity{}, err
	}
	a.Type = domain.ActivityType(activityType)
	a.Metadata = meta
	return a, nil
}

// AddActivity appends one entry to a lead's audit trail.
func (r *Repository) AddActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	return insertActivity(ctx, r.pool, activity)
}

// ListActivities returns the newest entries first.
func (r *Repository) ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.Activity, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, activity_type, description, actor_id, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Activity, 0)
	for rows.Next() {
		var (
			a            domain.Activity
			activityType string
			metaJSON     []byte
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &activityType, &a.Description, &a.ActorID, &metaJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = domain.ActivityType(activityType)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
				return nil, err
			}
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
