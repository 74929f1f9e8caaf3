package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

type CreateNoteParams struct {
	LeadID   uuid.UUID
	OwnerID  uuid.UUID
	AuthorID uuid.UUID
	Body     string
}

func (r *Repository) CreateNote(ctx context.Context, params CreateNoteParams) (note domain.Note, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Note{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO lead_notes (lead_id, owner_id, author_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lead_id, owner_id, author_id, body, created_at
	`, params.LeadID, params.OwnerID, params.AuthorID, params.Body).Scan(
		&note.ID, &note.LeadID, &note.OwnerID, &note.AuthorID, &note.Body, &note.CreatedAt,
	)
	if err != nil {
		return domain.Note{}, err
	}

	author := params.AuthorID
	if _, err = insertActivity(ctx, tx, domain.Activity{
		LeadID:      params.LeadID,
		Type:        domain.ActivityNoteAdded,
		Description: "Note added",
		ActorID:     &author,
		Metadata:    map[string]any{"noteId": note.ID.String()},
	}); err != nil {
		return domain.Note{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

// ListNotes returns the newest notes first, optionally scoped to one owner.
func (r *Repository) ListNotes(ctx context.Context, leadID uuid.UUID, ownerID *uuid.UUID, limit int) ([]domain.Note, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, owner_id, author_id, body, created_at
		FROM lead_notes
		WHERE lead_id = $1 AND ($2::uuid IS NULL OR owner_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, leadID, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.LeadID, &n.OwnerID, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CopyNotes duplicates the limit most recent notes of fromOwner for toOwner,
// keeping their original order and authorship.
func (r *Repository) CopyNotes(ctx context.Context, leadID, fromOwner, toOwner uuid.UUID, limit int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO lead_notes (lead_id, owner_id, author_id, body, created_at)
		SELECT lead_id, $3, author_id, body, created_at
		FROM (
			SELECT lead_id, author_id, body, created_at
			FROM lead_notes
			WHERE lead_id = $1 AND owner_id = $2
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		) recent
	`, leadID, fromOwner, toOwner, limit)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
