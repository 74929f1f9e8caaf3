// Package repository persists leads, their activities, follow-ups and notes
// in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrStaleState means the lead no longer had the expected status.
	ErrStaleState = errors.New("lead status changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, first_name, last_name, emails, phones, company, job_title, lead_source,
	lead_status, lead_tag, client_type, assigned_to, assigned_by, assigned_at,
	follow_up_frequency, follow_up_day_of_week, has_initial_followup,
	message, property_address, property_details, archived_at, archived_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		l          domain.Lead
		status     string
		tag        *string
		clientType string
		frequency  *string
		dayOfWeek  *int16
	)
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Emails, &l.Phones, &l.Company, &l.JobTitle, &l.Source,
		&status, &tag, &clientType, &l.AssignedTo, &l.AssignedBy, &l.AssignedAt,
		&frequency, &dayOfWeek, &l.HasInitialFollowUp,
		&l.Message, &l.PropertyAddress, &l.PropertyDetails, &l.ArchivedAt, &l.ArchivedBy,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	l.Status = domain.Status(status)
	l.ClientType = domain.ClientType(clientType)
	if tag != nil {
		t := domain.Tag(*tag)
		l.Tag = &t
	}
	if frequency != nil {
		f := domain.Frequency(*frequency)
		l.FollowUpFrequency = &f
	}
	if dayOfWeek != nil {
		d := int(*dayOfWeek)
		l.FollowUpDayOfWeek = &d
	}
	if l.Emails == nil {
		l.Emails = []string{}
	}
	if l.Phones == nil {
		l.Phones = []string{}
	}
	return l, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return leads, nil
}

// CreateLeadParams holds the fields of a new staging lead.
type CreateLeadParams struct {
	FirstName       string
	LastName        string
	Emails          []string
	Phones          []string
	Company         *string
	JobTitle        *string
	Source          string
	Message         *string
	PropertyAddress *string
	PropertyDetails *string
	ActorID         *uuid.UUID
	// Description overrides the text of the created activity.
	Description string
}

// CreateLead inserts a staging lead and its created activity in one transaction.
func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (lead domain.Lead, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	emails := params.Emails
	if emails == nil {
		emails = []string{}
	}
	phones := params.Phones
	if phones == nil {
		phones = []string{}
	}

	lead, err = scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, emails, phones, company, job_title, lead_source,
			lead_status, client_type, message, property_address, property_details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, emails, phones, params.Company, params.JobTitle, params.Source,
		string(domain.StatusStaging), string(domain.ClientTypeLead),
		params.Message, params.PropertyAddress, params.PropertyDetails,
	))
	if err != nil {
		return domain.Lead{}, err
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("Lead created from %s", params.Source)
	}
	if _, err = insertActivity(ctx, tx, domain.Activity{
		LeadID:      lead.ID,
		Type:        domain.ActivityCreated,
		Description: description,
		ActorID:     params.ActorID,
		Metadata:    map[string]any{"source": params.Source},
	}); err != nil {
		return domain.Lead{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListFilter narrows ListLeads.
type ListFilter struct {
	Status     *domain.Status
	AssignedTo *uuid.UUID
	Source     string
	Search     string
	// Archived selects archived leads instead of the active pool.
	Archived bool
	Limit    int
	Offset   int
}

// ListLeads returns a page of leads, newest first, and the total match count.
func (r *Repository) ListLeads(ctx context.Context, filter ListFilter) ([]domain.Lead, int, error) {
	where := make([]string, 0, 5)
	args := make([]any, 0, 7)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.Archived {
		where = append(where, "archived_at IS NOT NULL")
	} else {
		where = append(where, "archived_at IS NULL")
	}
	if filter.Status != nil {
		add("lead_status = $%d", string(*filter.Status))
	}
	if filter.AssignedTo != nil {
		add("assigned_to = $%d", *filter.AssignedTo)
	}
	if filter.Source != "" {
		add("lower(lead_source) = lower($%d)", filter.Source)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add(`(first_name || ' ' || last_name || ' ' || array_to_string(emails, ' ') || ' ' || array_to_string(phones, ' ')) ILIKE '%%' || $%d || '%%'`, s)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		leadColumns, clause, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

// FindByEmail matches email case-insensitively against every stored address,
// archived leads included, oldest first.
func (r *Repository) FindByEmail(ctx context.Context, email string) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE EXISTS (SELECT 1 FROM unnest(emails) AS e WHERE lower(e) = lower($1))
		ORDER BY created_at ASC, id ASC
	`, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// ListStaging returns every non-archived staging lead.
func (r *Repository) ListStaging(ctx context.Context) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lead_status = $1 AND archived_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, string(domain.StatusStaging))
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// DeleteLead removes a lead; activities, follow-ups and notes cascade.
func (r *Repository) DeleteLead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStagingLead removes a lead only while it is still an unarchived
// staging lead. deleted is false when the lead moved on or is gone.
func (r *Repository) DeleteStagingLead(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM leads
		WHERE id = $1 AND lead_status = $2 AND archived_at IS NULL
	`, id, string(domain.StatusStaging))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetArchived flips the visibility flag. Calling it with the current state
// returns the lead unchanged.
func (r *Repository) SetArchived(ctx context.Context, id uuid.UUID, archived bool, actorID *uuid.UUID) (domain.Lead, error) {
	var row pgx.Row
	if archived {
		row = r.pool.QueryRow(ctx, `
			UPDATE leads
			SET archived_at = COALESCE(archived_at, now()),
				archived_by = CASE WHEN archived_at IS NULL THEN $2 ELSE archived_by END,
				updated_at = CASE WHEN archived_at IS NULL THEN now() ELSE updated_at END
			WHERE id = $1
			RETURNING `+leadColumns, id, actorID)
	} else {
		row = r.pool.QueryRow(ctx, `
			UPDATE leads
			SET archived_at = NULL,
				archived_by = NULL,
				updated_at = CASE WHEN archived_at IS NULL THEN updated_at ELSE now() END
			WHERE id = $1
			RETURNING `+leadColumns, id)
	}

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
