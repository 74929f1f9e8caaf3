package leadsources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
)

var (
	ErrNotFound  = errors.New("lead source not found")
	ErrNameTaken = errors.New("lead source name already exists")
)

// LeadSource is a stored classifier registration.
type LeadSource struct {
	ID uuid.UUID
	classifier.Registration
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sourceColumns = `id, name, email_patterns, domain_patterns, keywords, is_active, created_at, updated_at`

func scanSource(row pgx.Row) (LeadSource, error) {
	var s LeadSource
	err := row.Scan(&s.ID, &s.Name, &s.EmailPatterns, &s.DomainPatterns, &s.Keywords, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]LeadSource, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sourceColumns+`
		FROM lead_sources
		WHERE NOT $1 OR is_active
		ORDER BY created_at ASC, name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]LeadSource, 0)
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListActive returns active registrations in classifier priority order.
func (r *Repository) ListActive(ctx context.Context) ([]classifier.Registration, error) {
	sources, err := r.List(ctx, true)
	if err != nil {
		return nil, err
	}
	regs := make([]classifier.Registration, len(sources))
	for i, s := range sources {
		regs[i] = s.Registration
	}
	return regs, nil
}

func (r *Repository) Create(ctx context.Context, reg classifier.Registration) (LeadSource, error) {
	s, err := scanSource(r.pool.QueryRow(ctx, `
		INSERT INTO lead_sources (name, email_patterns, domain_patterns, keywords)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sourceColumns,
		strings.TrimSpace(reg.Name), nonNil(reg.EmailPatterns), nonNil(reg.DomainPatterns), nonNil(reg.Keywords),
	))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return LeadSource{}, ErrNameTaken
	}
	return s, err
}

// Upsert creates or replaces a registration by case-insensitive name.
func (r *Repository) Upsert(ctx context.Context, reg classifier.Registration) (LeadSource, error) {
	return scanSource(r.pool.QueryRow(ctx, `
		INSERT INTO lead_sources (name, email_patterns, domain_patterns, keywords)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ((lower(name))) DO UPDATE
		SET email_patterns = EXCLUDED.email_patterns,
			domain_patterns = EXCLUDED.domain_patterns,
			keywords = EXCLUDED.keywords,
			updated_at = now()
		RETURNING `+sourceColumns,
		strings.TrimSpace(reg.Name), nonNil(reg.EmailPatterns), nonNil(reg.DomainPatterns), nonNil(reg.Keywords),
	))
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (LeadSource, error) {
	s, err := scanSource(r.pool.QueryRow(ctx, `
		UPDATE lead_sources SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+sourceColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadSource{}, ErrNotFound
	}
	return s, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lead_sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
