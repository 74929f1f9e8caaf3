package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
)

var (
	ErrNotFound = distribution.ErrAgentNotFound
	// ErrEmailTaken is returned when another agent already uses the address.
	ErrEmailTaken = errors.New("agent email already exists")
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ distribution.Store = (*Repository)(nil)

const agentColumns = `id, name, email, role, is_active, round_robin_priority, created_at, updated_at`

func scanAgent(row pgx.Row) (domain.Agent, error) {
	var a domain.Agent
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.IsActive, &a.RoundRobinPriority, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collectAgents(rows pgx.Rows) ([]domain.Agent, error) {
	defer rows.Close()

	items := make([]domain.Agent, 0)
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// Create adds an active agent at the back of the rotation.
func (r *Repository) Create(ctx context.Context, name, email, role string) (domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `
		INSERT INTO agents (name, email, role, is_active, round_robin_priority)
		VALUES ($1, $2, $3, true,
			(SELECT COALESCE(max(round_robin_priority), 0) + 1 FROM agents WHERE is_active))
		RETURNING `+agentColumns,
		strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), role,
	))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.Agent{}, ErrEmailTaken
	}
	return a, err
}

func (r *Repository) GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agent{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) List(ctx context.Context, includeInactive bool) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE $1 OR is_active
		ORDER BY round_robin_priority ASC, id ASC
	`, includeInactive)
	if err != nil {
		return nil, err
	}
	return collectAgents(rows)
}

// ListActiveAgents returns the rotation in serving order.
func (r *Repository) ListActiveAgents(ctx context.Context) ([]domain.Agent, error) {
	return r.List(ctx, false)
}

// CompareAndSetPriority moves an agent only if nobody else moved it first.
func (r *Repository) CompareAndSetPriority(ctx context.Context, id uuid.UUID, expected, next int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET round_robin_priority = $3, updated_at = now()
		WHERE id = $1 AND round_robin_priority = $2
	`, id, expected, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetActive toggles membership in the rotation. Reactivated agents rejoin
// at the back.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.Agent, error) {
	a, err := scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents
		SET is_active = $2,
			round_robin_priority = CASE
				WHEN $2 AND NOT is_active THEN
					(SELECT COALESCE(max(round_robin_priority), 0) + 1 FROM agents WHERE is_active)
				ELSE round_robin_priority
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+agentColumns, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Agent{}, ErrNotFound
	}
	return a, err
}
