// Package agents manages the people leads are distributed to.
package agents

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, name, email, role string) (domain.Agent, error)
	GetAgent(ctx context.Context, id uuid.UUID) (domain.Agent, error)
	List(ctx context.Context, includeInactive bool) ([]domain.Agent, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.Agent, error)
}

type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) Create(ctx context.Context, name, email, role string) (domain.Agent, error) {
	if role == "" {
		role = "agent"
	}
	a, err := s.store.Create(ctx, name, email, role)
	if errors.Is(err, ErrEmailTaken) {
		return domain.Agent{}, apperr.Conflict("an agent with this email already exists")
	}
	if err != nil {
		return domain.Agent{}, err
	}
	s.log.Info("agent created", "agentId", a.ID, "role", a.Role)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Agent, error) {
	a, err := s.store.GetAgent(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.Agent{}, apperr.NotFound("agent not found")
	}
	return a, err
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]domain.Agent, error) {
	return s.store.List(ctx, includeInactive)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.Agent, error) {
	a, err := s.store.SetActive(ctx, id, active)
	if errors.Is(err, ErrNotFound) {
		return domain.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return domain.Agent{}, err
	}
	s.log.Info("agent availability changed", "agentId", a.ID, "active", a.IsActive)
	return a, nil
}
