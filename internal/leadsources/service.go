package leadsources

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Store is the persistence the service needs.
type Store interface {
	Source
	List(ctx context.Context, activeOnly bool) ([]LeadSource, error)
	Create(ctx context.Context, reg classifier.Registration) (LeadSource, error)
	Upsert(ctx context.Context, reg classifier.Registration) (LeadSource, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (LeadSource, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	store    Store
	registry *Registry
	log      *logger.Logger
}

func NewService(store Store, registry *Registry, log *logger.Logger) *Service {
	return &Service{store: store, registry: registry, log: log}
}

// Seed upserts regs and reloads the classifier.
func (s *Service) Seed(ctx context.Context, regs []classifier.Registration) error {
	for _, reg := range regs {
		if err := validateRegistration(reg); err != nil {
			return err
		}
		if _, err := s.store.Upsert(ctx, reg); err != nil {
			return err
		}
	}
	s.log.Info("lead sources seeded", "count", len(regs))
	return s.registry.Reload(ctx)
}

func (s *Service) List(ctx context.Context) ([]LeadSource, error) {
	return s.store.List(ctx, false)
}

func (s *Service) Create(ctx context.Context, reg classifier.Registration) (LeadSource, error) {
	if err := validateRegistration(reg); err != nil {
		return LeadSource{}, err
	}
	src, err := s.store.Create(ctx, reg)
	if errors.Is(err, ErrNameTaken) {
		return LeadSource{}, apperr.Conflict("a lead source with this name already exists")
	}
	if err != nil {
		return LeadSource{}, err
	}
	s.reload(ctx)
	return src, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (LeadSource, error) {
	src, err := s.store.SetActive(ctx, id, active)
	if errors.Is(err, ErrNotFound) {
		return LeadSource{}, apperr.NotFound("lead source not found")
	}
	if err != nil {
		return LeadSource{}, err
	}
	s.reload(ctx)
	return src, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("lead source not found")
	}
	if err != nil {
		return err
	}
	s.reload(ctx)
	return nil
}

// Classify runs the live classifier, for previews.
func (s *Service) Classify(from, subject, body string) string {
	return s.registry.Classify(from, subject, body)
}

func (s *Service) reload(ctx context.Context) {
	if err := s.registry.Reload(ctx); err != nil {
		s.log.WithContext(ctx).Error("lead source reload failed", "error", err)
	}
}

func validateRegistration(reg classifier.Registration) error {
	if strings.TrimSpace(reg.Name) == "" {
		return apperr.Validation("lead source name is required")
	}
	for _, p := range append(append([]string{}, reg.EmailPatterns...), reg.DomainPatterns...) {
		if strings.TrimSpace(p) == "" {
			return apperr.Validation("patterns must not be empty")
		}
		if strings.Count(p, "*") > 1 {
			return apperr.Validation("pattern " + p + " has more than one wildcard")
		}
	}
	return nil
}
