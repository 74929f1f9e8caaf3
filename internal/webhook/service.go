package webhook

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// CandidateProcessor is the slice of the intake pipeline the webhook needs.
type CandidateProcessor interface {
	ProcessCandidate(ctx context.Context, cand extractor.Candidate, channel string) (intake.Result, error)
}

// KeyStore persists API keys.
type KeyStore interface {
	KeyLookup
	Create(ctx context.Context, p CreateKeyParams) (APIKey, error)
	List(ctx context.Context) ([]APIKey, error)
	Revoke(ctx context.Context, keyID uuid.UUID) error
}

// ItemResult is the outcome for one payload item.
type ItemResult struct {
	Index int    `json:"index"`
	Error string `json:"error,omitempty"`
	*intake.Result
}

// Summary counts outcomes across a delivery.
type Summary struct {
	Received int                    `json:"received"`
	Failed   int                    `json:"failed"`
	Outcomes map[intake.Outcome]int `json:"outcomes"`
	Items    []ItemResult           `json:"items"`
}

type Service struct {
	keys     KeyStore
	pipeline CandidateProcessor
	log      *logger.Logger
}

func NewService(keys KeyStore, pipeline CandidateProcessor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{keys: keys, pipeline: pipeline, log: log}
}

// Ingest parses body and runs every item through the pipeline. One item's
// failure never stops the rest.
func (s *Service) Ingest(ctx context.Context, key APIKey, body []byte) (Summary, error) {
	candidates, err := ParsePayload(body)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindBadRequest, err.Error(), err)
	}

	summary := Summary{
		Received: len(candidates),
		Outcomes: make(map[intake.Outcome]int),
		Items:    make([]ItemResult, len(candidates)),
	}
	for i, cand := range candidates {
		if cand.Source == "" {
			cand.Source = key.DefaultSource
		}
		res, err := s.pipeline.ProcessCandidate(ctx, cand, intake.ChannelWebhook)
		item := ItemResult{Index: i}
		if err != nil {
			summary.Failed++
			item.Error = "processing failed"
			s.log.WithContext(ctx).Error("webhook item failed", "keyId", key.ID, "index", i, "error", err)
		} else {
			summary.Outcomes[res.Outcome]++
			item.Result = &res
		}
		summary.Items[i] = item
	}
	return summary, nil
}

// CreatedKey carries the plaintext key, shown once.
type CreatedKey struct {
	APIKey
	Plaintext string
}

func (s *Service) CreateKey(ctx context.Context, name, defaultSource string, domains []string, createdBy *uuid.UUID) (CreatedKey, error) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		return CreatedKey{}, apperr.Wrap(apperr.KindInternal, "failed to generate API key", err)
	}
	if strings.TrimSpace(defaultSource) == "" {
		defaultSource = intake.ChannelWebhook
	}
	key, err := s.keys.Create(ctx, CreateKeyParams{
		Name:           strings.TrimSpace(name),
		KeyHash:        hash,
		KeyPrefix:      prefix,
		DefaultSource:  strings.TrimSpace(defaultSource),
		AllowedDomains: cleanDomains(domains),
		CreatedBy:      createdBy,
	})
	if err != nil {
		return CreatedKey{}, apperr.Wrap(apperr.KindInternal, "failed to store API key", err)
	}
	s.log.Info("webhook API key created", "keyId", key.ID, "prefix", key.KeyPrefix)
	return CreatedKey{APIKey: key, Plaintext: plaintext}, nil
}

func (s *Service) ListKeys(ctx context.Context) ([]APIKey, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list API keys", err)
	}
	return keys, nil
}

func (s *Service) RevokeKey(ctx context.Context, id uuid.UUID) error {
	err := s.keys.Revoke(ctx, id)
	if errors.Is(err, ErrAPIKeyNotFound) {
		return apperr.NotFound("API key not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to revoke API key", err)
	}
	s.log.Info("webhook API key revoked", "keyId", id)
	return nil
}

func cleanDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
