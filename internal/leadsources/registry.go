// Package leadsources stores lead source registrations and keeps the live
// classifier in sync with them.
package leadsources

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Source lists the registrations the classifier should use.
type Source interface {
	ListActive(ctx context.Context) ([]classifier.Registration, error)
}

// Registry serves classification from the latest loaded registrations.
// Reload swaps the classifier atomically; readers never block.
type Registry struct {
	source  Source
	log     *logger.Logger
	current atomic.Pointer[classifier.Classifier]
}

// NewRegistry starts with an empty classifier, which falls back to the
// keyword heuristics until Reload succeeds.
func NewRegistry(source Source, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Discard()
	}
	r := &Registry{source: source, log: log}
	r.current.Store(classifier.New(nil))
	return r
}

func (r *Registry) Classify(from, subject, body string) string {
	return r.current.Load().Classify(from, subject, body)
}

func (r *Registry) Registrations() []classifier.Registration {
	return r.current.Load().Registrations()
}

// Reload reads active registrations from the source. On failure the
// previous classifier stays in place.
func (r *Registry) Reload(ctx context.Context) error {
	regs, err := r.source.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load lead sources: %w", err)
	}
	r.current.Store(classifier.New(regs))
	r.log.Info("lead sources loaded", "count", len(regs))
	return nil
}

// seedFile is the YAML layout of a lead source seed file.
type seedFile struct {
	Sources []classifier.Registration `yaml:"sources"`
}

// LoadSeedFile parses registrations from a YAML file.
func LoadSeedFile(path string) ([]classifier.Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

// ParseSeed parses YAML seed data and rejects entries without a name.
func ParseSeed(data []byte) ([]classifier.Registration, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lead sources: %w", err)
	}
	for i, reg := range f.Sources {
		if reg.Name == "" {
			return nil, fmt.Errorf("lead source %d has no name", i)
		}
	}
	return f.Sources, nil
}
