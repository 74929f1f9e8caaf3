// Package dedup finds existing leads that match an inbound candidate and
// groups duplicate staging leads for cleanup.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

// Store is the persistence the engine needs.
type Store interface {
	// FindByEmail returns leads holding email, compared case-insensitively,
	// oldest first.
	FindByEmail(ctx context.Context, email string) ([]domain.Lead, error)
	// ListStaging returns every non-archived lead in staging.
	ListStaging(ctx context.Context) ([]domain.Lead, error)
	// DeleteStagingLead deletes id only if it is still an unarchived staging
	// lead and reports whether a row was removed.
	DeleteStagingLead(ctx context.Context, id uuid.UUID) (bool, error)
}

// Match is an existing lead found by a point lookup.
type Match struct {
	LeadID     uuid.UUID  `json:"leadId"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	// Visible is false when the lookup was scoped to an agent who does not
	// own the match.
	Visible bool `json:"visible"`
}

// Identity is the tuple batch grouping compares.
type Identity struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Source   string `json:"source"`
}

// LeadRef summarizes a lead inside a report.
type LeadRef struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// DuplicateSet is one identity shared by several staging leads.
type DuplicateSet struct {
	Identity Identity  `json:"identity"`
	Keep     LeadRef   `json:"keep"`
	Remove   []LeadRef `json:"remove"`
}

// Report is the result of a batch preview.
type Report struct {
	Scanned     int            `json:"scanned"`
	Sets        []DuplicateSet `json:"sets"`
	RemoveCount int            `json:"removeCount"`
	Fingerprint string         `json:"fingerprint"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// ItemResult is the outcome of deleting one marked lead.
type ItemResult struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
	Skipped bool      `json:"skipped,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// CommitResult is the outcome of applying a previewed report.
type CommitResult struct {
	Deleted int          `json:"deleted"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
	Items   []ItemResult `json:"items"`
}

// Engine runs point lookups and batch grouping.
type Engine struct {
	store   Store
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates an Engine. m may be nil.
func New(store Store, log *logger.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{store: store, log: log, metrics: m, now: time.Now}
}

// FindByEmail looks up an existing lead by email, case-insensitively.
// When viewer is set, Visible reports whether that agent owns the match.
// Store failures are logged and reported as no match so intake keeps going.
func (e *Engine) FindByEmail(ctx context.Context, email string, viewer *uuid.UUID) (Match, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Match{}, false
	}

	leads, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		e.log.WithContext(ctx).Warn("dedup lookup failed, treating as no match", "error", err)
		return Match{}, false
	}
	if len(leads) == 0 {
		return Match{}, false
	}

	l := leads[0]
	return Match{
		LeadID:     l.ID,
		AssignedTo: l.AssignedTo,
		Visible:    viewer == nil || l.IsAssignedTo(*viewer),
	}, true
}

// FindAny runs FindByEmail for each address in order and returns the first hit.
func (e *Engine) FindAny(ctx context.Context, emails []string, viewer *uuid.UUID) (Match, bool) {
	for _, email := range emails {
		if m, ok := e.FindByEmail(ctx, email, viewer); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Preview groups the current staging leads without changing anything.
func (e *Engine) Preview(ctx context.Context) (Report, error) {
	leads, err := e.store.ListStaging(ctx)
	if err != nil {
		return Report{}, apperr.Wrap(apperr.KindInternal, "failed to load staging leads", err)
	}

	sets := Group(leads)
	remove := 0
	for _, s := range sets {
		remove += len(s.Remove)
	}
	return Report{
		Scanned:     len(leads),
		Sets:        sets,
		RemoveCount: remove,
		Fingerprint: Fingerprint(sets),
		GeneratedAt: e.now().UTC(),
	}, nil
}

// Commit deletes the leads a preview marked, provided the staging pool
// still groups to the same fingerprint. A stale fingerprint deletes nothing.
func (e *Engine) Commit(ctx context.Context, fingerprint string) (CommitResult, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return CommitResult{}, apperr.Validation("fingerprint is required; run a preview first")
	}

	current, err := e.Preview(ctx)
	if err != nil {
		return CommitResult{}, err
	}
	if current.Fingerprint != fingerprint {
		return CommitResult{}, apperr.Conflict("staging leads changed since the preview; preview again").
			WithDetails(map[string]string{"fingerprint": current.Fingerprint})
	}

	result := CommitResult{Items: make([]ItemResult, 0, current.RemoveCount)}
	for _, set := range current.Sets {
		for _, ref := range set.Remove {
			item := ItemResult{ID: ref.ID}
			deleted, err := e.store.DeleteStagingLead(ctx, ref.ID)
			switch {
			case err != nil:
				item.Error = err.Error()
				result.Failed++
				e.log.WithContext(ctx).Error("failed to delete duplicate lead", "leadId", ref.ID, "error", err)
			case !deleted:
				item.Skipped = true
				result.Skipped++
				e.log.WithContext(ctx).Warn("duplicate lead left staging before commit", "leadId", ref.ID)
			default:
				item.Deleted = true
				result.Deleted++
			}
			result.Items = append(result.Items, item)
		}
	}

	e.metrics.DuplicatesDeleted(result.Deleted)
	e.log.WithContext(ctx).Info("duplicate staging leads removed", "deleted", result.Deleted, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

// IdentityOf builds the grouping tuple for a lead.
func IdentityOf(l domain.Lead) Identity {
	lower := cases.Lower(language.Und)
	return Identity{
		FullName: lower.String(strings.Join(strings.Fields(l.FullName()), " ")),
		Email:    lower.String(strings.TrimSpace(l.FirstEmail())),
		Phone:    strings.TrimSpace(l.FirstPhone()),
		Source:   l.Source,
	}
}

// Group partitions leads by identity. Every group with more than one lead
// becomes a set that keeps the earliest created lead (smallest id on ties).
// Sets are ordered by the kept lead, so output is deterministic.
func Group(leads []domain.Lead) []DuplicateSet {
	groups := make(map[Identity][]domain.Lead)
	for _, l := range leads {
		key := IdentityOf(l)
		groups[key] = append(groups[key], l)
	}

	sets := make([]DuplicateSet, 0)
	for key, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return older(members[i], members[j]) })

		set := DuplicateSet{Identity: key, Keep: refOf(members[0])}
		for _, m := range members[1:] {
			set.Remove = append(set.Remove, refOf(m))
		}
		sets = append(sets, set)
	}

	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i].Keep, sets[j].Keep
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return sets
}

func older(a, b domain.Lead) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func refOf(l domain.Lead) LeadRef {
	return LeadRef{
		ID:        l.ID,
		FullName:  l.FullName(),
		Email:     l.FirstEmail(),
		Phone:     l.FirstPhone(),
		Source:    l.Source,
		CreatedAt: l.CreatedAt,
	}
}

// Fingerprint hashes the removal plan. Two previews share a fingerprint
// exactly when they would keep and remove the same leads.
func Fingerprint(sets []DuplicateSet) string {
	h := sha256.New()
	for _, s := range sets {
		h.Write([]byte("k:" + s.Keep.ID.String()))
		for _, r := range s.Remove {
			h.Write([]byte("|r:" + r.ID.String()))
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}
