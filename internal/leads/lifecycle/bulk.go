package lifecycle

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
)

// bulkConcurrency bounds in-flight items per bulk request.
const bulkConcurrency = 8

// MaxBulkItems caps one bulk request.
const MaxBulkItems = 500

// BulkResult is the outcome for one lead in a bulk request.
type BulkResult struct {
	ID      uuid.UUID  `json:"id"`
	OK      bool       `json:"ok"`
	AgentID *uuid.UUID `json:"agentId,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// BulkSummary keeps results in request order.
type BulkSummary struct {
	Results   []BulkResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// BulkAssign assigns each lead, to agentID when set or by rotation otherwise.
func (s *Service) BulkAssign(ctx context.Context, ids []uuid.UUID, agentID *uuid.UUID, actor Actor) (BulkSummary, error) {
	return s.fanOut(ctx, ids, actor, func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
		res, err := s.Assign(ctx, AssignInput{LeadID: id, AgentID: agentID, Actor: actor})
		if err != nil {
			return nil, err
		}
		assigned := res.Agent.ID
		return &assigned, nil
	})
}

func (s *Service) BulkArchive(ctx context.Context, ids []uuid.UUID, actor Actor) (BulkSummary, error) {
	return s.fanOut(ctx, ids, actor, func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
		_, err := s.Archive(ctx, id, actor)
		return nil, err
	})
}

func (s *Service) BulkRestore(ctx context.Context, ids []uuid.UUID, actor Actor) (BulkSummary, error) {
	return s.fanOut(ctx, ids, actor, func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
		_, err := s.Restore(ctx, id, actor)
		return nil, err
	})
}

func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID, actor Actor) (BulkSummary, error) {
	return s.fanOut(ctx, ids, actor, func(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
		return nil, s.Delete(ctx, id, actor)
	})
}

// fanOut runs fn per unique id with bounded concurrency. A failing item never
// stops the others.
func (s *Service) fanOut(ctx context.Context, ids []uuid.UUID, actor Actor, fn func(context.Context, uuid.UUID) (*uuid.UUID, error)) (BulkSummary, error) {
	if !actor.privileged() {
		return BulkSummary{}, apperr.Forbidden("bulk actions require an admin")
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return BulkSummary{}, apperr.Validation("no lead ids given")
	}
	if len(ids) > MaxBulkItems {
		return BulkSummary{}, apperr.Validation("too many lead ids in one request")
	}

	results := make([]BulkResult, len(ids))
	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			agentID, err := fn(ctx, id)
			results[i] = BulkResult{ID: id, OK: err == nil, AgentID: agentID}
			if err != nil {
				results[i].Error = s.itemError(ctx, id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := BulkSummary{Results: results}
	for _, r := range results {
		if r.OK {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary, nil
}

func (s *Service) itemError(ctx context.Context, id uuid.UUID, err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	s.log.WithContext(ctx).Error("bulk item failed", "leadId", id, "error", err)
	return "internal error"
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
