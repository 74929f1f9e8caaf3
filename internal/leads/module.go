// Package leads wires the lead lifecycle into the HTTP API.
package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/events"
	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/followup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/handler"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/lifecycle"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/repository"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/metrics"
)

// AgentStore is what the leads context needs from the agents context.
type AgentStore interface {
	distribution.Store
}

// Deps are the leads module's collaborators. Locker, Reminders, Bus and
// Metrics may be nil.
type Deps struct {
	Pool      *pgxpool.Pool
	Agents    AgentStore
	Locker    distribution.Locker
	Reminders followup.ReminderScheduler
	Bus       events.Bus
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo      *repository.Repository
	dedup     *dedup.Engine
	followUps *followup.Scheduler
	lifecycle *lifecycle.Service
	handler   *handler.Handler
}

func NewModule(deps Deps) *Module {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithComponent("leads")
	repo := repository.New(deps.Pool)

	dist := distribution.New(deps.Agents, deps.Locker, log.WithComponent("distribution"))
	dedupEngine := dedup.New(repo, log.WithComponent("dedup"), deps.Metrics)
	followUps := followup.New(repo, deps.Reminders, deps.Bus, deps.Metrics, log.WithComponent("followup"))
	svc := lifecycle.New(repo, dist, deps.Agents, followUps, deps.Bus, deps.Metrics, log)

	return &Module{
		repo:      repo,
		dedup:     dedupEngine,
		followUps: followUps,
		lifecycle: svc,
		handler:   handler.New(svc, repo, dedupEngine),
	}
}

func (m *Module) Repository() *repository.Repository { return m.repo }
func (m *Module) Dedup() *dedup.Engine               { return m.dedup }
func (m *Module) Lifecycle() *lifecycle.Service      { return m.lifecycle }

// Summary implements Lookup.
func (m *Module) Summary(ctx context.Context, id uuid.UUID) (Lead, error) {
	l, err := m.repo.GetLead(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	return Lead{
		ID:         l.ID,
		FullName:   l.FullName(),
		Email:      l.FirstEmail(),
		Phone:      l.FirstPhone(),
		Source:     l.Source,
		Message:    l.Message,
		AssignedTo: l.AssignedTo,
	}, nil
}

func (m *Module) Name() string {
	return "leads"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	h := m.handler

	g := ctx.Protected.Group("/leads")
	g.GET("", h.List)
	g.POST("/duplicate-check", h.CheckDuplicate)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.PATCH("/:id/tag", h.UpdateTag)
	g.PUT("/:id/cadence", h.SetCadence)
	g.POST("/:id/archive", h.Archive)
	g.POST("/:id/restore", h.Restore)
	g.GET("/:id/notes", h.ListNotes)
	g.POST("/:id/notes", h.AddNote)
	g.GET("/:id/activities", h.ListActivities)
	g.GET("/:id/follow-ups", h.ListFollowUps)

	admin := ctx.Admin.Group("/leads")
	admin.POST("/:id/assign", h.Assign)
	admin.POST("/:id/reassign", h.Reassign)
	admin.DELETE("/:id", h.Delete)
	admin.POST("/bulk/assign", h.BulkAssign)
	admin.POST("/bulk/archive", h.BulkArchive)
	admin.POST("/bulk/restore", h.BulkRestore)
	admin.POST("/bulk/delete", h.BulkDelete)
	admin.GET("/dedup/preview", h.DedupPreview)
	admin.POST("/dedup/commit", h.DedupCommit)
}

var (
	_ apphttp.Module = (*Module)(nil)
	_ Lookup         = (*Module)(nil)
)
