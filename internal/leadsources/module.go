package leadsources

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Module is the lead sources bounded context implementing http.Module.
type Module struct {
	registry *Registry
	service  *Service
	handler  *Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	log = log.WithComponent("leadsources")
	repo := NewRepository(pool)
	registry := NewRegistry(repo, log)
	svc := NewService(repo, registry, log)
	return &Module{registry: registry, service: svc, handler: NewHandler(svc)}
}

// Start seeds from seedPath when set, then loads the classifier.
func (m *Module) Start(ctx context.Context, seedPath string) error {
	if seedPath != "" {
		regs, err := LoadSeedFile(seedPath)
		if err != nil {
			return err
		}
		return m.service.Seed(ctx, regs)
	}
	return m.registry.Reload(ctx)
}

// Registry is the live classifier for the intake pipeline.
func (m *Module) Registry() *Registry {
	return m.registry
}

func (m *Module) Name() string {
	return "leadsources"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Admin.Group("/lead-sources")
	g.GET("", m.handler.List)
	g.POST("", m.handler.Create)
	g.POST("/classify", m.handler.Classify)
	g.PATCH("/:id/active", m.handler.SetActive)
	g.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
