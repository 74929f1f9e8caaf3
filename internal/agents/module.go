package agents

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Module is the agents bounded context implementing http.Module.
type Module struct {
	repo    *Repository
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		repo:    repo,
		handler: NewHandler(NewService(repo, log.WithComponent("agents"))),
	}
}

// Repository exposes the store so the distributor and lifecycle can share it.
func (m *Module) Repository() *Repository {
	return m.repo
}

func (m *Module) Name() string {
	return "agents"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/agents/me", m.handler.Me)

	admin := ctx.Admin.Group("/agents")
	admin.GET("", m.handler.List)
	admin.POST("", m.handler.Create)
	admin.PATCH("/:id/active", m.handler.SetActive)
}

var _ apphttp.Module = (*Module)(nil)
