package webhook

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/phillipshepard1/internal-re-crm-sub000/internal/http"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

func NewModule(pool *pgxpool.Pool, pipeline CandidateProcessor, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler: NewHandler(NewService(repo, pipeline, log.WithComponent("webhook"))),
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "webhook"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// API key auth, no JWT.
	webhookGroup := ctx.V1.Group("/webhook")
	if ctx.WebhookRateLimiter != nil {
		webhookGroup.Use(ctx.WebhookRateLimiter.RateLimit())
	}
	webhookGroup.Use(APIKeyAuthMiddleware(m.repo))
	webhookGroup.POST("/leads", m.handler.HandleLeads)

	adminGroup := ctx.Admin.Group("/webhook/keys")
	adminGroup.POST("", m.handler.HandleCreateAPIKey)
	adminGroup.GET("", m.handler.HandleListAPIKeys)
	adminGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}

var _ apphttp.Module = (*Module)(nil)
