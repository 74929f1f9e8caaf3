package http

import (
	"context"
	"net/http"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/events"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/logger"
)

// RouterConfig combines the config interfaces needed by the HTTP router.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// It is populated by main.go (the composition root) and passed to the router.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is used for readiness checks (DB ping).
	Health   HealthChecker
	EventBus events.Bus
	// Metrics serves the Prometheus registry; nil disables /metrics.
	Metrics http.Handler
	Modules []Module
}
