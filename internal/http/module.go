// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules implement for route registration.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/phillipshepard1/internal-re-crm-sub000/platform/config"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes using the shared RouterContext.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the JWT-authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the admin-only group under /api/v1/admin.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for auth middleware.
	Config config.JWTConfig
	// AuthMiddleware provides the authentication middleware.
	AuthMiddleware gin.HandlerFunc
	// WebhookRateLimiter throttles unauthenticated inbound webhook traffic.
	WebhookRateLimiter *httpkit.IPRateLimiter
}
