// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared route groups and middleware to modules.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Public is /api/v1/public: anonymous and IP rate-limited.
	Public *gin.RouterGroup
	// Protected is the JWT-authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Webhooks is /api/v1/webhooks: anonymous, callers verify signatures.
	Webhooks *gin.RouterGroup
	// Config is the JWT configuration for auth middleware (scoped access).
	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
	// UserRateLimiter throttles authenticated callers on sensitive routes.
	UserRateLimiter *httpkit.UserRateLimiter
}
