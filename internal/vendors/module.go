// Package vendors provides the vendor accounts bounded context module.
package vendors

import (
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/vendors/handler"
	"leadmarket_backend/internal/vendors/repository"
	"leadmarket_backend/internal/vendors/service"
	"leadmarket_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the vendors bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	matcher *service.Matcher
	handler *handler.Handler
}

// NewModule creates the vendors module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		service: svc,
		matcher: service.NewMatcher(repo),
		handler: handler.New(svc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "vendors"
}

// Service returns the vendor account service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Matcher returns the lead-to-vendor matcher.
func (m *Module) Matcher() *service.Matcher {
	return m.matcher
}

// RegisterRoutes mounts /api/v1/vendor routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/vendor"))
}

var _ apphttp.Module = (*Module)(nil)
