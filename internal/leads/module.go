// Package leads provides the lead intake and marketplace listing bounded context module.
package leads

import (
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/leads/handler"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/service"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// Dependencies are the collaborators owned by other modules.
type Dependencies struct {
	Quoter          service.Quoter
	Pricer          service.LeadPricer
	Matcher         service.VendorMatcher
	Vendors         service.ApprovedVendorGuard
	EventBus        events.Bus
	DefaultMaxSales int
}

// NewModule creates the leads module.
func NewModule(pool *pgxpool.Pool, deps Dependencies, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), deps.Quoter, deps.Pricer, deps.Matcher, deps.Vendors, deps.EventBus, deps.DefaultMaxSales, log)
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts /api/v1/public/leads and /api/v1/leads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public.Group("/leads"))
	m.handler.RegisterVendorRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
