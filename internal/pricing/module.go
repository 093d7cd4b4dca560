// Package pricing provides the quote pricing bounded context module.
package pricing

import (
	"time"

	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/pricing/handler"
	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/internal/pricing/service"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the rule store, calculator and public estimate endpoint.
type Module struct {
	store      *service.Store
	calculator *service.Calculator
	pricer     *service.LeadPricer
	handler    *handler.Handler
}

// NewModule creates the pricing module. The distance resolver is shared with
// other modules and constructed by the caller.
func NewModule(pool *pgxpool.Pool, distances service.DistanceResolver, ruleTTL time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	store := service.NewStore(repository.New(pool), ruleTTL, nil, log)
	calculator := service.NewCalculator(store, distances, log)

	return &Module{
		store:      store,
		calculator: calculator,
		pricer:     service.NewLeadPricer(store),
		handler:    handler.New(calculator, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pricing"
}

// Calculator returns the quote calculator for lead submission.
func (m *Module) Calculator() *service.Calculator {
	return m.calculator
}

// LeadPricer returns the marketplace lead pricer.
func (m *Module) LeadPricer() *service.LeadPricer {
	return m.pricer
}

// RuleStore returns the cached rule store.
func (m *Module) RuleStore() *service.Store {
	return m.store
}

// RegisterRoutes mounts the public estimate route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
}

var _ apphttp.Module = (*Module)(nil)
