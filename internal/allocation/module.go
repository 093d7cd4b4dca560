// Package allocation provides the lead purchase bounded context module.
package allocation

import (
	"leadmarket_backend/internal/allocation/handler"
	"leadmarket_backend/internal/allocation/payment"
	"leadmarket_backend/internal/allocation/repository"
	"leadmarket_backend/internal/allocation/service"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the allocation bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates the allocation module. Hosted checkout is enabled when the
// payment config carries a secret key.
func NewModule(pool *pgxpool.Pool, vendors service.VendorDirectory, eventBus events.Bus, paymentCfg config.PaymentConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), vendors, eventBus, log)

	var parser handler.WebhookParser
	if paymentCfg != nil && paymentCfg.IsPaymentEnabled() {
		gateway := payment.NewStripeGateway(paymentCfg)
		svc.SetPaymentGateway(gateway)
		parser = gateway
		log.Info("hosted checkout enabled for lead purchases")
	}

	return &Module{
		service: svc,
		handler: handler.New(svc, parser, val, log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "allocation"
}

// Service returns the allocation service for the scheduler and tests.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetExpiryScheduler enables delayed release of abandoned checkouts.
func (m *Module) SetExpiryScheduler(scheduler service.ExpiryScheduler) {
	m.service.SetExpiryScheduler(scheduler)
}

// RegisterRoutes mounts the purchase, vendor purchase and webhook routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPurchaseRoutes(ctx.Protected, ctx.UserRateLimiter.RateLimit())
	m.handler.RegisterVendorRoutes(ctx.Protected.Group("/vendor"))
	m.handler.RegisterWebhookRoutes(ctx.Webhooks)
}

var _ apphttp.Module = (*Module)(nil)
