// Package notification sends emails in response to marketplace events.
// Domain modules publish events and never talk to the mail provider directly.
package notification

import (
	"context"

	"leadmarket_backend/internal/email"
	"leadmarket_backend/internal/events"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// VendorDirectory resolves vendor contact addresses.
type VendorDirectory interface {
	ContactEmail(ctx context.Context, vendorID uuid.UUID) (string, error)
}

// Module handles notification side effects of domain events.
type Module struct {
	sender  email.Sender
	vendors VendorDirectory
	cfg     config.EmailConfig
	log     *logger.Logger
}

// New creates a notification module.
func New(sender email.Sender, vendors VendorDirectory, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, vendors: vendors, cfg: cfg, log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadPurchaseCompleted{}.EventName(), m)
	bus.Subscribe(events.LeadPurchaseOverCap{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.LeadPurchaseCompleted:
		return m.handlePurchaseCompleted(ctx, e)
	case events.LeadPurchaseOverCap:
		return m.handleOverCap(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	if e.VendorID == nil {
		return nil
	}
	to, err := m.vendors.ContactEmail(ctx, *e.VendorID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			m.log.WithContext(ctx).Warn("matched vendor no longer exists", "leadId", e.LeadID, "vendorId", *e.VendorID)
			return nil
		}
		return err
	}
	if to == "" {
		return nil
	}
	if err := m.sender.SendNewLeadEmail(ctx, to, email.NewLead{
		LeadID:    e.LeadID,
		JobType:   e.JobType,
		LeadTier:  e.LeadTier,
		LeadPrice: e.LeadPrice,
		QuoteLow:  e.QuoteLow,
		QuoteHigh: e.QuoteHigh,
	}); err != nil {
		m.log.WithContext(ctx).Error("failed to send new lead email", "leadId", e.LeadID, "error", err)
		return err
	}
	return nil
}

func (m *Module) handlePurchaseCompleted(ctx context.Context, e events.LeadPurchaseCompleted) error {
	if e.VendorEmail == "" {
		return nil
	}
	if err := m.sender.SendPurchaseReceiptEmail(ctx, e.VendorEmail, email.PurchaseReceipt{
		PurchaseID: e.PurchaseID,
		LeadID:     e.LeadID,
		PricePaid:  e.PricePaid,
	}); err != nil {
		m.log.WithContext(ctx).Error("failed to send purchase receipt", "purchaseId", e.PurchaseID, "error", err)
		return err
	}
	return nil
}

func (m *Module) handleOverCap(ctx context.Context, e events.LeadPurchaseOverCap) error {
	to := m.cfg.GetOpsAlertEmail()
	if to == "" {
		m.log.WithContext(ctx).Error("oversold checkout needs refund but no ops alert address is configured",
			"purchaseId", e.PurchaseID, "leadId", e.LeadID, "sessionId", e.CheckoutSessionID)
		return nil
	}
	if err := m.sender.SendOverCapAlertEmail(ctx, to, email.OverCapAlert{
		PurchaseID:        e.PurchaseID,
		LeadID:            e.LeadID,
		VendorID:          e.VendorID,
		CheckoutSessionID: e.CheckoutSessionID,
		PricePaid:         e.PricePaid,
	}); err != nil {
		m.log.WithContext(ctx).Error("failed to send over-cap alert", "purchaseId", e.PurchaseID, "error", err)
		return err
	}
	return nil
}
