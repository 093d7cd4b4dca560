// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadmarket_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a customer job request has been priced and stored.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID       `json:"leadId"`
	JobType     string          `json:"jobType"`
	LeadTier    string          `json:"leadTier"`
	LeadPrice   decimal.Decimal `json:"leadPrice"`
	QuoteLow    decimal.Decimal `json:"quoteLow"`
	QuoteHigh   decimal.Decimal `json:"quoteHigh"`
	QuoteSource string          `json:"quoteSource"`
	VendorID    *uuid.UUID      `json:"vendorId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// =============================================================================
// Allocation Domain Events
// =============================================================================

// LeadPurchasePending is published after a hosted checkout was opened for a lead.
type LeadPurchasePending struct {
	BaseEvent
	PurchaseID        uuid.UUID       `json:"purchaseId"`
	LeadID            uuid.UUID       `json:"leadId"`
	VendorID          uuid.UUID       `json:"vendorId"`
	PricePaid         decimal.Decimal `json:"pricePaid"`
	CheckoutSessionID string          `json:"checkoutSessionId"`
}

func (e LeadPurchasePending) EventName() string { return "allocation.purchase.pending" }

// LeadPurchaseCompleted is published once a purchase has consumed lead inventory.
type LeadPurchaseCompleted struct {
	BaseEvent
	PurchaseID   uuid.UUID       `json:"purchaseId"`
	LeadID       uuid.UUID       `json:"leadId"`
	VendorID     uuid.UUID       `json:"vendorId"`
	VendorEmail  string          `json:"vendorEmail"`
	PricePaid    decimal.Decimal `json:"pricePaid"`
	NewSoldCount int             `json:"newSoldCount"`
	MaxSales     int             `json:"maxSales"`
}

func (e LeadPurchaseCompleted) EventName() string { return "allocation.purchase.completed" }

// LeadPurchaseExpired is published when an abandoned checkout releases its reservation slot.
type LeadPurchaseExpired struct {
	BaseEvent
	PurchaseID uuid.UUID `json:"purchaseId"`
	LeadID     uuid.UUID `json:"leadId"`
	VendorID   uuid.UUID `json:"vendorId"`
}

func (e LeadPurchaseExpired) EventName() string { return "allocation.purchase.expired" }

// LeadPurchaseOverCap is published when a paid checkout completes after the lead
// already reached max_sales. The payment needs a manual refund.
type LeadPurchaseOverCap struct {
	BaseEvent
	PurchaseID        uuid.UUID       `json:"purchaseId"`
	LeadID            uuid.UUID       `json:"leadId"`
	VendorID          uuid.UUID       `json:"vendorId"`
	PricePaid         decimal.Decimal `json:"pricePaid"`
	CheckoutSessionID string          `json:"checkoutSessionId"`
}

func (e LeadPurchaseOverCap) EventName() string { return "allocation.purchase.over_cap" }

// LeadOutcomeReported is published when a vendor reports how a purchased lead ended.
type LeadOutcomeReported struct {
	BaseEvent
	PurchaseID uuid.UUID `json:"purchaseId"`
	LeadID     uuid.UUID `json:"leadId"`
	VendorID   uuid.UUID `json:"vendorId"`
	Outcome    string    `json:"outcome"`
}

func (e LeadOutcomeReported) EventName() string { return "allocation.purchase.outcome_reported" }
