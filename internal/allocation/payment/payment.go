// Package payment opens hosted checkout sessions for lead purchases and
// verifies the provider's webhook callbacks.
package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerParams identifies the vendor a payment customer is created for.
type CustomerParams struct {
	VendorID    uuid.UUID
	Email       string
	CompanyName string
}

// CheckoutParams describes one lead purchase checkout.
type CheckoutParams struct {
	CustomerID  string
	LeadID      uuid.UUID
	VendorID    uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// CheckoutSession is an opened hosted checkout.
type CheckoutSession struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// EventType is a webhook event the marketplace reacts to.
type EventType string

const (
	EventCheckoutCompleted EventType = "checkout.session.completed"
	EventCheckoutExpired   EventType = "checkout.session.expired"
	// Delayed payment methods complete the session unpaid and report the
	// result later with one of these.
	EventAsyncPaymentSucceeded EventType = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed    EventType = "checkout.session.async_payment_failed"
)

func (t EventType) carriesSession() bool {
	switch t {
	case EventCheckoutCompleted, EventCheckoutExpired, EventAsyncPaymentSucceeded, EventAsyncPaymentFailed:
		return true
	default:
		return false
	}
}

// WebhookEvent is a verified provider callback reduced to what allocation needs.
type WebhookEvent struct {
	ID        string
	Type      EventType
	SessionID string
	Paid      bool
	LeadID    string
	VendorID  string
}

// AmountInCents converts a decimal price to the provider's minor unit.
func AmountInCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
