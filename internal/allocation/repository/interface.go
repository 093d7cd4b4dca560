package repository

import (
	"context"
	"time"

	leadsrepo "leadmarket_backend/internal/leads/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a purchase's payment state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	// StatusRefundRequired marks a paid checkout that could not be allocated
	// because the lead sold out first. Operations refund it by hand. Like
	// expired rows it does not hold the (lead, vendor) pair.
	StatusRefundRequired Status = "refund_required"
	StatusRefunded       Status = "refunded"
	// StatusExpired marks an abandoned checkout. Expired rows no longer hold the
	// (lead, vendor) pair.
	StatusExpired Status = "expired"
)

// Settled reports whether a checkout confirmation has already been applied.
func (s Status) Settled() bool {
	switch s {
	case StatusCompleted, StatusRefundRequired, StatusRefunded:
		return true
	default:
		return false
	}
}

// Outcome is what the vendor reports after working a purchased lead.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeWon        Outcome = "won"
	OutcomeLost       Outcome = "lost"
	OutcomeNoResponse Outcome = "no_response"
)

// Reportable reports whether a vendor may set o.
func (o Outcome) Reportable() bool {
	switch o {
	case OutcomeWon, OutcomeLost, OutcomeNoResponse:
		return true
	default:
		return false
	}
}

// Purchase records one vendor buying one lead.
type Purchase struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	VendorID          uuid.UUID
	PricePaid         decimal.Decimal
	Status            Status
	Outcome           Outcome
	CheckoutSessionID *string
	CreatedAt         time.Time
	CompletedAt       *time.Time
	OutcomeReportedAt *time.Time
}

// PurchasedLead is the lead side of a vendor's purchase history.
type PurchasedLead struct {
	JobType        string
	OriginZip      string
	DestinationZip string
	CompanyName    string
	ContactName    string
	ContactEmail   string
	ContactPhone   string
}

// PurchaseWithLead pairs a purchase with the lead it bought.
type PurchaseWithLead struct {
	Purchase
	Lead PurchasedLead
}

// Allocation is the result of the conditional sold_count increment.
// Allocated is false when the lead was no longer available or already at its
// cap; nothing was written in that case.
type Allocation struct {
	Allocated    bool
	NewSoldCount int
}

// AllocateParams describes a purchase that completes immediately.
type AllocateParams struct {
	LeadID    uuid.UUID
	VendorID  uuid.UUID
	PricePaid decimal.Decimal
}

// PendingParams describes a purchase waiting on hosted checkout.
type PendingParams struct {
	LeadID            uuid.UUID
	VendorID          uuid.UUID
	PricePaid         decimal.Decimal
	CheckoutSessionID string
}

// Confirmation is the result of confirming a paid checkout.
type Confirmation struct {
	Purchase   Purchase
	Allocation Allocation
	MaxSales   int
	// VendorEmail is set when the allocation succeeded.
	VendorEmail string
	// AlreadySettled is true when an earlier confirmation of the same
	// session already completed the purchase or flagged it for refund.
	AlreadySettled bool
}

// Repository persists purchases and applies the sold_count cap.
type Repository interface {
	GetLead(ctx context.Context, leadID uuid.UUID) (leadsrepo.Lead, error)
	HasActivePurchase(ctx context.Context, leadID, vendorID uuid.UUID) (bool, error)

	// AllocateCompleted inserts a completed purchase, increments sold_count
	// and the vendor's purchase count in one transaction.
	AllocateCompleted(ctx context.Context, params AllocateParams) (Purchase, Allocation, error)
	CreatePending(ctx context.Context, params PendingParams) (Purchase, error)
	// ConfirmBySession completes a checkout purchase and increments sold_count
	// in one transaction. When the lead is already at its cap the purchase is
	// moved to StatusRefundRequired instead, so a redelivered confirmation
	// reports AlreadySettled.
	ConfirmBySession(ctx context.Context, sessionID string) (Confirmation, error)

	ExpireByID(ctx context.Context, purchaseID uuid.UUID) (Purchase, bool, error)
	ExpireBySession(ctx context.Context, sessionID string) (Purchase, bool, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Purchase, error)

	ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]PurchaseWithLead, error)
	// ReportOutcome sets the outcome of a completed purchase owned by vendorID
	// and bumps leads_closed on a win.
	ReportOutcome(ctx context.Context, purchaseID, vendorID uuid.UUID, outcome Outcome) (Purchase, error)
}
