package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseResult is returned by the purchase endpoint: a checkout URL when
// payment is required, otherwise the completed purchase.
type PurchaseResult struct {
	CheckoutURL *string           `json:"checkoutUrl,omitempty"`
	Purchase    *PurchaseResponse `json:"purchase,omitempty"`
}

// PurchasedLeadResponse carries the contact details released by a completed purchase.
type PurchasedLeadResponse struct {
	JobType        string `json:"jobType"`
	OriginZip      string `json:"originZip"`
	DestinationZip string `json:"destinationZip"`
	CompanyName    string `json:"companyName"`
	ContactName    string `json:"contactName"`
	ContactEmail   string `json:"contactEmail"`
	ContactPhone   string `json:"contactPhone"`
}

// PurchaseResponse is a vendor's view of one purchase.
type PurchaseResponse struct {
	ID                uuid.UUID              `json:"id"`
	LeadID            uuid.UUID              `json:"leadId"`
	PricePaid         decimal.Decimal        `json:"pricePaid"`
	Status            string                 `json:"status"`
	Outcome           string                 `json:"outcome"`
	CreatedAt         time.Time              `json:"createdAt"`
	CompletedAt       *time.Time             `json:"completedAt,omitempty"`
	OutcomeReportedAt *time.Time             `json:"outcomeReportedAt,omitempty"`
	Lead              *PurchasedLeadResponse `json:"lead,omitempty"`
}

// PurchaseListResponse lists a vendor's purchases.
type PurchaseListResponse struct {
	Items []PurchaseResponse `json:"items"`
}

// ReportOutcomeRequest is the body of the outcome endpoint.
type ReportOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=won lost no_response"`
}
