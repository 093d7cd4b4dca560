package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a lead's pipeline position.
type Status string

const (
	StatusNew            Status = "new"
	StatusEnriched       Status = "enriched"
	StatusVetted         Status = "vetted"
	StatusAvailable      Status = "available"
	StatusSentToVendor   Status = "sent_to_vendor"
	StatusVendorAccepted Status = "vendor_accepted"
	StatusQuoted         Status = "quoted"
	StatusSold           Status = "sold"
	StatusWon            Status = "won"
	StatusLost           Status = "lost"
	StatusExpired        Status = "expired"
	StatusClosed         Status = "closed"
)

// Lead is a customer job request and the unit of sale.
type Lead struct {
	ID                        uuid.UUID
	JobType                   string
	OriginZip                 string
	DestinationZip            string
	CompanyName               string
	CompanySize               string
	ContactName               string
	ContactEmail              string
	ContactPhone              string
	NumberOfRacks             int
	NumberOfLooseAssets       int
	HandlingRequirements      []string
	DataDestructionRequired   bool
	CertificateOfDestruction  bool
	ChainOfCustody            bool
	SecurityClearanceRequired bool
	DistanceMiles             decimal.Decimal
	DistanceSource            string
	QuoteLow                  decimal.Decimal
	QuoteHigh                 decimal.Decimal
	QuoteSource               string
	LeadPrice                 decimal.Decimal
	LeadTier                  string
	MaxSales                  int
	SoldCount                 int
	Status                    Status
	VendorID                  *uuid.UUID
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Purchasable reports whether the lead can be sold right now.
func (l Lead) Purchasable() bool {
	return l.Status == StatusAvailable && l.SoldCount < l.MaxSales
}

// CreateParams holds everything persisted at submission.
type CreateParams struct {
	JobType                   string
	OriginZip                 string
	DestinationZip            string
	CompanyName               string
	CompanySize               string
	ContactName               string
	ContactEmail              string
	ContactPhone              string
	NumberOfRacks             int
	NumberOfLooseAssets       int
	HandlingRequirements      []string
	DataDestructionRequired   bool
	CertificateOfDestruction  bool
	ChainOfCustody            bool
	SecurityClearanceRequired bool
	DistanceMiles             decimal.Decimal
	DistanceSource            string
	QuoteLow                  decimal.Decimal
	QuoteHigh                 decimal.Decimal
	QuoteSource               string
	LeadPrice                 decimal.Decimal
	LeadTier                  string
	MaxSales                  int
	VendorID                  *uuid.UUID
}

// ListAvailableParams filters the marketplace listing.
type ListAvailableParams struct {
	JobType *string
	Offset  int
	Limit   int
}

// Repository persists leads.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListAvailable(ctx context.Context, params ListAvailableParams) ([]Lead, int, error)
}
