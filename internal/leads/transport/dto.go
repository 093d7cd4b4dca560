package transport

import (
	"time"

	"leadmarket_backend/internal/distance"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitLeadRequest is the public job request form.
type SubmitLeadRequest struct {
	JobType                   string   `json:"jobType" validate:"required,max=64"`
	OriginZip                 string   `json:"originZip" validate:"required,uszip"`
	DestinationZip            string   `json:"destinationZip" validate:"required,uszip"`
	CompanyName               string   `json:"companyName" validate:"required,min=1,max=200"`
	CompanySize               string   `json:"companySize" validate:"omitempty,oneof=1-10 11-50 51-100 101-500 501-1000 1000+"`
	ContactName               string   `json:"contactName" validate:"required,min=1,max=120"`
	ContactEmail              string   `json:"contactEmail" validate:"required,email,max=254"`
	ContactPhone              string   `json:"contactPhone" validate:"omitempty,max=32"`
	NumberOfRacks             int      `json:"numberOfRacks" validate:"min=0,max=10000"`
	NumberOfLooseAssets       int      `json:"numberOfLooseAssets" validate:"min=0,max=100000"`
	HandlingRequirements      []string `json:"handlingRequirements" validate:"max=20,dive,max=64"`
	DataDestructionRequired   bool     `json:"dataDestructionRequired"`
	CertificateOfDestruction  bool     `json:"certificateOfDestruction"`
	ChainOfCustody            bool     `json:"chainOfCustody"`
	SecurityClearanceRequired bool     `json:"securityClearanceRequired"`
}

// SubmitLeadResponse is what the customer sees after submitting.
type SubmitLeadResponse struct {
	ID        uuid.UUID       `json:"id"`
	QuoteLow  decimal.Decimal `json:"quoteLow"`
	QuoteHigh decimal.Decimal `json:"quoteHigh"`
	Distance  distance.Result `json:"distance"`
}

// ListAvailableRequest filters the vendor marketplace listing.
type ListAvailableRequest struct {
	JobType  string `form:"jobType" validate:"omitempty,max=64"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// LeadResponse is the marketplace view of a lead. Contact details are only
// released through a completed purchase.
type LeadResponse struct {
	ID                        uuid.UUID       `json:"id"`
	JobType                   string          `json:"jobType"`
	OriginZip                 string          `json:"originZip"`
	DestinationZip            string          `json:"destinationZip"`
	CompanySize               string          `json:"companySize"`
	NumberOfRacks             int             `json:"numberOfRacks"`
	NumberOfLooseAssets       int             `json:"numberOfLooseAssets"`
	HandlingRequirements      []string        `json:"handlingRequirements"`
	DataDestructionRequired   bool            `json:"dataDestructionRequired"`
	CertificateOfDestruction  bool            `json:"certificateOfDestruction"`
	ChainOfCustody            bool            `json:"chainOfCustody"`
	SecurityClearanceRequired bool            `json:"securityClearanceRequired"`
	DistanceMiles             decimal.Decimal `json:"distanceMiles"`
	QuoteLow                  decimal.Decimal `json:"quoteLow"`
	QuoteHigh                 decimal.Decimal `json:"quoteHigh"`
	LeadPrice                 decimal.Decimal `json:"leadPrice"`
	LeadTier                  string          `json:"leadTier"`
	MaxSales                  int             `json:"maxSales"`
	SoldCount                 int             `json:"soldCount"`
	Status                    string          `json:"status"`
	CreatedAt                 time.Time       `json:"createdAt"`
}

// LeadListResponse is a page of leads.
type LeadListResponse struct {
	Items    []LeadResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}
