package transport

import (
	"leadmarket_backend/internal/distance"

	"github.com/shopspring/decimal"
)

// EstimateQuoteRequest is the public quote estimate payload.
type EstimateQuoteRequest struct {
	JobType                   string   `json:"jobType" validate:"required,max=64"`
	OriginZip                 string   `json:"originZip" validate:"required,uszip"`
	DestinationZip            string   `json:"destinationZip" validate:"required,uszip"`
	NumberOfRacks             int      `json:"numberOfRacks" validate:"min=0,max=10000"`
	NumberOfLooseAssets       int      `json:"numberOfLooseAssets" validate:"min=0,max=100000"`
	HandlingRequirements      []string `json:"handlingRequirements" validate:"max=20,dive,max=64"`
	DataDestructionRequired   bool     `json:"dataDestructionRequired"`
	CertificateOfDestruction  bool     `json:"certificateOfDestruction"`
	ChainOfCustody            bool     `json:"chainOfCustody"`
	SecurityClearanceRequired bool     `json:"securityClearanceRequired"`
}

// BreakdownResponse itemises a quote.
type BreakdownResponse struct {
	LaborBase      decimal.Decimal `json:"laborBase"`
	RackCost       decimal.Decimal `json:"rackCost"`
	LooseAssetCost decimal.Decimal `json:"looseAssetCost"`
	DistanceCost   decimal.Decimal `json:"distanceCost"`
	MaterialsCost  decimal.Decimal `json:"materialsCost"`
	ComplianceCost decimal.Decimal `json:"complianceCost"`
	Total          decimal.Decimal `json:"total"`
}

// QuoteResponse is returned by the estimate endpoint.
type QuoteResponse struct {
	Low       decimal.Decimal   `json:"low"`
	High      decimal.Decimal   `json:"high"`
	Distance  distance.Result   `json:"distance"`
	Breakdown BreakdownResponse `json:"breakdown"`
	Source    string            `json:"source"`
}
