package service

import "leadmarket_backend/internal/pricing/transport"

// InputFromRequest converts the public estimate payload.
func InputFromRequest(req transport.EstimateQuoteRequest) QuoteInput {
	return QuoteInput{
		JobType:              req.JobType,
		OriginZip:            req.OriginZip,
		DestinationZip:       req.DestinationZip,
		Assets:               AssetCounts{Racks: req.NumberOfRacks, LooseAssets: req.NumberOfLooseAssets},
		HandlingRequirements: req.HandlingRequirements,
		Compliance: ComplianceFlags{
			DataDestruction:          req.DataDestructionRequired,
			CertificateOfDestruction: req.CertificateOfDestruction,
			ChainOfCustody:           req.ChainOfCustody,
			SecurityClearance:        req.SecurityClearanceRequired,
		},
	}
}

// ToResponse renders a quote for the API.
func ToResponse(q Quote) transport.QuoteResponse {
	return transport.QuoteResponse{
		Low:      q.Low,
		High:     q.High,
		Distance: q.Distance,
		Breakdown: transport.BreakdownResponse{
			LaborBase:      q.Breakdown.LaborBase,
			RackCost:       q.Breakdown.RackCost,
			LooseAssetCost: q.Breakdown.LooseAssetCost,
			DistanceCost:   q.Breakdown.DistanceCost,
			MaterialsCost:  q.Breakdown.MaterialsCost,
			ComplianceCost: q.Breakdown.ComplianceCost,
			Total:          q.Breakdown.Total,
		},
		Source: string(q.Source),
	}
}
