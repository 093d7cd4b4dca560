package service

import (
	"strings"

	"leadmarket_backend/internal/distance"

	"github.com/shopspring/decimal"
)

// Labor base per job type when no labor_rate rule exists.
var fallbackLaborRates = map[string]decimal.Decimal{
	"itad":                   decimal.NewFromInt(1500),
	"data_center_relocation": decimal.NewFromInt(5000),
	"office_relocation":      decimal.NewFromInt(2500),
	"asset_recovery":         decimal.NewFromInt(1000),
	"e_waste_recycling":      decimal.NewFromInt(750),
}

var defaultLaborRate = decimal.NewFromInt(1500)

func fallbackLaborRate(jobType string) decimal.Decimal {
	if rate, ok := fallbackLaborRates[strings.ToLower(strings.TrimSpace(jobType))]; ok {
		return rate
	}
	return defaultLaborRate
}

var fallbackCompliance = map[ComplianceFlag]decimal.Decimal{
	ComplianceDataDestruction:   decimal.NewFromInt(500),
	ComplianceCertificate:       decimal.NewFromInt(150),
	ComplianceChainOfCustody:    decimal.NewFromInt(300),
	ComplianceSecurityClearance: decimal.NewFromInt(750),
}

// Used when no distance_tier rules are active.
var fallbackDistanceTiers = []RangeTier{
	{Min: decimal.NewFromInt(0), Max: decimal.NewFromInt(50), Rate: decimal.Zero},
	{Min: decimal.NewFromInt(50), Max: decimal.NewFromInt(200), Rate: decimal.NewFromInt(4)},
	{Min: decimal.NewFromInt(200), Max: decimal.NewFromInt(500), Rate: decimal.RequireFromString("3.5")},
	{Min: decimal.NewFromInt(500), Max: decimal.NewFromInt(1000), Rate: decimal.NewFromInt(3)},
	{Min: decimal.NewFromInt(1000), Unbounded: true, Rate: decimal.RequireFromString("2.5")},
}

var flatPerMileRate = decimal.NewFromInt(3)

// FallbackQuote prices a job from constants only: no rules, no tiers, and no
// handling materials. It cannot fail.
func FallbackQuote(in QuoteInput, dist distance.Result) Quote {
	racks, loose := in.Assets.Racks, in.Assets.LooseAssets
	if racks < 0 {
		racks = 0
	}
	if loose < 0 {
		loose = 0
	}
	miles := decimal.NewFromFloat(dist.Miles)
	if miles.IsNegative() {
		miles = decimal.Zero
	}

	b := Breakdown{
		LaborBase:      fallbackLaborRate(in.JobType),
		RackCost:       rackRate.Mul(decimal.NewFromInt(int64(racks))),
		LooseAssetCost: looseAssetRate.Mul(decimal.NewFromInt(int64(loose))),
		DistanceCost:   miles.Mul(flatPerMileRate),
		ComplianceCost: complianceCost(RuleSet{}, in.JobType, in.Compliance),
	}
	b.sum()
	return newQuote(b, dist, QuoteSourceFallback)
}
