package service

import (
	"context"
	"testing"

	"leadmarket_backend/internal/distance"
	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRules RuleSet

func (s staticRules) RuleSet(context.Context) RuleSet { return RuleSet(s) }

type panickingRules struct{}

func (panickingRules) RuleSet(context.Context) RuleSet { panic("rule set corrupted") }

type estimateResolver struct{}

func (estimateResolver) Resolve(_ context.Context, origin, destination string) distance.Result {
	return distance.Estimate(origin, destination)
}

func scenarioTiers() RuleSet {
	return BuildRuleSet([]repository.PricingRule{
		rule(repository.RuleTypeDistanceTier, "0-50", "0", 1),
		rule(repository.RuleTypeDistanceTier, "50-200", "4", 2),
		rule(repository.RuleTypeDistanceTier, "200-500", "3.5", 3),
	}, nil)
}

func TestDistanceTierScenario(t *testing.T) {
	calc := NewCalculator(staticRules(scenarioTiers()), estimateResolver{}, logger.Nop())

	quote, err := calc.Calculate(context.Background(), QuoteInput{
		JobType:        "itad",
		OriginZip:      "10001",
		DestinationZip: "11501",
	})
	require.NoError(t, err)
	require.Equal(t, 500.0, quote.Distance.Miles)

	assert.Equal(t, "1650", quote.Breakdown.DistanceCost.String())
	assert.Equal(t, "3150", quote.Breakdown.Total.String())
	assert.Equal(t, "2700", quote.Low.String())
	assert.Equal(t, "3950", quote.High.String())
	assert.Equal(t, QuoteSourceRules, quote.Source)
}

func TestTieredCostIsProgressive(t *testing.T) {
	tiers := scenarioTiers().DistanceTiersFor("itad")
	cases := map[int64]string{
		0:   "0",
		40:  "0",
		100: "200",
		200: "600",
		800: "1650",
	}
	for miles, want := range cases {
		got := TieredCost(decimal.NewFromInt(miles), tiers)
		if got.String() != want {
			t.Fatalf("%d miles: expected %s, got %s", miles, want, got)
		}
	}
}

func TestCalculateUsesRulesAndFallbackConstants(t *testing.T) {
	set := scenarioTiers()
	set.LaborRates["office_relocation"] = decimal.NewFromInt(3000)
	set.ComplianceSurcharges[anyJob] = map[ComplianceFlag]decimal.Decimal{ComplianceDataDestruction: decimal.NewFromInt(600)}
	set.MaterialCosts = []MaterialCost{
		{Key: "anti_static_packaging", Amount: decimal.NewFromInt(120)},
		{Key: "crating", JobType: "data_center_relocation", Amount: decimal.NewFromInt(900)},
	}
	calc := NewCalculator(staticRules(set), estimateResolver{}, logger.Nop())

	quote, err := calc.Calculate(context.Background(), QuoteInput{
		JobType:              "office_relocation",
		OriginZip:            "10001",
		DestinationZip:       "10050",
		Assets:               AssetCounts{Racks: 2, LooseAssets: 10},
		HandlingRequirements: []string{"Anti_Static_Packaging", "crating"},
		Compliance:           ComplianceFlags{DataDestruction: true, ChainOfCustody: true},
	})
	require.NoError(t, err)

	b := quote.Breakdown
	assert.Equal(t, "3000", b.LaborBase.String())
	assert.Equal(t, "500", b.RackCost.String())
	assert.Equal(t, "150", b.LooseAssetCost.String())
	assert.Equal(t, "0", b.DistanceCost.String())
	assert.Equal(t, "120", b.MaterialsCost.String())
	assert.Equal(t, "900", b.ComplianceCost.String())
	assert.Equal(t, "4670", b.Total.String())
}

func TestCalculateKeepsJobTypeRulesApart(t *testing.T) {
	officeRelocation := "office_relocation"
	scoped := func(r repository.PricingRule) repository.PricingRule {
		r.JobType = &officeRelocation
		return r
	}
	set := BuildRuleSet([]repository.PricingRule{
		rule(repository.RuleTypeDistanceTier, "0-50", "0", 1),
		rule(repository.RuleTypeDistanceTier, "50-200", "4", 2),
		rule(repository.RuleTypeDistanceTier, "200-500", "3.5", 3),
		scoped(rule(repository.RuleTypeDistanceTier, "0-500", "10", 1)),
		scoped(rule(repository.RuleTypeComplianceSurcharge, "data_destruction", "9999", 0)),
	}, nil)
	calc := NewCalculator(staticRules(set), estimateResolver{}, logger.Nop())

	itadQuote, err := calc.Calculate(context.Background(), QuoteInput{
		JobType:        "itad",
		OriginZip:      "10001",
		DestinationZip: "11501",
		Compliance:     ComplianceFlags{DataDestruction: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "1650", itadQuote.Breakdown.DistanceCost.String())
	assert.Equal(t, "500", itadQuote.Breakdown.ComplianceCost.String())

	officeQuote, err := calc.Calculate(context.Background(), QuoteInput{
		JobType:        "office_relocation",
		OriginZip:      "10001",
		DestinationZip: "11501",
		Compliance:     ComplianceFlags{DataDestruction: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "5000", officeQuote.Breakdown.DistanceCost.String())
	assert.Equal(t, "9999", officeQuote.Breakdown.ComplianceCost.String())
}

func TestCalculateWithoutTierRulesUsesFallbackTable(t *testing.T) {
	calc := NewCalculator(staticRules(emptyRuleSet()), estimateResolver{}, logger.Nop())

	quote, err := calc.Calculate(context.Background(), QuoteInput{JobType: "itad", OriginZip: "10001", DestinationZip: "94105"})
	require.NoError(t, err)
	// 2000 miles: 150*4 + 300*3.5 + 500*3 + 1000*2.5
	assert.Equal(t, "5650", quote.Breakdown.DistanceCost.String())
}

func TestQuoteRangeIsOrderedMultiplesOf50(t *testing.T) {
	calc := NewCalculator(staticRules(emptyRuleSet()), estimateResolver{}, logger.Nop())
	fifty := decimal.NewFromInt(50)

	for _, jobType := range []string{"itad", "data_center_relocation", "e_waste_recycling", "unknown"} {
		for racks := 0; racks < 7; racks += 3 {
			for _, dest := range []string{"10001", "10405", "11901", "13001", "99501"} {
				quote, err := calc.Calculate(context.Background(), QuoteInput{
					JobType:        jobType,
					OriginZip:      "10001",
					DestinationZip: dest,
					Assets:         AssetCounts{Racks: racks, LooseAssets: racks * 7},
					Compliance:     ComplianceFlags{CertificateOfDestruction: racks > 0},
				})
				require.NoError(t, err)
				assert.True(t, quote.Low.LessThanOrEqual(quote.High), "low %s > high %s", quote.Low, quote.High)
				assert.True(t, quote.Low.Mod(fifty).IsZero(), "low %s not a multiple of 50", quote.Low)
				assert.True(t, quote.High.Mod(fifty).IsZero(), "high %s not a multiple of 50", quote.High)
			}
		}
	}
}

func TestQuoteWithFallbackRecoversFromPanic(t *testing.T) {
	calc := NewCalculator(panickingRules{}, estimateResolver{}, logger.Nop())

	quote, err := calc.QuoteWithFallback(context.Background(), QuoteInput{JobType: "itad", OriginZip: "10001", DestinationZip: "11501"})
	require.NoError(t, err)
	assert.Equal(t, QuoteSourceFallback, quote.Source)
	// 1500 labor + 500 miles * 3.0
	assert.Equal(t, "3000", quote.Breakdown.Total.String())
	assert.Equal(t, distance.SourceEstimate, quote.Distance.Source)
}

func TestQuoteWithFallbackOnNegativeRules(t *testing.T) {
	set := emptyRuleSet()
	set.LaborRates["itad"] = decimal.NewFromInt(-10000)
	calc := NewCalculator(staticRules(set), estimateResolver{}, logger.Nop())

	quote, err := calc.QuoteWithFallback(context.Background(), QuoteInput{JobType: "itad", OriginZip: "10001", DestinationZip: "10001"})
	require.NoError(t, err)
	assert.Equal(t, QuoteSourceFallback, quote.Source)
	assert.Equal(t, "1575", quote.Breakdown.Total.String())
}

func TestQuoteWithFallbackRejectsInvalidInput(t *testing.T) {
	calc := NewCalculator(staticRules(emptyRuleSet()), estimateResolver{}, logger.Nop())

	_, err := calc.QuoteWithFallback(context.Background(), QuoteInput{OriginZip: "10001", DestinationZip: "10001"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestFallbackQuoteIgnoresMaterials(t *testing.T) {
	quote := FallbackQuote(QuoteInput{
		JobType:              "asset_recovery",
		HandlingRequirements: []string{"crating"},
		Assets:               AssetCounts{Racks: 1},
		Compliance:           ComplianceFlags{SecurityClearance: true},
	}, distance.Result{Miles: 100})

	// 1000 + 250 + 300 + 750
	assert.Equal(t, "2300", quote.Breakdown.Total.String())
	assert.True(t, quote.Breakdown.MaterialsCost.IsZero())
}
