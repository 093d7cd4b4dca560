// Package service prices jobs and leads from the active pricing rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"leadmarket_backend/internal/distance"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/metrics"

	"github.com/shopspring/decimal"
)

// QuoteSource records which calculator produced a quote.
type QuoteSource string

const (
	QuoteSourceRules    QuoteSource = "rules"
	QuoteSourceFallback QuoteSource = "fallback"
)

var (
	rackRate       = decimal.NewFromInt(250)
	looseAssetRate = decimal.NewFromInt(15)
	lowFactor      = decimal.RequireFromString("0.85")
	highFactor     = decimal.RequireFromString("1.25")
	roundingStep   = decimal.NewFromInt(50)
)

// AssetCounts is the inventory to be moved.
type AssetCounts struct {
	Racks       int
	LooseAssets int
}

// ComplianceFlags marks the regulated add-ons a job needs.
type ComplianceFlags struct {
	DataDestruction          bool
	CertificateOfDestruction bool
	ChainOfCustody           bool
	SecurityClearance        bool
}

func (f ComplianceFlags) selected() []ComplianceFlag {
	out := make([]ComplianceFlag, 0, 4)
	if f.DataDestruction {
		out = append(out, ComplianceDataDestruction)
	}
	if f.CertificateOfDestruction {
		out = append(out, ComplianceCertificate)
	}
	if f.ChainOfCustody {
		out = append(out, ComplianceChainOfCustody)
	}
	if f.SecurityClearance {
		out = append(out, ComplianceSecurityClearance)
	}
	return out
}

// QuoteInput describes a customer job.
type QuoteInput struct {
	JobType              string
	OriginZip            string
	DestinationZip       string
	Assets               AssetCounts
	HandlingRequirements []string
	Compliance           ComplianceFlags
}

// Validate rejects inputs no calculator should price.
func (in QuoteInput) Validate() error {
	if strings.TrimSpace(in.JobType) == "" {
		return apperr.Validation("job type is required")
	}
	if strings.TrimSpace(in.OriginZip) == "" || strings.TrimSpace(in.DestinationZip) == "" {
		return apperr.Validation("origin and destination zip are required")
	}
	if in.Assets.Racks < 0 || in.Assets.LooseAssets < 0 {
		return apperr.Validation("asset counts cannot be negative")
	}
	return nil
}

// Breakdown itemises a quote total.
type Breakdown struct {
	LaborBase      decimal.Decimal `json:"laborBase"`
	RackCost       decimal.Decimal `json:"rackCost"`
	LooseAssetCost decimal.Decimal `json:"looseAssetCost"`
	DistanceCost   decimal.Decimal `json:"distanceCost"`
	MaterialsCost  decimal.Decimal `json:"materialsCost"`
	ComplianceCost decimal.Decimal `json:"complianceCost"`
	Total          decimal.Decimal `json:"total"`
}

func (b *Breakdown) sum() {
	b.Total = b.LaborBase.Add(b.RackCost).Add(b.LooseAssetCost).Add(b.DistanceCost).
		Add(b.MaterialsCost).Add(b.ComplianceCost)
}

// Quote is a priced range for a job. Low and High are multiples of 50.
type Quote struct {
	Low       decimal.Decimal
	High      decimal.Decimal
	Distance  distance.Result
	Breakdown Breakdown
	Source    QuoteSource
}

// RuleSource supplies the typed rule view.
type RuleSource interface {
	RuleSet(ctx context.Context) RuleSet
}

// DistanceResolver turns a ZIP pair into miles.
type DistanceResolver interface {
	Resolve(ctx context.Context, originZip, destinationZip string) distance.Result
}

// Calculator prices jobs from the rule store and distance resolver.
type Calculator struct {
	rules     RuleSource
	distances DistanceResolver
	log       *logger.Logger
}

// NewCalculator creates a quote calculator.
func NewCalculator(rules RuleSource, distances DistanceResolver, log *logger.Logger) *Calculator {
	return &Calculator{rules: rules, distances: distances, log: log}
}

var errNegativeTotal = errors.New("quote total is negative")

// Calculate prices in from the active rules, using built-in constants for any
// rule category that has no rows.
func (c *Calculator) Calculate(ctx context.Context, in QuoteInput) (Quote, error) {
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}
	return c.calculate(ctx, in, c.distances.Resolve(ctx, in.OriginZip, in.DestinationZip))
}

func (c *Calculator) calculate(ctx context.Context, in QuoteInput, dist distance.Result) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	rules := c.rules.RuleSet(ctx)
	jobType := normalizeJobType(in.JobType)
	miles := decimal.NewFromFloat(dist.Miles)

	var b Breakdown
	if rate, ok := rules.LaborRates[jobType]; ok {
		b.LaborBase = rate
	} else {
		b.LaborBase = fallbackLaborRate(jobType)
	}
	b.RackCost = rackRate.Mul(decimal.NewFromInt(int64(in.Assets.Racks)))
	b.LooseAssetCost = looseAssetRate.Mul(decimal.NewFromInt(int64(in.Assets.LooseAssets)))

	tiers := rules.DistanceTiersFor(jobType)
	if len(tiers) == 0 {
		tiers = fallbackDistanceTiers
	}
	b.DistanceCost = TieredCost(miles, tiers)
	b.MaterialsCost = materialsCost(rules.MaterialCosts, jobType, in.HandlingRequirements)
	b.ComplianceCost = complianceCost(rules, jobType, in.Compliance)
	b.sum()

	if b.Total.IsNegative() {
		return Quote{}, errNegativeTotal
	}
	return newQuote(b, dist, QuoteSourceRules), nil
}

// QuoteWithFallback runs Calculate and, if it fails or panics, prices the job
// with FallbackQuote instead. Only invalid input is returned as an error.
func (c *Calculator) QuoteWithFallback(ctx context.Context, in QuoteInput) (Quote, error) {
	if err := in.Validate(); err != nil {
		return Quote{}, err
	}

	var dist *distance.Result
	quote, err := func() (q Quote, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = panicError{value: r}
			}
		}()
		resolved := c.distances.Resolve(ctx, in.OriginZip, in.DestinationZip)
		dist = &resolved
		return c.calculate(ctx, in, resolved)
	}()
	if err == nil {
		metrics.QuoteCalculations.WithLabelValues(string(QuoteSourceRules)).Inc()
		return quote, nil
	}

	c.log.WithContext(ctx).Error("quote calculation failed, using fallback pricing", "error", err, "jobType", in.JobType)
	if dist == nil {
		estimate := distance.Estimate(in.OriginZip, in.DestinationZip)
		dist = &estimate
	}
	metrics.QuoteCalculations.WithLabelValues(string(QuoteSourceFallback)).Inc()
	return FallbackQuote(in, *dist), nil
}

type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("quote calculation panicked: %v", p.value) }

// TieredCost bills miles progressively: each tier charges its rate for the
// miles that fall inside it.
func TieredCost(miles decimal.Decimal, tiers []RangeTier) decimal.Decimal {
	total := decimal.Zero
	for _, tier := range tiers {
		billable := decimal.Min(miles, tier.upper(miles)).Sub(tier.Min)
		if !billable.IsPositive() {
			continue
		}
		total = total.Add(billable.Mul(tier.Rate))
	}
	return total
}

func materialsCost(costs []MaterialCost, jobType string, requirements []string) decimal.Decimal {
	if len(requirements) == 0 {
		return decimal.Zero
	}
	wanted := make(map[string]struct{}, len(requirements))
	for _, req := range requirements {
		wanted[strings.ToLower(strings.TrimSpace(req))] = struct{}{}
	}

	total := decimal.Zero
	for _, cost := range costs {
		if cost.JobType != "" && cost.JobType != jobType {
			continue
		}
		if _, ok := wanted[cost.Key]; ok {
			total = total.Add(cost.Amount)
		}
	}
	return total
}

func complianceCost(rules RuleSet, jobType string, flags ComplianceFlags) decimal.Decimal {
	total := decimal.Zero
	for _, flag := range flags.selected() {
		if amount, ok := rules.ComplianceSurcharge(jobType, flag); ok {
			total = total.Add(amount)
			continue
		}
		total = total.Add(fallbackCompliance[flag])
	}
	return total
}

func newQuote(b Breakdown, dist distance.Result, source QuoteSource) Quote {
	return Quote{
		Low:       RoundToNearest50(b.Total.Mul(lowFactor)),
		High:      RoundToNearest50(b.Total.Mul(highFactor)),
		Distance:  dist,
		Breakdown: b,
		Source:    source,
	}
}

// RoundToNearest50 rounds half away from zero to a multiple of 50.
func RoundToNearest50(x decimal.Decimal) decimal.Decimal {
	return x.Div(roundingStep).Round(0).Mul(roundingStep)
}
