package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

var fallbackLeadPrices = map[LeadTier]decimal.Decimal{
	LeadTierPremium:  decimal.NewFromInt(150),
	LeadTierStandard: decimal.NewFromInt(100),
	LeadTierBasic:    decimal.NewFromInt(50),
}

// LeadTierFor buckets the customer's company size band.
func LeadTierFor(companySize string) LeadTier {
	switch strings.ReplaceAll(strings.TrimSpace(companySize), " ", "") {
	case "1000+", "501-1000":
		return LeadTierPremium
	case "101-500", "51-100":
		return LeadTierStandard
	default:
		return LeadTierBasic
	}
}

// LeadPriceFor returns the marketplace price for a tier, from a lead_price
// rule when one exists. Rules scoped to jobType win over unscoped ones.
func LeadPriceFor(rules RuleSet, jobType string, tier LeadTier) decimal.Decimal {
	if price, ok := rules.LeadPrice(jobType, tier); ok {
		return price
	}
	if price, ok := fallbackLeadPrices[tier]; ok {
		return price
	}
	return fallbackLeadPrices[LeadTierBasic]
}

// LeadPricer prices a lead for the marketplace.
type LeadPricer struct {
	rules RuleSource
}

// NewLeadPricer creates a LeadPricer over the rule store.
func NewLeadPricer(rules RuleSource) *LeadPricer {
	return &LeadPricer{rules: rules}
}

// Price returns the tier and price of a jobType lead from a customer of the
// given size.
func (p *LeadPricer) Price(ctx context.Context, jobType, companySize string) (LeadTier, decimal.Decimal) {
	tier := LeadTierFor(companySize)
	return tier, LeadPriceFor(p.rules.RuleSet(ctx), jobType, tier)
}
