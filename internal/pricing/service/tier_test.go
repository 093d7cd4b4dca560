package service

import (
	"context"
	"testing"

	"leadmarket_backend/internal/pricing/repository"

	"github.com/shopspring/decimal"
)

func TestLeadTierFor(t *testing.T) {
	cases := map[string]LeadTier{
		"1000+":    LeadTierPremium,
		"501-1000": LeadTierPremium,
		"101-500":  LeadTierStandard,
		"51-100":   LeadTierStandard,
		"11-50":    LeadTierBasic,
		"1-10":     LeadTierBasic,
		"":         LeadTierBasic,
	}
	for size, want := range cases {
		if got := LeadTierFor(size); got != want {
			t.Fatalf("%q: expected %s, got %s", size, want, got)
		}
	}
}

func TestLeadPriceFor(t *testing.T) {
	set := emptyRuleSet()
	if got := LeadPriceFor(set, "itad", LeadTierStandard); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected fallback standard price 100, got %s", got)
	}

	set.LeadPrices[anyJob] = map[LeadTier]decimal.Decimal{LeadTierStandard: decimal.NewFromInt(0)}
	if got := LeadPriceFor(set, "itad", LeadTierStandard); !got.IsZero() {
		t.Fatalf("expected rule price 0 to win over fallback, got %s", got)
	}
}

func TestLeadPriceForPrefersJobTypeRule(t *testing.T) {
	itad := "itad"
	scoped := rule(repository.RuleTypeLeadPrice, "premium", "260", 0)
	scoped.JobType = &itad
	set := BuildRuleSet([]repository.PricingRule{
		scoped,
		rule(repository.RuleTypeLeadPrice, "premium", "180", 0),
	}, nil)

	if got := LeadPriceFor(set, "ITAD", LeadTierPremium); !got.Equal(decimal.NewFromInt(260)) {
		t.Fatalf("expected itad premium price 260, got %s", got)
	}
	if got := LeadPriceFor(set, "office_relocation", LeadTierPremium); !got.Equal(decimal.NewFromInt(180)) {
		t.Fatalf("expected unscoped premium price 180, got %s", got)
	}
}

func TestLeadPricerUsesRules(t *testing.T) {
	set := emptyRuleSet()
	set.LeadPrices[anyJob] = map[LeadTier]decimal.Decimal{LeadTierPremium: decimal.NewFromInt(220)}

	tier, price := NewLeadPricer(staticRules(set)).Price(context.Background(), "itad", "1000+")
	if tier != LeadTierPremium || !price.Equal(decimal.NewFromInt(220)) {
		t.Fatalf("unexpected price %s %s", tier, price)
	}
}
