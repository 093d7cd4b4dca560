package service

import (
	"testing"

	"leadmarket_backend/internal/pricing/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func rule(ruleType repository.RuleType, key string, value string, sortOrder int) repository.PricingRule {
	return repository.PricingRule{
		ID:        uuid.New(),
		RuleType:  ruleType,
		Key:       key,
		Value:     decimal.RequireFromString(value),
		SortOrder: sortOrder,
		IsActive:  true,
	}
}

func TestParseRangeKey(t *testing.T) {
	lo, hi, unbounded, err := ParseRangeKey("50-200")
	if err != nil || !lo.Equal(decimal.NewFromInt(50)) || !hi.Equal(decimal.NewFromInt(200)) || unbounded {
		t.Fatalf("unexpected parse of 50-200: %v %v %v %v", lo, hi, unbounded, err)
	}

	lo, _, unbounded, err = ParseRangeKey("1000-+")
	if err != nil || !lo.Equal(decimal.NewFromInt(1000)) || !unbounded {
		t.Fatalf("unexpected parse of 1000-+: %v %v %v", lo, unbounded, err)
	}

	for _, key := range []string{"", "50", "abc-200", "200-50", "50-50", "50-abc"} {
		if _, _, _, err := ParseRangeKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestBuildRuleSetSkipsMalformedRows(t *testing.T) {
	itad := "itad"
	labor := rule(repository.RuleTypeLaborRate, "labor", "1800", 0)
	labor.JobType = &itad

	set := BuildRuleSet([]repository.PricingRule{
		labor,
		rule(repository.RuleTypeDistanceTier, "200-500", "3.5", 3),
		rule(repository.RuleTypeDistanceTier, "0-50", "0", 1),
		rule(repository.RuleTypeDistanceTier, "fifty-100", "9", 2),
		rule(repository.RuleTypeComplianceSurcharge, "data_destruction", "650", 0),
		rule(repository.RuleTypeComplianceSurcharge, "notarised", "99", 0),
		rule(repository.RuleTypeLeadPrice, "premium", "175", 0),
		rule(repository.RuleTypeLeadPrice, "platinum", "500", 0),
		rule(repository.RuleTypeTripCharge, "weekend", "200", 0),
		rule(repository.RuleType("discount"), "x", "1", 0),
	}, nil)

	if !set.LaborRates["itad"].Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("expected itad labor rate from job_type scope, got %v", set.LaborRates)
	}
	tiers := set.DistanceTiersFor("itad")
	if len(tiers) != 2 {
		t.Fatalf("expected malformed tier to be skipped, got %d tiers", len(tiers))
	}
	if !tiers[0].Min.IsZero() {
		t.Fatalf("expected tiers ordered by sort_order, got %+v", tiers)
	}
	if len(set.ComplianceSurcharges[anyJob]) != 1 || len(set.LeadPrices[anyJob]) != 1 {
		t.Fatalf("expected unknown keys to be skipped: %v %v", set.ComplianceSurcharges, set.LeadPrices)
	}
	if charge, ok := set.TripCharge("itad", "weekend"); !ok || !charge.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected trip charge to be kept, got %v", set.TripCharges)
	}
}

func TestBuildRuleSetScopesByJobType(t *testing.T) {
	itad := "itad"
	scoped := func(r repository.PricingRule) repository.PricingRule {
		r.JobType = &itad
		return r
	}
	set := BuildRuleSet([]repository.PricingRule{
		rule(repository.RuleTypeDistanceTier, "0-100", "2", 1),
		scoped(rule(repository.RuleTypeDistanceTier, "0-50", "1", 1)),
		scoped(rule(repository.RuleTypeDistanceTier, "50-+", "5", 2)),
		rule(repository.RuleTypeWeightTier, "0-1000", "0.5", 1),
		scoped(rule(repository.RuleTypeComplianceSurcharge, "chain_of_custody", "80", 0)),
		rule(repository.RuleTypeComplianceSurcharge, "chain_of_custody", "300", 0),
		scoped(rule(repository.RuleTypeTripCharge, "weekend", "50", 0)),
		rule(repository.RuleTypeTripCharge, "weekend", "200", 0),
	}, nil)

	if got := set.DistanceTiersFor("ITAD"); len(got) != 2 || got[0].JobType != "itad" {
		t.Fatalf("expected only the two itad tiers, got %+v", got)
	}
	if got := set.DistanceTiersFor("office_relocation"); len(got) != 1 || !got[0].Rate.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected unscoped tiers for other job types, got %+v", got)
	}
	if got := set.WeightTiersFor("itad"); len(got) != 1 {
		t.Fatalf("expected unscoped weight tiers when itad has none, got %+v", got)
	}
	if got, _ := set.ComplianceSurcharge("itad", ComplianceChainOfCustody); !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected itad surcharge 80, got %s", got)
	}
	if got, _ := set.ComplianceSurcharge("office_relocation", ComplianceChainOfCustody); !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected unscoped surcharge 300, got %s", got)
	}
	if got, _ := set.TripCharge("itad", "weekend"); !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected itad trip charge 50, got %s", got)
	}
	if _, ok := set.TripCharge("itad", "holiday"); ok {
		t.Fatal("expected missing trip charge to report not found")
	}
}
