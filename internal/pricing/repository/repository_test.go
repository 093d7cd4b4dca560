package repository

import (
	"strings"
	"testing"
)

func TestListActiveRulesQueryFiltersAndOrders(t *testing.T) {
	for _, fragment := range []string{
		"FROM pricing_rules",
		"WHERE is_active = true",
		"ORDER BY sort_order ASC",
	} {
		if !strings.Contains(listActiveRulesQuery, fragment) {
			t.Fatalf("expected query to contain %q", fragment)
		}
	}
}

func TestUpsertRuleQueryMatchesIdentityIndex(t *testing.T) {
	if !strings.Contains(upsertRuleQuery, "ON CONFLICT (rule_type, COALESCE(job_type, ''), key)") {
		t.Fatal("upsert must target the pricing_rules identity index")
	}
}

func TestRuleTypeValid(t *testing.T) {
	if !RuleTypeDistanceTier.Valid() || !RuleTypeTripCharge.Valid() {
		t.Fatal("expected known rule types to be valid")
	}
	if RuleType("discount").Valid() {
		t.Fatal("expected unknown rule type to be invalid")
	}
}
