package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleType is the category a pricing rule belongs to.
type RuleType string

const (
	RuleTypeLaborRate           RuleType = "labor_rate"
	RuleTypeDistanceTier        RuleType = "distance_tier"
	RuleTypeMaterialCost        RuleType = "material_cost"
	RuleTypeComplianceSurcharge RuleType = "compliance_surcharge"
	RuleTypeLeadPrice           RuleType = "lead_price"
	RuleTypeWeightTier          RuleType = "weight_tier"
	RuleTypeTripCharge          RuleType = "trip_charge"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeLaborRate, RuleTypeDistanceTier, RuleTypeMaterialCost, RuleTypeComplianceSurcharge,
		RuleTypeLeadPrice, RuleTypeWeightTier, RuleTypeTripCharge:
		return true
	}
	return false
}

// PricingRule is one row of pricing_rules.
type PricingRule struct {
	ID         uuid.UUID
	RuleType   RuleType
	JobType    *string
	Key        string
	Value      decimal.Decimal
	Multiplier decimal.NullDecimal
	SortOrder  int
	Priority   *int
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpsertRuleParams identifies a rule by (rule_type, job_type, key).
type UpsertRuleParams struct {
	RuleType   RuleType
	JobType    *string
	Key        string
	Value      decimal.Decimal
	Multiplier decimal.NullDecimal
	SortOrder  int
	Priority   *int
	IsActive   bool
}

// Repository reads pricing rules. The pricing engine never writes; UpsertRule
// exists for the seed tool.
type Repository interface {
	ListActiveRules(ctx context.Context) ([]PricingRule, error)
	UpsertRule(ctx context.Context, params UpsertRuleParams) (PricingRule, error)
}
