package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/platform/logger"

	"github.com/shopspring/decimal"
)

// ComplianceFlag names a regulated handling add-on.
type ComplianceFlag string

const (
	ComplianceDataDestruction   ComplianceFlag = "data_destruction"
	ComplianceCertificate       ComplianceFlag = "certificate_of_destruction"
	ComplianceChainOfCustody    ComplianceFlag = "chain_of_custody"
	ComplianceSecurityClearance ComplianceFlag = "security_clearance"
)

func parseComplianceFlag(key string) (ComplianceFlag, bool) {
	switch flag := ComplianceFlag(strings.ToLower(strings.TrimSpace(key))); flag {
	case ComplianceDataDestruction, ComplianceCertificate, ComplianceChainOfCustody, ComplianceSecurityClearance:
		return flag, true
	}
	return "", false
}

// LeadTier is the marketplace price bucket of a lead.
type LeadTier string

const (
	LeadTierPremium  LeadTier = "premium"
	LeadTierStandard LeadTier = "standard"
	LeadTierBasic    LeadTier = "basic"
)

func parseLeadTier(key string) (LeadTier, bool) {
	switch tier := LeadTier(strings.ToLower(strings.TrimSpace(key))); tier {
	case LeadTierPremium, LeadTierStandard, LeadTierBasic:
		return tier, true
	}
	return "", false
}

// RangeTier is a progressive band such as "50-200" or "1000-+".
type RangeTier struct {
	JobType   string
	Min       decimal.Decimal
	Max       decimal.Decimal
	Unbounded bool
	Rate      decimal.Decimal
	SortOrder int
}

// upper returns the band's ceiling, or x for open-ended bands.
func (t RangeTier) upper(x decimal.Decimal) decimal.Decimal {
	if t.Unbounded {
		return x
	}
	return t.Max
}

// MaterialCost prices one handling requirement, optionally scoped to a job type.
type MaterialCost struct {
	Key     string
	JobType string
	Amount  decimal.Decimal
}

// anyJob is the scope of rules whose job_type is NULL.
const anyJob = ""

// RuleSet is the typed view of the active pricing rules. Everything except
// labor rates and material costs is grouped by job type; rules without a job
// type sit under anyJob and apply when no scoped rule exists.
type RuleSet struct {
	LaborRates           map[string]decimal.Decimal
	DistanceTiers        map[string][]RangeTier
	MaterialCosts        []MaterialCost
	ComplianceSurcharges map[string]map[ComplianceFlag]decimal.Decimal
	LeadPrices           map[string]map[LeadTier]decimal.Decimal
	WeightTiers          map[string][]RangeTier
	TripCharges          map[string]map[string]decimal.Decimal
}

func emptyRuleSet() RuleSet {
	return RuleSet{
		LaborRates:           map[string]decimal.Decimal{},
		DistanceTiers:        map[string][]RangeTier{},
		ComplianceSurcharges: map[string]map[ComplianceFlag]decimal.Decimal{},
		LeadPrices:           map[string]map[LeadTier]decimal.Decimal{},
		WeightTiers:          map[string][]RangeTier{},
		TripCharges:          map[string]map[string]decimal.Decimal{},
	}
}

// DistanceTiersFor returns the tiers scoped to jobType, or the unscoped tiers
// when the job type has none. Tier sets are never mixed.
func (r RuleSet) DistanceTiersFor(jobType string) []RangeTier {
	return tiersFor(r.DistanceTiers, jobType)
}

// WeightTiersFor is DistanceTiersFor for weight bands.
func (r RuleSet) WeightTiersFor(jobType string) []RangeTier {
	return tiersFor(r.WeightTiers, jobType)
}

// ComplianceSurcharge looks the flag up for jobType, then for any job.
func (r RuleSet) ComplianceSurcharge(jobType string, flag ComplianceFlag) (decimal.Decimal, bool) {
	return lookupScoped(r.ComplianceSurcharges, jobType, flag)
}

// LeadPrice looks the tier up for jobType, then for any job.
func (r RuleSet) LeadPrice(jobType string, tier LeadTier) (decimal.Decimal, bool) {
	return lookupScoped(r.LeadPrices, jobType, tier)
}

// TripCharge looks the key up for jobType, then for any job.
func (r RuleSet) TripCharge(jobType, key string) (decimal.Decimal, bool) {
	return lookupScoped(r.TripCharges, jobType, key)
}

func tiersFor(tiers map[string][]RangeTier, jobType string) []RangeTier {
	if scoped := tiers[normalizeJobType(jobType)]; len(scoped) > 0 {
		return scoped
	}
	return tiers[anyJob]
}

func lookupScoped[K comparable](values map[string]map[K]decimal.Decimal, jobType string, key K) (decimal.Decimal, bool) {
	if jobType = normalizeJobType(jobType); jobType != anyJob {
		if v, ok := values[jobType][key]; ok {
			return v, true
		}
	}
	v, ok := values[anyJob][key]
	return v, ok
}

// putFirst stores v unless the slot is already taken.
func putFirst[K comparable](values map[string]map[K]decimal.Decimal, jobType string, key K, v decimal.Decimal) {
	scope := values[jobType]
	if scope == nil {
		scope = map[K]decimal.Decimal{}
		values[jobType] = scope
	}
	if _, exists := scope[key]; !exists {
		scope[key] = v
	}
}

func normalizeJobType(jobType string) string {
	return strings.ToLower(strings.TrimSpace(jobType))
}

func ruleJobType(rule repository.PricingRule) string {
	if rule.JobType == nil {
		return anyJob
	}
	return normalizeJobType(*rule.JobType)
}

var errMalformedRange = errors.New("malformed range key")

// ParseRangeKey parses "min-max" or "min-+" into bounds.
func ParseRangeKey(key string) (lo, hi decimal.Decimal, unbounded bool, err error) {
	parts := strings.SplitN(strings.TrimSpace(key), "-", 2)
	if len(parts) != 2 {
		return lo, hi, false, fmt.Errorf("%w: %q", errMalformedRange, key)
	}

	lo, err = decimal.NewFromString(strings.TrimSpace(parts[0]))
	if err != nil || lo.IsNegative() {
		return lo, hi, false, fmt.Errorf("%w: %q", errMalformedRange, key)
	}

	upper := strings.TrimSpace(parts[1])
	if upper == "+" {
		return lo, hi, true, nil
	}
	hi, err = decimal.NewFromString(upper)
	if err != nil || !hi.GreaterThan(lo) {
		return lo, hi, false, fmt.Errorf("%w: %q", errMalformedRange, key)
	}
	return lo, hi, false, nil
}

// BuildRuleSet converts raw rows into typed variants. Rows that cannot be
// interpreted (bad range keys, unknown compliance or tier keys, unknown
// types) are logged and skipped; the rest of the set is still usable.
// When several rows claim the same slot, the first in input order wins.
func BuildRuleSet(rules []repository.PricingRule, log *logger.Logger) RuleSet {
	set := emptyRuleSet()
	skip := func(rule repository.PricingRule, reason string) {
		if log != nil {
			log.Warn("skipping pricing rule", "id", rule.ID, "ruleType", rule.RuleType, "key", rule.Key, "reason", reason)
		}
	}

	for _, rule := range rules {
		scope := ruleJobType(rule)

		switch rule.RuleType {
		case repository.RuleTypeLaborRate:
			jobType := scope
			if jobType == anyJob {
				jobType = normalizeJobType(rule.Key)
			}
			if _, exists := set.LaborRates[jobType]; !exists {
				set.LaborRates[jobType] = rule.Value
			}

		case repository.RuleTypeDistanceTier, repository.RuleTypeWeightTier:
			lo, hi, unbounded, err := ParseRangeKey(rule.Key)
			if err != nil {
				skip(rule, err.Error())
				continue
			}
			tier := RangeTier{JobType: scope, Min: lo, Max: hi, Unbounded: unbounded, Rate: rule.Value, SortOrder: rule.SortOrder}
			if rule.RuleType == repository.RuleTypeDistanceTier {
				set.DistanceTiers[scope] = append(set.DistanceTiers[scope], tier)
			} else {
				set.WeightTiers[scope] = append(set.WeightTiers[scope], tier)
			}

		case repository.RuleTypeMaterialCost:
			set.MaterialCosts = append(set.MaterialCosts, MaterialCost{
				Key:     normalizeJobType(rule.Key),
				JobType: scope,
				Amount:  rule.Value,
			})

		case repository.RuleTypeComplianceSurcharge:
			flag, ok := parseComplianceFlag(rule.Key)
			if !ok {
				skip(rule, "unknown compliance flag")
				continue
			}
			putFirst(set.ComplianceSurcharges, scope, flag, rule.Value)

		case repository.RuleTypeLeadPrice:
			tier, ok := parseLeadTier(rule.Key)
			if !ok {
				skip(rule, "unknown lead tier")
				continue
			}
			putFirst(set.LeadPrices, scope, tier, rule.Value)

		case repository.RuleTypeTripCharge:
			putFirst(set.TripCharges, scope, normalizeJobType(rule.Key), rule.Value)

		default:
			skip(rule, "unknown rule type")
		}
	}

	for _, tiers := range set.DistanceTiers {
		sortTiers(tiers)
	}
	for _, tiers := range set.WeightTiers {
		sortTiers(tiers)
	}
	return set
}

func sortTiers(tiers []RangeTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].SortOrder != tiers[j].SortOrder {
			return tiers[i].SortOrder < tiers[j].SortOrder
		}
		return tiers[i].Min.LessThan(tiers[j].Min)
	})
}
