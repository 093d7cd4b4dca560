package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleColumns = `id, rule_type, job_type, key, value, multiplier, sort_order, priority, is_active, created_at, updated_at`

const listActiveRulesQuery = `
		SELECT ` + ruleColumns + `
		FROM pricing_rules
		WHERE is_active = true
		ORDER BY sort_order ASC, priority ASC NULLS LAST, key ASC`

const upsertRuleQuery = `
		INSERT INTO pricing_rules (rule_type, job_type, key, value, multiplier, sort_order, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (rule_type, COALESCE(job_type, ''), key) DO UPDATE SET
			value = EXCLUDED.value,
			multiplier = EXCLUDED.multiplier,
			sort_order = EXCLUDED.sort_order,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING ` + ruleColumns

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pricing rule repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// ListActiveRules returns active rules ordered by sort_order.
func (r *Repo) ListActiveRules(ctx context.Context) ([]PricingRule, error) {
	rows, err := r.pool.Query(ctx, listActiveRulesQuery)
	if err != nil {
		return nil, fmt.Errorf("list active pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]PricingRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing rules: %w", err)
	}
	return rules, nil
}

// UpsertRule inserts or updates a rule keyed by (rule_type, job_type, key).
func (r *Repo) UpsertRule(ctx context.Context, params UpsertRuleParams) (PricingRule, error) {
	row := r.pool.QueryRow(ctx, upsertRuleQuery,
		string(params.RuleType), params.JobType, params.Key, params.Value, params.Multiplier,
		params.SortOrder, params.Priority, params.IsActive,
	)
	rule, err := scanRule(row)
	if err != nil {
		return PricingRule{}, fmt.Errorf("upsert pricing rule: %w", err)
	}
	return rule, nil
}

func scanRule(row pgx.Row) (PricingRule, error) {
	var rule PricingRule
	var ruleType string
	err := row.Scan(
		&rule.ID, &ruleType, &rule.JobType, &rule.Key, &rule.Value, &rule.Multiplier,
		&rule.SortOrder, &rule.Priority, &rule.IsActive, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return PricingRule{}, err
	}
	rule.RuleType = RuleType(ruleType)
	return rule, nil
}
