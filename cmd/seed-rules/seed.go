package main

import (
	"fmt"
	"io"
	"strings"

	"leadmarket_backend/internal/pricing/repository"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk layout of a pricing rule seed.
type seedFile struct {
	Rules []seedRule `yaml:"rules"`
}

type seedRule struct {
	Type       string `yaml:"type"`
	JobType    string `yaml:"job_type"`
	Key        string `yaml:"key"`
	Value      string `yaml:"value"`
	Multiplier string `yaml:"multiplier"`
	SortOrder  int    `yaml:"sort_order"`
	Priority   *int   `yaml:"priority"`
	Active     *bool  `yaml:"active"`
}

// parseSeed decodes and validates every rule before anything is written, so a
// bad file never leaves the table half-seeded.
func parseSeed(r io.Reader) ([]repository.UpsertRuleParams, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	params := make([]repository.UpsertRuleParams, 0, len(file.Rules))
	for i, rule := range file.Rules {
		p, err := rule.toParams()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s/%s): %w", i+1, rule.Type, rule.Key, err)
		}
		params = append(params, p)
	}
	return params, nil
}

func (r seedRule) toParams() (repository.UpsertRuleParams, error) {
	ruleType := repository.RuleType(strings.TrimSpace(r.Type))
	if !ruleType.Valid() {
		return repository.UpsertRuleParams{}, fmt.Errorf("unknown rule type %q", r.Type)
	}
	key := strings.TrimSpace(r.Key)
	if key == "" {
		return repository.UpsertRuleParams{}, fmt.Errorf("key is required")
	}

	value, err := decimal.NewFromString(strings.TrimSpace(r.Value))
	if err != nil {
		return repository.UpsertRuleParams{}, fmt.Errorf("invalid value %q", r.Value)
	}
	if value.IsNegative() {
		return repository.UpsertRuleParams{}, fmt.Errorf("value must not be negative")
	}

	var multiplier decimal.NullDecimal
	if m := strings.TrimSpace(r.Multiplier); m != "" {
		d, err := decimal.NewFromString(m)
		if err != nil {
			return repository.UpsertRuleParams{}, fmt.Errorf("invalid multiplier %q", r.Multiplier)
		}
		multiplier = decimal.NullDecimal{Decimal: d, Valid: true}
	}

	var jobType *string
	if jt := strings.ToLower(strings.TrimSpace(r.JobType)); jt != "" {
		jobType = &jt
	}

	active := true
	if r.Active != nil {
		active = *r.Active
	}

	return repository.UpsertRuleParams{
		RuleType:   ruleType,
		JobType:    jobType,
		Key:        key,
		Value:      value,
		Multiplier: multiplier,
		SortOrder:  r.SortOrder,
		Priority:   r.Priority,
		IsActive:   active,
	}, nil
}
