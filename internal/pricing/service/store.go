package service

import (
	"context"
	"sync"
	"time"

	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/metrics"

	"golang.org/x/sync/singleflight"
)

// DefaultRuleCacheTTL is used when the store is built with a zero TTL.
const DefaultRuleCacheTTL = 5 * time.Minute

// RuleReader is the storage side of the rule store.
type RuleReader interface {
	ListActiveRules(ctx context.Context) ([]repository.PricingRule, error)
}

type ruleSnapshot struct {
	rules    []repository.PricingRule
	set      RuleSet
	loadedAt time.Time
}

// Store caches active pricing rules for a fixed TTL. Read failures never reach
// callers: they get the last snapshot that loaded, or an empty set.
type Store struct {
	reader RuleReader
	ttl    time.Duration
	clock  clock.Clock
	log    *logger.Logger

	mu      sync.RWMutex
	current *ruleSnapshot
	group   singleflight.Group
}

// NewStore creates a rule store. clk may be nil for the system clock.
func NewStore(reader RuleReader, ttl time.Duration, clk clock.Clock, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultRuleCacheTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store{reader: reader, ttl: ttl, clock: clk, log: log}
}

// ActiveRules returns active rules ordered by sort_order.
func (s *Store) ActiveRules(ctx context.Context) []repository.PricingRule {
	return s.snapshot(ctx).rules
}

// RuleSet returns the typed view of the active rules.
func (s *Store) RuleSet(ctx context.Context) RuleSet {
	return s.snapshot(ctx).set
}

// Invalidate drops the cached snapshot so the next read hits storage.
// The last good snapshot is kept as the failure fallback.
func (s *Store) Invalidate() {
	s.mu.Lock()
	if s.current != nil {
		stale := *s.current
		stale.loadedAt = time.Time{}
		s.current = &stale
	}
	s.mu.Unlock()
}

func (s *Store) snapshot(ctx context.Context) *ruleSnapshot {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current != nil && !current.loadedAt.IsZero() && s.clock.Now().Sub(current.loadedAt) < s.ttl {
		return current
	}

	v, _, _ := s.group.Do("rules", func() (any, error) {
		return s.refresh(ctx, current), nil
	})
	return v.(*ruleSnapshot)
}

func (s *Store) refresh(ctx context.Context, previous *ruleSnapshot) *ruleSnapshot {
	rules, err := s.reader.ListActiveRules(ctx)
	if err != nil {
		metrics.RuleStoreRefreshes.WithLabelValues("error").Inc()
		s.log.WithContext(ctx).Warn("pricing rules unavailable, serving cached rules", "error", err, "hasFallback", previous != nil)
		if previous != nil {
			return previous
		}
		return &ruleSnapshot{set: emptyRuleSet()}
	}

	next := &ruleSnapshot{
		rules:    rules,
		set:      BuildRuleSet(rules, s.log),
		loadedAt: s.clock.Now(),
	}
	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	metrics.RuleStoreRefreshes.WithLabelValues("ok").Inc()
	return next
}
