package distance

import (
	"context"
	"sync"
	"time"

	"leadmarket_backend/platform/clock"
)

// Cache stores directed distance entries. Implementations own expiry; Get
// reports a miss for anything older than their TTL.
type Cache interface {
	Get(ctx context.Context, origin, destination string) (Entry, bool, error)
	Set(ctx context.Context, origin, destination string, entry Entry) error
}

const defaultSweepThreshold = 1000

// MemoryCache is a process-local Cache with opportunistic sweeping: expired
// entries are only purged on writes once the map grows past the threshold.
type MemoryCache struct {
	mu             sync.Mutex
	entries        map[string]Entry
	ttl            time.Duration
	clock          clock.Clock
	sweepThreshold int
}

// NewMemoryCache creates a cache whose entries live for ttl according to clk.
func NewMemoryCache(ttl time.Duration, clk clock.Clock) *MemoryCache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &MemoryCache{
		entries:        make(map[string]Entry),
		ttl:            ttl,
		clock:          clk,
		sweepThreshold: defaultSweepThreshold,
	}
}

// WithSweepThreshold overrides the size at which writes trigger a sweep.
func (m *MemoryCache) WithSweepThreshold(n int) *MemoryCache {
	m.sweepThreshold = n
	return m
}

func (m *MemoryCache) Get(_ context.Context, origin, destination string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[cacheKey(origin, destination)]
	if !ok || m.expired(entry) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (m *MemoryCache) Set(_ context.Context, origin, destination string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[cacheKey(origin, destination)] = entry
	if len(m.entries) > m.sweepThreshold {
		m.sweepLocked()
	}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryCache) expired(entry Entry) bool {
	return m.clock.Now().Sub(entry.CachedAt) >= m.ttl
}

func (m *MemoryCache) sweepLocked() {
	for key, entry := range m.entries {
		if m.expired(entry) {
			delete(m.entries, key)
		}
	}
}
