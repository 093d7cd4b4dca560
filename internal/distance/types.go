// Package distance resolves driving distances between US ZIP codes.
//
// Lookups go cache (both directions), then the mapping provider, then a
// deterministic ZIP-prefix estimate. Resolve never fails.
package distance

import (
	"strings"
	"time"
)

// Source records which layer answered a lookup.
type Source string

const (
	SourceProvider Source = "provider"
	SourceCache    Source = "cache"
	SourceEstimate Source = "estimate"
)

// Result is a resolved origin → destination distance.
type Result struct {
	OriginZip       string  `json:"originZip"`
	DestinationZip  string  `json:"destinationZip"`
	Miles           float64 `json:"miles"`
	DurationMinutes int     `json:"durationMinutes"`
	Source          Source  `json:"source"`
}

// Swapped returns the same distance with origin and destination exchanged.
func (r Result) Swapped() Result {
	r.OriginZip, r.DestinationZip = r.DestinationZip, r.OriginZip
	return r
}

// Entry is what caches store for one directed pair.
type Entry struct {
	Miles           float64   `json:"miles"`
	DurationMinutes int       `json:"durationMinutes"`
	Source          Source    `json:"source"`
	CachedAt        time.Time `json:"cachedAt"`
}

func normalizeZip(zip string) string {
	zip = strings.TrimSpace(zip)
	if i := strings.IndexByte(zip, '-'); i > 0 {
		zip = zip[:i]
	}
	return zip
}

func cacheKey(origin, destination string) string {
	return origin + "|" + destination
}
