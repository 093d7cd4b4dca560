package distance

import (
	"context"

	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/metrics"
)

// Resolver answers distance lookups. A nil provider means no mapping
// credential is configured and misses go straight to the estimate.
type Resolver struct {
	cache    Cache
	provider Provider
	clock    clock.Clock
	log      *logger.Logger
}

// NewResolver wires a resolver. cache must not be nil; provider may be.
func NewResolver(cache Cache, provider Provider, clk clock.Clock, log *logger.Logger) *Resolver {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Resolver{cache: cache, provider: provider, clock: clk, log: log}
}

// Resolve returns the driving distance between two ZIP codes. It never fails:
// cache errors count as misses and provider errors fall through to Estimate.
func (r *Resolver) Resolve(ctx context.Context, originZip, destinationZip string) Result {
	origin, destination := normalizeZip(originZip), normalizeZip(destinationZip)

	if result, ok := r.fromCache(ctx, origin, destination); ok {
		return r.record(result)
	}
	if result, ok := r.fromCache(ctx, destination, origin); ok {
		return r.record(result.Swapped())
	}

	if r.provider != nil {
		entry, err := r.provider.Lookup(ctx, origin, destination)
		if err == nil {
			entry.Source = SourceProvider
			entry.CachedAt = r.clock.Now()
			r.store(ctx, origin, destination, entry)
			r.store(ctx, destination, origin, entry)
			return r.record(Result{
				OriginZip:       origin,
				DestinationZip:  destination,
				Miles:           entry.Miles,
				DurationMinutes: entry.DurationMinutes,
				Source:          SourceProvider,
			})
		}
		r.log.WithContext(ctx).UpstreamFallback("distance_matrix", "lookup failed", err)
	}

	return r.record(Estimate(origin, destination))
}

func (r *Resolver) fromCache(ctx context.Context, origin, destination string) (Result, bool) {
	entry, ok, err := r.cache.Get(ctx, origin, destination)
	if err != nil {
		r.log.WithContext(ctx).Warn("distance cache read failed", "error", err)
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	return Result{
		OriginZip:       origin,
		DestinationZip:  destination,
		Miles:           entry.Miles,
		DurationMinutes: entry.DurationMinutes,
		Source:          SourceCache,
	}, true
}

func (r *Resolver) store(ctx context.Context, origin, destination string, entry Entry) {
	if err := r.cache.Set(ctx, origin, destination, entry); err != nil {
		r.log.WithContext(ctx).Warn("distance cache write failed", "error", err)
	}
}

func (r *Resolver) record(result Result) Result {
	metrics.DistanceResolutions.WithLabelValues(string(result.Source)).Inc()
	return result
}
