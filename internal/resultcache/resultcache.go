// Package resultcache implements an idempotent result cache: a thin,
// single-category wrapper over the cache Tier keyed by a request
// fingerprint, so two identical requests arriving concurrently collapse
// onto one kernel computation via the Tier's single-flight
// de-duplication.
package resultcache

import (
	"context"

	"github.com/aristath/locate-pricing/internal/cache"
)

type ResultCache struct {
	tier *cache.Tier
}

func New(tier *cache.Tier) *ResultCache {
	return &ResultCache{tier: tier}
}

// Get returns the cached fee result for fingerprint, computing it via
// load on a miss. Concurrent callers with the same fingerprint share one
// load call.
func (r *ResultCache) Get(ctx context.Context, fingerprint string, out interface{}, load cache.Loader) error {
	return r.tier.Get(ctx, cache.CategoryCalcResult, fingerprint, out, load)
}

// PurgeAll invalidates every cached result. Its only caller is the admin
// cache-purge endpoint; nothing in this engine calls it when a broker
// config changes, so until the purge or the calc_result TTL, a cached
// result keeps the markup and fee policy it was computed with.
func (r *ResultCache) PurgeAll(ctx context.Context) error {
	return r.tier.InvalidateCategory(ctx, cache.CategoryCalcResult)
}
