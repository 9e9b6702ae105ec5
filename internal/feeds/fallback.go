package feeds

import (
	"context"

	"github.com/aristath/locate-pricing/internal/cache"
)

// resolve runs the fallback ladder for a single feed value:
// live call, then fresh cache, then stale cache, then a caller-supplied
// persisted fallback (reference data), then a global default. The first
// rung to succeed wins; a feed outage is never surfaced as an error as
// long as some rung below it produces a value.
//
// persisted may be nil when a feed has no persisted-fallback table (event
// risk has none; it falls straight to the global default).
func resolve[T any](
	ctx context.Context,
	tier *cache.Tier,
	category cache.Category,
	identity string,
	live func(context.Context) (T, error),
	persisted func(context.Context) (T, bool, error),
	globalDefault T,
) (T, Provenance, error) {
	if v, err := live(ctx); err == nil {
		// Write the live value back into the tier so a subsequent outage can
		// fall through to FRESH_CACHE/STALE_CACHE instead of jumping straight
		// to the persisted fallback or global default.
		value := v
		_ = tier.Refresh(ctx, category, identity, func(context.Context) (interface{}, error) {
			return value, nil
		})
		return v, ProvenanceLive, nil
	}

	var cached T
	found, fresh, cacheErr := tier.GetAny(ctx, category, identity, &cached)
	if cacheErr == nil && found {
		if fresh {
			return cached, ProvenanceFreshCache, nil
		}
		return cached, ProvenanceStaleCache, nil
	}

	if persisted != nil {
		if v, ok, err := persisted(ctx); err == nil && ok {
			return v, ProvenancePersistedFallback, nil
		}
	}

	return globalDefault, ProvenanceGlobalDefault, nil
}
