package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader materializes a fresh value for a cache-tier miss. It is the only
// place network or database I/O happens in this package.
type Loader func(ctx context.Context) (interface{}, error)

// Tier is a two-level cache: L1 (in-process, TTL+LRU) in front of L2
// (shared, longer TTL, authoritative across replicas), with
// single-flight de-duplication of concurrent misses.
type Tier struct {
	l1    *l1
	l2    Store
	ttls  map[Category]time.Duration
	group singleflight.Group
}

// New creates a Cache Tier. ttlOverrides may override any of DefaultTTLs;
// unspecified categories keep their default.
func New(l2 Store, l1Capacity int, ttlOverrides map[Category]time.Duration) *Tier {
	ttls := make(map[Category]time.Duration, len(DefaultTTLs))
	for c, d := range DefaultTTLs {
		ttls[c] = d
	}
	for c, d := range ttlOverrides {
		ttls[c] = d
	}
	return &Tier{
		l1:   newL1(l1Capacity),
		l2:   l2,
		ttls: ttls,
	}
}

// Get implements the read path: L1 -> L2 -> loader -> write-back to both
// layers. A category TTL of 0 disables caching entirely for that category,
// and the loader runs on every call. out must be a pointer; the decoded
// value is written into it.
func (t *Tier) Get(ctx context.Context, category Category, identity string, out interface{}, load Loader) error {
	ttl := t.ttls[category]
	key := Key(category, identity)

	if ttl <= 0 {
		v, err := load(ctx)
		if err != nil {
			return err
		}
		return reassign(out, v)
	}

	if raw, fresh, found := t.l1.get(key); found && fresh {
		if _, ok := decodeEnvelope(raw, out); ok {
			return nil
		}
	}

	if raw, found, err := t.l2.Get(ctx, key); err == nil && found {
		if fresh, ok := decodeEnvelope(raw, out); ok && fresh {
			t.l1.set(key, raw, ttl)
			return nil
		}
	}

	raw, err, _ := t.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		enc, err := encodeEnvelope(v, ttl)
		if err != nil {
			return nil, err
		}
		t.l1.set(key, enc, ttl)
		if err := t.l2.Set(ctx, key, enc, ttl*2); err != nil {
			// L2 write failures don't fail the request; L1 still has it for
			// this process, and the next miss will retry L2.
			_ = err
		}
		return enc, nil
	})
	if err != nil {
		return err
	}

	if _, ok := decodeEnvelope(raw.([]byte), out); !ok {
		return fmt.Errorf("cache: failed to decode freshly loaded value for %s", key)
	}
	return nil
}

// GetStale returns the most recent cached value for identity regardless of
// expiry — used by callers that want a stale-but-available fallback rather
// than a hard miss. It checks L1 before L2 since L1 is cheaper, even though L1's LRU
// capacity bound means it may have already evicted what L2 still has.
func (t *Tier) GetStale(ctx context.Context, category Category, identity string, out interface{}) (bool, error) {
	found, _, err := t.GetAny(ctx, category, identity, out)
	return found, err
}

// GetAny is GetStale plus the freshness of whatever it found, so callers
// that distinguish "fresh cache" from "stale cache" provenance (the feed
// fallback ladder) don't need a second lookup.
func (t *Tier) GetAny(ctx context.Context, category Category, identity string, out interface{}) (found bool, fresh bool, err error) {
	key := Key(category, identity)

	if raw, l1Fresh, l1Found := t.l1.get(key); l1Found {
		if _, ok := decodeEnvelope(raw, out); ok {
			return true, l1Fresh, nil
		}
	}

	raw, l2Found, getErr := t.l2.Get(ctx, key)
	if getErr != nil {
		return false, false, getErr
	}
	if !l2Found {
		return false, false, nil
	}
	l2Fresh, ok := decodeEnvelope(raw, out)
	if !ok {
		return false, false, nil
	}
	return true, l2Fresh, nil
}

// Refresh bypasses the read path, always invoking the loader, and writes
// the result back to both layers.
func (t *Tier) Refresh(ctx context.Context, category Category, identity string, load Loader) error {
	ttl := t.ttls[category]
	key := Key(category, identity)

	v, err := load(ctx)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	enc, err := encodeEnvelope(v, ttl)
	if err != nil {
		return err
	}
	t.l1.set(key, enc, ttl)
	return t.l2.Set(ctx, key, enc, ttl*2)
}

// Invalidate purges a single key from both layers. This is only ever
// invoked from administrative ingress, never from the request hot path.
func (t *Tier) Invalidate(ctx context.Context, category Category, identity string) error {
	key := Key(category, identity)
	t.l1.delete(key)
	return t.l2.Delete(ctx, key)
}

// InvalidateCategory purges every key in a category from both layers.
func (t *Tier) InvalidateCategory(ctx context.Context, category Category) error {
	prefix := Key(category, "")
	t.l1.deletePrefix(prefix)
	return t.l2.DeletePrefix(ctx, prefix)
}

// reassign copies v (already the concrete loaded type) into the pointer out
// via a JSON round-trip, keeping Get's "no-cache" branch's contract
// identical to the cached branch (decode into out).
func reassign(out interface{}, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal uncached value: %w", err)
	}
	return json.Unmarshal(data, out)
}
