package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// l1Entry is what L1 actually stores: the raw envelope bytes plus the
// already-decoded freshness boundary, so overflow eviction doesn't need to
// touch JSON.
type l1Entry struct {
	raw       []byte
	expiresAt time.Time
}

// l1 is the in-process layer: bounded by LRU capacity, TTL-bounded per
// entry, safe for concurrent reads. Single-flight de-duplication lives one
// level up in Tier, shared between an L1 miss and an L2 miss so only one
// loader call is ever in flight per key process-wide.
type l1 struct {
	mu    sync.RWMutex
	cache *lru.Cache[string, l1Entry]
}

// newL1 creates an L1 cache bounded to capacity entries.
func newL1(capacity int) *l1 {
	c, err := lru.New[string, l1Entry](capacity)
	if err != nil {
		// Only returns an error for a non-positive capacity; fall back to a
		// sane default rather than panicking in a hot path constructor.
		c, _ = lru.New[string, l1Entry](1024)
	}
	return &l1{cache: c}
}

// get returns the raw bytes and whether they are still within TTL. Stale
// entries are returned with fresh=false rather than evicted, so callers can
// still use them as a stale-cache fallback.
func (l *l1) get(key string) (raw []byte, fresh bool, found bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.cache.Peek(key)
	if !ok {
		return nil, false, false
	}
	return e.raw, time.Now().Before(e.expiresAt), true
}

func (l *l1) set(key string, raw []byte, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Add(key, l1Entry{raw: raw, expiresAt: time.Now().Add(ttl)})
}

func (l *l1) delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.Remove(key)
}

func (l *l1) deletePrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.cache.Keys() {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			l.cache.Remove(k)
		}
	}
}
