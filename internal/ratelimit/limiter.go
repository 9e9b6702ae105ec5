// Package ratelimit implements per-client admission control: a token
// bucket enforced locally for within-process burst smoothing, and
// cross-replica via the shared L2 store's atomic counter.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aristath/locate-pricing/internal/cache"
)

// Client tier defaults.
const (
	DefaultStandardPerMinute = 60
	DefaultPremiumPerMinute  = 300
	DefaultInternalPerMinute = 1000
	DefaultBurst             = 100
)

// Limiter admits or rejects a client's request before the orchestrator is
// ever invoked.
type Limiter struct {
	store cache.Store

	mu       sync.Mutex
	local    map[string]*rate.Limiter
	burst    int
	windowFn func() time.Time
}

func New(store cache.Store) *Limiter {
	return &Limiter{
		store:    store,
		local:    make(map[string]*rate.Limiter),
		burst:    DefaultBurst,
		windowFn: time.Now,
	}
}

// Allow admits one request for clientID against limitPerMinute. It first
// consults a process-local token bucket (cheap, smooths bursts without a
// round trip), then a shared fixed-window counter in the L2 store so a
// client fanning requests across replicas is still bounded in aggregate.
func (l *Limiter) Allow(ctx context.Context, clientID string, limitPerMinute int) (allowed bool, retryAfter time.Duration, err error) {
	if !l.localLimiterFor(clientID, limitPerMinute).Allow() {
		return false, time.Second, nil
	}

	now := l.windowFn()
	windowStart := now.Unix() / 60
	key := fmt.Sprintf("ratelimit:%s:%d", clientID, windowStart)

	count, incrErr := l.store.Incr(ctx, key, 60*time.Second)
	if incrErr != nil {
		// A degraded shared store must never itself become an outage: the
		// local bucket above still bounds this replica's admission rate.
		return true, 0, nil
	}
	if count > int64(limitPerMinute) {
		nextWindow := time.Unix((windowStart+1)*60, 0)
		return false, nextWindow.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Limiter) localLimiterFor(clientID string, limitPerMinute int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[clientID]
	if ok {
		return lim
	}
	burst := l.burst
	if limitPerMinute < burst {
		burst = limitPerMinute
	}
	lim = rate.NewLimiter(rate.Limit(float64(limitPerMinute)/60.0), burst)
	l.local[clientID] = lim
	return lim
}
