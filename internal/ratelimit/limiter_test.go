package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/aristath/locate-pricing/internal/cache"
)

func TestLimiter_AllowsWithinBudget(t *testing.T) {
	l := New(cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := l.Allow(ctx, "client-1", 60)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLimiter_RejectsOverSharedWindowBudget(t *testing.T) {
	l := New(cache.NewMemoryStore())
	l.local["client-2"] = rate.NewLimiter(rate.Inf, 1) // isolate the shared-counter path from the local bucket
	ctx := context.Background()

	var rejected bool
	for i := 0; i < 10; i++ {
		allowed, retryAfter, err := l.Allow(ctx, "client-2", 5)
		require.NoError(t, err)
		if !allowed {
			rejected = true
			assert.Greater(t, retryAfter, time.Duration(0))
			break
		}
	}
	assert.True(t, rejected, "expected at least one rejection once the per-minute budget of 5 is exceeded")
}

func TestLimiter_DifferentClientsHaveIndependentBudgets(t *testing.T) {
	l := New(cache.NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "client-a", 5)
		require.NoError(t, err)
		require.True(t, allowed)
	}
	allowed, _, err := l.Allow(ctx, "client-b", 5)
	require.NoError(t, err)
	assert.True(t, allowed)
}
