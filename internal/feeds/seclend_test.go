package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/locate-pricing/internal/cache"
)

func noPersisted(context.Context) (SecLendQuote, bool, error) {
	return SecLendQuote{}, false, nil
}

func TestSecLendClient_LiveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate":"0.0600","status":"EASY"}`))
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewSecLendClient(srv.URL, "test-key", time.Second, tier)

	quote, prov, err := client.Quote(context.Background(), "AAPL", noPersisted)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceLive, prov)
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("0.0600")))
	assert.Equal(t, BorrowStatusEasy, quote.Status)
}

func TestSecLendClient_FallsBackToPersistedOnUpstreamOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewSecLendClient(srv.URL, "test-key", 200*time.Millisecond, tier)

	persisted := func(context.Context) (SecLendQuote, bool, error) {
		return SecLendQuote{Rate: decimal.RequireFromString("0.0010")}, true, nil
	}

	quote, prov, err := client.Quote(context.Background(), "AAPL", persisted)
	require.NoError(t, err)
	assert.Equal(t, ProvenancePersistedFallback, prov)
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("0.0010")))
}

func TestSecLendClient_FallsBackToGlobalDefaultWithNothingElse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewSecLendClient(srv.URL, "test-key", 200*time.Millisecond, tier)

	quote, prov, err := client.Quote(context.Background(), "AAPL", noPersisted)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceGlobalDefault, prov)
	assert.True(t, quote.Rate.IsZero())
}

func TestSecLendClient_PrefersCacheOverPersistedWhenLiveFails(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Write([]byte(`{"rate":"0.0500","status":"MEDIUM"}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewSecLendClient(srv.URL, "test-key", 200*time.Millisecond, tier)

	persisted := func(context.Context) (SecLendQuote, bool, error) {
		return SecLendQuote{Rate: decimal.RequireFromString("0.0010")}, true, nil
	}

	// First call hits the live feed and, as a side effect, writes the
	// quote into the tier. Second call hits the now-down feed and should
	// fall through to that cached value rather than the persisted rate.
	first, prov, err := client.Quote(context.Background(), "MSFT", persisted)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceLive, prov)
	assert.True(t, first.Rate.Equal(decimal.RequireFromString("0.0500")))

	quote, prov, err := client.Quote(context.Background(), "MSFT", persisted)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceFreshCache, prov)
	assert.True(t, quote.Rate.Equal(decimal.RequireFromString("0.0500")))
}
