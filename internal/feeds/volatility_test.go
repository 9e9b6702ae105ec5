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

func TestVolatilityClient_LiveSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"index":"1.75"}`))
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewVolatilityClient(srv.URL, "k", time.Second, tier)

	idx, prov, err := client.Index(context.Background(), "AAPL", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ProvenanceLive, prov)
	assert.True(t, idx.Equal(decimal.RequireFromString("1.75")))
}

func TestVolatilityClient_GlobalDefaultWhenNothingElseAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewVolatilityClient(srv.URL, "k", 200*time.Millisecond, tier)

	idx, prov, err := client.Index(context.Background(), "AAPL", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, ProvenanceGlobalDefault, prov)
	assert.True(t, idx.Equal(decimal.NewFromInt(1)))
}
