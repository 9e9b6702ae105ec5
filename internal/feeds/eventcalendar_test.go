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

func TestMaxWithinHorizon_PicksHighestRiskInsideWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{Type: "earnings", Date: now.Add(2 * 24 * time.Hour), RiskScore: decimal.NewFromInt(5)},
		{Type: "dividend", Date: now.Add(3 * 24 * time.Hour), RiskScore: decimal.NewFromInt(8)},
		{Type: "merger", Date: now.Add(30 * 24 * time.Hour), RiskScore: decimal.NewFromInt(10)},
	}
	got := MaxWithinHorizon(7 * 24 * time.Hour)(now, events)
	assert.True(t, got.Equal(decimal.NewFromInt(8)))
}

func TestMaxWithinHorizon_ClampsOutOfRangeRiskScore(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{Type: "merger", Date: now.Add(2 * 24 * time.Hour), RiskScore: decimal.NewFromInt(47)},
	}
	got := MaxWithinHorizon(7 * 24 * time.Hour)(now, events)
	assert.True(t, got.Equal(decimal.NewFromInt(10)), "expected clamp to 10, got %s", got)
}

func TestMaxWithinHorizon_NoQualifyingEventsReturnsZero(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []CalendarEvent{
		{Type: "merger", Date: now.Add(90 * 24 * time.Hour), RiskScore: decimal.NewFromInt(10)},
	}
	got := MaxWithinHorizon(7 * 24 * time.Hour)(now, events)
	assert.True(t, got.IsZero())
}

func TestEventCalendarClient_LiveSuccessAppliesPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"earnings","date":"2026-01-03T00:00:00Z","risk_score":"6"}]`))
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewEventCalendarClient(srv.URL, "k", time.Second, tier, nil)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	risk, prov, err := client.RiskFactor(context.Background(), "AAPL", now, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, ProvenanceLive, prov)
	assert.True(t, risk.Equal(decimal.NewFromInt(6)))
}

func TestEventCalendarClient_MissingFieldTreatedAsFeedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"","date":"2026-01-03T00:00:00Z","risk_score":"6"}]`))
	}))
	defer srv.Close()

	tier := cache.New(cache.NewMemoryStore(), 64, nil)
	client := NewEventCalendarClient(srv.URL, "k", 200*time.Millisecond, tier, nil)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	risk, prov, err := client.RiskFactor(context.Background(), "AAPL", now, decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	assert.Equal(t, ProvenanceGlobalDefault, prov)
	assert.True(t, risk.Equal(decimal.NewFromFloat(0.5)))
}
