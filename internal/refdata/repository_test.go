package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/locate-pricing/internal/database"
	"github.com/aristath/locate-pricing/internal/kernel"
	"github.com/aristath/locate-pricing/internal/pricingerr"
)

func newTestRepository(t *testing.T) *Repository {
	db, err := database.New(database.Config{
		Path:    "file::memory:?cache=shared",
		Profile: database.ProfileStandard,
		Name:    "refdata_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := New(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func seedSecurity(t *testing.T, repo *Repository, ticker, minRate string, active bool) {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := repo.db.Conn().Exec(
		`INSERT INTO securities (ticker, ticker_min_rate, active, updated_at) VALUES (?, ?, ?, ?)`,
		ticker, minRate, activeInt, time.Now().Format(time.RFC3339))
	require.NoError(t, err)
}

func seedBrokerConfig(t *testing.T, repo *Repository, clientID string, active bool) {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err := repo.db.Conn().Exec(
		`INSERT INTO broker_configs (client_id, markup_percentage, txn_fee_type, txn_fee_amount, rate_limit_per_minute, active, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		clientID, "5.00", string(kernel.TxnFeeFlat), "25.00", 60, activeInt, time.Now().Format(time.RFC3339))
	require.NoError(t, err)
}

func TestRepository_GetSecurity_Found(t *testing.T) {
	repo := newTestRepository(t)
	seedSecurity(t, repo, "AAPL", "0.0010", true)

	sec, err := repo.GetSecurity(context.Background(), "corr-1", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sec.Ticker)
	assert.True(t, sec.TickerMinRate.Equal(decimal.RequireFromString("0.0010")))
}

func TestRepository_GetSecurity_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetSecurity(context.Background(), "corr-1", "UNKNOWN")
	require.Error(t, err)
	perr, ok := pricingerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pricingerr.KindTickerNotFound, perr.Kind)
}

func TestRepository_GetSecurity_Inactive(t *testing.T) {
	repo := newTestRepository(t)
	seedSecurity(t, repo, "DELISTED", "0.0010", false)

	_, err := repo.GetSecurity(context.Background(), "corr-1", "DELISTED")
	require.Error(t, err)
	perr, ok := pricingerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pricingerr.KindTickerNotFound, perr.Kind)
}

func TestRepository_GetActiveBrokerConfig_Found(t *testing.T) {
	repo := newTestRepository(t)
	seedBrokerConfig(t, repo, "client-1", true)

	cfg, err := repo.GetActiveBrokerConfig(context.Background(), "corr-1", "client-1")
	require.NoError(t, err)
	assert.Equal(t, "client-1", cfg.ClientID)
	assert.Equal(t, kernel.TxnFeeFlat, cfg.TxnFeeType)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
}

func TestRepository_GetActiveBrokerConfig_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetActiveBrokerConfig(context.Background(), "corr-1", "unknown-client")
	require.Error(t, err)
	perr, ok := pricingerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pricingerr.KindClientNotFound, perr.Kind)
}

func TestRepository_GetFallbackMinRate_FoundAndMissing(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.db.Conn().Exec(
		`INSERT INTO fallback_min_rates (ticker, rate, updated_at) VALUES (?, ?, ?)`,
		"AAPL", "0.0015", time.Now().Format(time.RFC3339))
	require.NoError(t, err)

	rate, found, err := repo.GetFallbackMinRate(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, rate.Equal(decimal.RequireFromString("0.0015")))

	_, found, err = repo.GetFallbackMinRate(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRepository_InsertAuditLog(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.InsertAuditLog(context.Background(), AuditEntry{
		CorrelationID:  "corr-1",
		ClientID:       "client-1",
		Ticker:         "AAPL",
		TotalFee:       decimal.RequireFromString("542.81"),
		BorrowRateUsed: decimal.RequireFromString("0.0600"),
		FallbackUsed:   "NONE",
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, repo.db.Conn().QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&count))
	assert.Equal(t, 1, count)
}
