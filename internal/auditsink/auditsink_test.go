package auditsink

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/locate-pricing/internal/database"
	"github.com/aristath/locate-pricing/internal/refdata"
)

func newTestRepo(t *testing.T) *refdata.Repository {
	db, err := database.New(database.Config{
		Path:    "file::memory:?cache=shared",
		Profile: database.ProfileStandard,
		Name:    "auditsink_test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := refdata.New(db)
	require.NoError(t, repo.Migrate())
	return repo
}

func TestSink_EmitThenStopDrainsQueue(t *testing.T) {
	repo := newTestRepo(t)
	sink := New(repo, zerolog.Nop())
	sink.Start()

	sink.Emit(refdata.AuditEntry{
		CorrelationID:  "corr-1",
		ClientID:       "client-1",
		Ticker:         "AAPL",
		TotalFee:       decimal.RequireFromString("542.81"),
		BorrowRateUsed: decimal.RequireFromString("0.0600"),
		FallbackUsed:   "NONE",
		CreatedAt:      time.Now(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, sink.Stop(ctx))

	var count int
	require.NoError(t, repo.DB().QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&count))
	assert.Equal(t, 1, count)
	assert.EqualValues(t, 0, sink.Dropped())
}

func TestSink_OverflowDropsOldestAndCounts(t *testing.T) {
	repo := newTestRepo(t)
	sink := New(repo, zerolog.Nop())
	sink.capacity = 2

	for i := 0; i < 5; i++ {
		sink.Emit(refdata.AuditEntry{CorrelationID: "corr", ClientID: "c", Ticker: "AAPL", CreatedAt: time.Now()})
	}

	assert.EqualValues(t, 3, sink.Dropped())
	assert.Len(t, sink.buf, 2)
}
