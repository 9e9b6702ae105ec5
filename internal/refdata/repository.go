// Package refdata is the reference data store: persisted securities,
// broker configurations and fallback minimum rates, plus the append-only
// audit log internal/auditsink writes to.
package refdata

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/database"
	"github.com/aristath/locate-pricing/internal/kernel"
	"github.com/aristath/locate-pricing/internal/pricingerr"
)

// Security is a row of the securities table: the ticker-level floor the
// Formula Kernel applies on top of whatever the global minimum is, plus
// the persisted borrow-status opinion used whenever the live feed is
// unavailable.
type Security struct {
	Ticker        string
	TickerMinRate decimal.Decimal
	BorrowStatus  kernel.BorrowStatus
	Active        bool
}

// BrokerConfig is a row of the broker_configs table: the per-client
// markup and transaction-fee policy the orchestrator feeds into the
// kernel.
type BrokerConfig struct {
	ClientID           string
	MarkupPercentage   decimal.Decimal
	TxnFeeType         kernel.TxnFeeType
	TxnFeeAmount       decimal.Decimal
	RateLimitPerMinute int
	Active             bool
}

// Repository is the single persistence gateway for the pricing engine's
// reference tables, built on top of internal/database's pooled,
// PRAGMA-tuned SQLite wrapper.
type Repository struct {
	db *database.DB
}

func New(db *database.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying wrapper for callers (tests, health checks)
// that need direct access beyond this repository's methods.
func (r *Repository) DB() *database.DB {
	return r.db
}

// Migrate bootstraps the schema. Safe to call on every startup.
func (r *Repository) Migrate() error {
	return r.db.Migrate(schemaSQL)
}

// GetSecurity looks up a ticker's reference row. A missing or inactive
// ticker is a TickerNotFound error, not a fallback case — an unknown
// ticker is a client error, distinct from an unreachable feed.
func (r *Repository) GetSecurity(ctx context.Context, correlationID, ticker string) (Security, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT ticker, ticker_min_rate, borrow_status, active FROM securities WHERE ticker = ?`, ticker)

	var sec Security
	var minRate, status string
	var active int
	if err := row.Scan(&sec.Ticker, &minRate, &status, &active); err != nil {
		if err == sql.ErrNoRows {
			return Security{}, pricingerr.New(pricingerr.KindTickerNotFound, correlationID, "unknown ticker: "+ticker)
		}
		return Security{}, pricingerr.Wrap(pricingerr.KindInternal, correlationID, "query security", err)
	}
	if active == 0 {
		return Security{}, pricingerr.New(pricingerr.KindTickerNotFound, correlationID, "ticker is not active: "+ticker)
	}
	rate, err := decimal.NewFromString(minRate)
	if err != nil {
		return Security{}, pricingerr.Wrap(pricingerr.KindInternal, correlationID, "parse ticker_min_rate", err)
	}
	sec.TickerMinRate = rate
	sec.BorrowStatus = kernel.BorrowStatus(status)
	sec.Active = true
	return sec, nil
}

// GetActiveBrokerConfig looks up a client's fee policy. A missing or
// inactive client is a ClientNotFound error.
func (r *Repository) GetActiveBrokerConfig(ctx context.Context, correlationID, clientID string) (BrokerConfig, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT client_id, markup_percentage, txn_fee_type, txn_fee_amount, rate_limit_per_minute, active
		 FROM broker_configs WHERE client_id = ?`, clientID)

	var cfg BrokerConfig
	var markup, txnAmount string
	var txnType string
	var active int
	if err := row.Scan(&cfg.ClientID, &markup, &txnType, &txnAmount, &cfg.RateLimitPerMinute, &active); err != nil {
		if err == sql.ErrNoRows {
			return BrokerConfig{}, pricingerr.New(pricingerr.KindClientNotFound, correlationID, "unknown client: "+clientID)
		}
		return BrokerConfig{}, pricingerr.Wrap(pricingerr.KindInternal, correlationID, "query broker config", err)
	}
	if active == 0 {
		return BrokerConfig{}, pricingerr.New(pricingerr.KindClientNotFound, correlationID, "client is not active: "+clientID)
	}

	markupDec, err := decimal.NewFromString(markup)
	if err != nil {
		return BrokerConfig{}, pricingerr.Wrap(pricingerr.KindInternal, correlationID, "parse markup_percentage", err)
	}
	txnAmountDec, err := decimal.NewFromString(txnAmount)
	if err != nil {
		return BrokerConfig{}, pricingerr.Wrap(pricingerr.KindInternal, correlationID, "parse txn_fee_amount", err)
	}
	cfg.MarkupPercentage = markupDec
	cfg.TxnFeeType = kernel.TxnFeeType(txnType)
	cfg.TxnFeeAmount = txnAmountDec
	cfg.Active = true
	return cfg, nil
}

// GetFallbackMinRate reads the persisted-fallback rung of the borrow-rate
// ladder. found=false simply means the feed's caller should fall through
// to the global default — this is not an error.
func (r *Repository) GetFallbackMinRate(ctx context.Context, ticker string) (decimal.Decimal, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT rate FROM fallback_min_rates WHERE ticker = ?`, ticker)
	var rateStr string
	if err := row.Scan(&rateStr); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, err
	}
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

// AuditEntry is one row written to the append-only audit log.
type AuditEntry struct {
	CorrelationID  string
	ClientID       string
	Ticker         string
	TotalFee       decimal.Decimal
	BorrowRateUsed decimal.Decimal
	FallbackUsed   string
	CreatedAt      time.Time
}

// InsertAuditLog appends one entry. Called by internal/auditsink's worker,
// never from the request hot path.
func (r *Repository) InsertAuditLog(ctx context.Context, e AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (correlation_id, client_id, ticker, total_fee, borrow_rate_used, fallback_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CorrelationID, e.ClientID, e.Ticker, e.TotalFee.String(), e.BorrowRateUsed.String(), e.FallbackUsed, e.CreatedAt.Format(time.RFC3339))
	return err
}
