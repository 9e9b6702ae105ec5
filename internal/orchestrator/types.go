package orchestrator

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/kernel"
)

// Config carries the knobs SPEC_FULL.md §2.3 leaves to configuration rather
// than hard-coding in the kernel: the weights applied to volatility and
// event-risk inputs, the global rate floor, and the feed fan-out budget.
type Config struct {
	DaysInYear             int64
	VolatilityFactor       decimal.Decimal
	EventFactor            decimal.Decimal
	DefaultVolatilityIndex decimal.Decimal
	DefaultEventRiskFactor decimal.Decimal
	DefaultGlobalMinRate   decimal.Decimal
	FanOutTimeout          time.Duration
}

// ComputeFeeRequest is the input to ComputeFee.
type ComputeFeeRequest struct {
	ClientID      string
	Ticker        string
	PositionValue decimal.Decimal
	LoanDays      int64
}

// Breakdown is the per-component decomposition of a computed fee.
type Breakdown struct {
	BorrowCost      decimal.Decimal `json:"borrow_cost"`
	Markup          decimal.Decimal `json:"markup"`
	TransactionFees decimal.Decimal `json:"transaction_fees"`
}

// ComputeFeeResponse is the full priced result, with provenance for every
// feed-derived input so a caller can tell a live quote from a degraded one
// without it ever being surfaced as an error.
type ComputeFeeResponse struct {
	Status         string          `json:"status"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	Breakdown      Breakdown       `json:"breakdown"`
	BorrowRateUsed decimal.Decimal `json:"borrow_rate_used"`

	CorrelationID string     `json:"correlation_id"`
	ClientID      string     `json:"client_id"`
	Ticker        string     `json:"ticker"`
	FallbackUsed  bool       `json:"fallback_used"`
	Provenance    Provenance `json:"provenance"`
}

// Provenance records, per feed-derived input, which rung of the fallback
// ladder produced the value actually used.
type Provenance struct {
	BorrowRate string `json:"borrow_rate"`
	Volatility string `json:"volatility"`
	EventRisk  string `json:"event_risk"`
}

// CurrentRateResponse is the result of GetCurrentRate.
type CurrentRateResponse struct {
	CurrentRate  decimal.Decimal     `json:"current_rate"`
	BorrowStatus kernel.BorrowStatus `json:"borrow_status"`
	AsOf         time.Time           `json:"as_of"`
	Source       string              `json:"source"`

	CorrelationID string     `json:"correlation_id"`
	Ticker        string     `json:"ticker"`
	FallbackUsed  bool       `json:"fallback_used"`
	Provenance    Provenance `json:"provenance"`
}
