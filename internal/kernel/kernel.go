// Package kernel implements the Formula Kernel: pure, side-effect-free
// functions computing borrow rate and locate fee from fully materialized
// inputs. Nothing in this package performs I/O or logging, and nothing here
// is allowed to suspend — see internal/kernel's test suite for the exhaustive
// property checks this is held to.
package kernel

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/pricingerr"
)

// Rounding rules: rates round to 4 places, currency to 2, both half-even,
// applied only at component boundaries.
const (
	RatePlaces     = 4
	CurrencyPlaces = 2
)

// RateInputs are the fully resolved inputs to BorrowRate.
type RateInputs struct {
	BaseRate         decimal.Decimal // live (or fallback) rate from the SecLend feed
	VolatilityIndex  decimal.Decimal // raw index value, e.g. 20.0 (not a fraction)
	EventRiskFactor  decimal.Decimal // integer 0..10
	TickerMinRate    decimal.Decimal // Security.min_borrow_rate
	GlobalMinRate    decimal.Decimal // DEFAULT_MINIMUM_BORROW_RATE
	VolatilityFactor decimal.Decimal // DEFAULT_VOLATILITY_FACTOR, default 0.01
	EventFactor      decimal.Decimal // DEFAULT_EVENT_RISK_FACTOR, default 0.05
}

// FeeInputs are the fully resolved inputs to ComputeFee.
type FeeInputs struct {
	AnnualRate    decimal.Decimal
	PositionValue decimal.Decimal
	LoanDays      int64
	DaysInYear    int64
	MarkupPct     decimal.Decimal
	TxnFeeType    TxnFeeType
	TxnFeeAmount  decimal.Decimal
}

// TxnFeeType is the broker's transaction-fee structure.
type TxnFeeType string

const (
	TxnFeeFlat       TxnFeeType = "FLAT"
	TxnFeePercentage TxnFeeType = "PERCENTAGE"
)

// BorrowStatus describes how hard a security is to locate.
type BorrowStatus string

const (
	BorrowStatusEasy   BorrowStatus = "EASY"
	BorrowStatusMedium BorrowStatus = "MEDIUM"
	BorrowStatusHard   BorrowStatus = "HARD"
)

// ClampEventRiskFactor bounds a raw event-risk score to the integer range
// BorrowRate requires, rounding to the nearest whole number first.
func ClampEventRiskFactor(raw decimal.Decimal) decimal.Decimal {
	rounded := raw.RoundBank(0)
	if rounded.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	ten := decimal.NewFromInt(10)
	if rounded.GreaterThan(ten) {
		return ten
	}
	return rounded
}

// Fee is the computed breakdown of a locate fee. TotalFee is always the exact
// sum of the three components, computed after each is independently rounded.
type Fee struct {
	BorrowCost       decimal.Decimal
	Markup           decimal.Decimal
	TransactionFees  decimal.Decimal
	TotalFee         decimal.Decimal
	BorrowRateUsed   decimal.Decimal
}

// roundRate and roundCurrency apply half-even ("banker's") rounding, not
// the half-away-from-zero behavior of decimal.Decimal.Round.
func roundRate(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(RatePlaces)
}

func roundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(CurrencyPlaces)
}

// BorrowRate computes the annualized borrow rate:
//
//	adjusted = base_rate * (1 + volatility_index*vol_factor + event_risk_factor*event_factor)
//	rate     = max(adjusted, ticker_min_rate, global_min_rate)
//
// Rounded half-even to 4 decimal places at the boundary.
func BorrowRate(in RateInputs, correlationID string) (decimal.Decimal, error) {
	if in.BaseRate.IsNegative() || in.VolatilityIndex.IsNegative() ||
		in.EventRiskFactor.IsNegative() || in.TickerMinRate.IsNegative() ||
		in.GlobalMinRate.IsNegative() {
		return decimal.Zero, pricingerr.New(pricingerr.KindValidation, correlationID, "rate inputs must be non-negative")
	}

	multiplier := decimal.NewFromInt(1).
		Add(in.VolatilityIndex.Mul(in.VolatilityFactor)).
		Add(in.EventRiskFactor.Mul(in.EventFactor))

	adjusted := in.BaseRate.Mul(multiplier)

	floor := in.TickerMinRate
	if in.GlobalMinRate.GreaterThan(floor) {
		floor = in.GlobalMinRate
	}

	result := adjusted
	if floor.GreaterThan(result) {
		result = floor
	}

	return roundRate(result), nil
}

// ComputeFee computes the locate-fee breakdown from resolved annual rate, position
// value, loan duration, and broker markup/transaction-fee configuration.
//
// Returns a ValidationError (via pricingerr) if any input is negative, position
// value is zero, loan_days <= 0, or days_in_year <= 0.
func ComputeFee(in FeeInputs, correlationID string) (Fee, error) {
	if in.AnnualRate.IsNegative() {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "annual rate must be non-negative")
	}
	if in.PositionValue.IsNegative() || in.PositionValue.IsZero() {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "position value must be positive")
	}
	if in.LoanDays <= 0 {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "loan days must be positive")
	}
	if in.DaysInYear <= 0 {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "days in year must be positive")
	}
	if in.MarkupPct.IsNegative() {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "markup percentage must be non-negative")
	}
	if in.TxnFeeAmount.IsNegative() {
		return Fee{}, pricingerr.New(pricingerr.KindValidation, correlationID, "transaction fee amount must be non-negative")
	}

	loanDays := decimal.NewFromInt(in.LoanDays)
	daysInYear := decimal.NewFromInt(in.DaysInYear)

	rawBorrowCost := in.PositionValue.Mul(in.AnnualRate).Mul(loanDays).Div(daysInYear)
	borrowCost := roundCurrency(rawBorrowCost)

	rawMarkup := borrowCost.Mul(in.MarkupPct).Div(decimal.NewFromInt(100))
	markup := roundCurrency(rawMarkup)

	var rawTxnFees decimal.Decimal
	switch in.TxnFeeType {
	case TxnFeePercentage:
		rawTxnFees = in.PositionValue.Mul(in.TxnFeeAmount).Div(decimal.NewFromInt(100))
	default: // FLAT, and any unrecognized value defaults to flat per the amount given
		rawTxnFees = in.TxnFeeAmount
	}
	txnFees := roundCurrency(rawTxnFees)

	total := borrowCost.Add(markup).Add(txnFees)

	return Fee{
		BorrowCost:      borrowCost,
		Markup:          markup,
		TransactionFees: txnFees,
		TotalFee:        total,
		BorrowRateUsed:  in.AnnualRate,
	}, nil
}
