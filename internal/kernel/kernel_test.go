package kernel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/locate-pricing/internal/pricingerr"
)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func defaultRateInputs() RateInputs {
	return RateInputs{
		VolatilityFactor: mustDec("0.01"),
		EventFactor:      mustDec("0.05"),
		GlobalMinRate:    mustDec("0.0001"),
	}
}

// Baseline scenario: volatility index 20, no event risk.
func TestBorrowRate_Baseline(t *testing.T) {
	in := defaultRateInputs()
	in.BaseRate = mustDec("0.05")
	in.VolatilityIndex = mustDec("20.0")
	in.EventRiskFactor = mustDec("0")
	in.TickerMinRate = mustDec("0.0001")

	rate, err := BorrowRate(in, "corr-1")
	require.NoError(t, err)
	assert.True(t, rate.Equal(mustDec("0.0600")), "got %s", rate)
}

// Scenario 2: high volatility with event risk.
func TestBorrowRate_HighVolatilityWithEvent(t *testing.T) {
	in := defaultRateInputs()
	in.BaseRate = mustDec("0.05")
	in.VolatilityIndex = mustDec("40.0")
	in.EventRiskFactor = mustDec("5")
	in.TickerMinRate = mustDec("0.0001")

	rate, err := BorrowRate(in, "corr-2")
	require.NoError(t, err)
	assert.True(t, rate.Equal(mustDec("0.0825")), "got %s", rate)
}

// Scenario 4: ticker minimum floors the rate regardless of the multiplier.
func TestBorrowRate_MinRateFloor(t *testing.T) {
	in := defaultRateInputs()
	in.BaseRate = mustDec("0.00005")
	in.VolatilityIndex = mustDec("20.0")
	in.EventRiskFactor = mustDec("0")
	in.TickerMinRate = mustDec("0.001")

	rate, err := BorrowRate(in, "corr-4")
	require.NoError(t, err)
	assert.True(t, rate.Equal(mustDec("0.0010")), "got %s", rate)
}

func TestBorrowRate_GlobalMinWinsOverTickerMin(t *testing.T) {
	in := defaultRateInputs()
	in.GlobalMinRate = mustDec("0.002")
	in.BaseRate = mustDec("0.00001")
	in.VolatilityIndex = mustDec("0")
	in.EventRiskFactor = mustDec("0")
	in.TickerMinRate = mustDec("0.001")

	rate, err := BorrowRate(in, "corr")
	require.NoError(t, err)
	assert.True(t, rate.Equal(mustDec("0.0020")))
}

func TestBorrowRate_NegativeInputsRejected(t *testing.T) {
	in := defaultRateInputs()
	in.BaseRate = mustDec("-0.01")
	in.TickerMinRate = mustDec("0.0001")

	_, err := BorrowRate(in, "corr")
	require.Error(t, err)
	pe, ok := pricingerr.As(err)
	require.True(t, ok)
	assert.Equal(t, pricingerr.KindValidation, pe.Kind)
}

// Scenario 1 fee breakdown.
func TestComputeFee_Baseline(t *testing.T) {
	fee, err := ComputeFee(FeeInputs{
		AnnualRate:    mustDec("0.060"),
		PositionValue: mustDec("100000"),
		LoanDays:      30,
		DaysInYear:    365,
		MarkupPct:     mustDec("5.0"),
		TxnFeeType:    TxnFeeFlat,
		TxnFeeAmount:  mustDec("25.00"),
	}, "corr-1")
	require.NoError(t, err)

	assert.True(t, fee.BorrowCost.Equal(mustDec("493.15")), "borrow cost %s", fee.BorrowCost)
	assert.True(t, fee.Markup.Equal(mustDec("24.66")), "markup %s", fee.Markup)
	assert.True(t, fee.TransactionFees.Equal(mustDec("25.00")))
	assert.True(t, fee.TotalFee.Equal(mustDec("542.81")), "total %s", fee.TotalFee)
}

// Scenario 3: percentage transaction fee.
func TestComputeFee_PercentageTransactionFee(t *testing.T) {
	fee, err := ComputeFee(FeeInputs{
		AnnualRate:    mustDec("0.060"),
		PositionValue: mustDec("100000"),
		LoanDays:      30,
		DaysInYear:    365,
		MarkupPct:     mustDec("5.0"),
		TxnFeeType:    TxnFeePercentage,
		TxnFeeAmount:  mustDec("0.5"),
	}, "corr-3")
	require.NoError(t, err)

	assert.True(t, fee.TransactionFees.Equal(mustDec("500.00")))
	assert.True(t, fee.TotalFee.Equal(fee.BorrowCost.Add(fee.Markup).Add(fee.TransactionFees)))
}

func TestComputeFee_TotalIsExactSumOfComponents(t *testing.T) {
	cases := []FeeInputs{
		{AnnualRate: mustDec("0.08"), PositionValue: mustDec("50000"), LoanDays: 1, DaysInYear: 365, MarkupPct: mustDec("3"), TxnFeeType: TxnFeeFlat, TxnFeeAmount: mustDec("10")},
		{AnnualRate: mustDec("0.1234"), PositionValue: mustDec("1234567"), LoanDays: 90, DaysInYear: 365, MarkupPct: mustDec("7.25"), TxnFeeType: TxnFeePercentage, TxnFeeAmount: mustDec("1.1")},
	}
	for _, in := range cases {
		fee, err := ComputeFee(in, "corr")
		require.NoError(t, err)
		assert.True(t, fee.TotalFee.Equal(fee.BorrowCost.Add(fee.Markup).Add(fee.TransactionFees)))
		assert.False(t, fee.TotalFee.IsNegative())
	}
}

func TestComputeFee_BoundaryRejections(t *testing.T) {
	base := FeeInputs{
		AnnualRate:    mustDec("0.05"),
		PositionValue: mustDec("1000"),
		LoanDays:      10,
		DaysInYear:    365,
		MarkupPct:     mustDec("1"),
		TxnFeeType:    TxnFeeFlat,
		TxnFeeAmount:  mustDec("1"),
	}

	zeroPosition := base
	zeroPosition.PositionValue = decimal.Zero
	_, err := ComputeFee(zeroPosition, "corr")
	require.Error(t, err)

	zeroLoanDays := base
	zeroLoanDays.LoanDays = 0
	_, err = ComputeFee(zeroLoanDays, "corr")
	require.Error(t, err)

	zeroDaysInYear := base
	zeroDaysInYear.DaysInYear = 0
	_, err = ComputeFee(zeroDaysInYear, "corr")
	require.Error(t, err)
}

func TestComputeFee_OneDayLoan(t *testing.T) {
	fee, err := ComputeFee(FeeInputs{
		AnnualRate:    mustDec("0.0365"),
		PositionValue: mustDec("365000"),
		LoanDays:      1,
		DaysInYear:    365,
		MarkupPct:     decimal.Zero,
		TxnFeeType:    TxnFeeFlat,
		TxnFeeAmount:  decimal.Zero,
	}, "corr")
	require.NoError(t, err)
	// 365000 * 0.0365 * 1/365 = 36.5
	assert.True(t, fee.BorrowCost.Equal(mustDec("36.50")))
}

func TestComputeFee_MonotonicInRate(t *testing.T) {
	low := FeeInputs{AnnualRate: mustDec("0.02"), PositionValue: mustDec("10000"), LoanDays: 30, DaysInYear: 365, MarkupPct: mustDec("1"), TxnFeeType: TxnFeeFlat, TxnFeeAmount: mustDec("5")}
	high := low
	high.AnnualRate = mustDec("0.08")

	feeLow, err := ComputeFee(low, "corr")
	require.NoError(t, err)
	feeHigh, err := ComputeFee(high, "corr")
	require.NoError(t, err)

	assert.True(t, feeHigh.TotalFee.GreaterThanOrEqual(feeLow.TotalFee))
}
