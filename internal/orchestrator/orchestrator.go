// Package orchestrator implements the pricing orchestrator: it validates
// a request, fans the three external feeds out concurrently
// under a deadline, applies the fallback policy each feed already
// implements, invokes the Formula Kernel, and fires an async audit
// emission — all behind the Idempotent Result Cache so duplicate
// concurrent requests collapse onto one computation.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/locate-pricing/internal/auditsink"
	"github.com/aristath/locate-pricing/internal/feeds"
	"github.com/aristath/locate-pricing/internal/kernel"
	"github.com/aristath/locate-pricing/internal/metrics"
	"github.com/aristath/locate-pricing/internal/pricingerr"
	"github.com/aristath/locate-pricing/internal/refdata"
	"github.com/aristath/locate-pricing/internal/resultcache"
)

type Orchestrator struct {
	cfg Config

	refdata    *refdata.Repository
	seclend    *feeds.SecLendClient
	volatility *feeds.VolatilityClient
	events     *feeds.EventCalendarClient

	results *resultcache.ResultCache
	audit   *auditsink.Sink
	metrics metrics.Recorder
	logger  zerolog.Logger
}

func New(
	cfg Config,
	repo *refdata.Repository,
	seclend *feeds.SecLendClient,
	volatility *feeds.VolatilityClient,
	events *feeds.EventCalendarClient,
	results *resultcache.ResultCache,
	audit *auditsink.Sink,
	logger zerolog.Logger,
	recorder metrics.Recorder,
) *Orchestrator {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Orchestrator{
		cfg:        cfg,
		refdata:    repo,
		seclend:    seclend,
		volatility: volatility,
		events:     events,
		results:    results,
		audit:      audit,
		metrics:    recorder,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}
}

type feedOutcome struct {
	quote      feeds.SecLendQuote
	quoteProv  feeds.Provenance
	volatility decimal.Decimal
	volProv    feeds.Provenance
	eventRisk  decimal.Decimal
	eventProv  feeds.Provenance
}

// fanOut concurrently resolves all three feeds, each through its own
// fallback ladder, under a single deadline. A feed outage never fails the
// group — only an unknown ticker or client (checked by the caller before
// fanOut runs) is fatal.
func (o *Orchestrator) fanOut(ctx context.Context, correlationID, ticker string, tickerMinRate decimal.Decimal) (feedOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.FanOutTimeout)
	defer cancel()

	var out feedOutcome
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		quote, prov, err := o.seclend.Quote(gctx, ticker, func(ctx context.Context) (feeds.SecLendQuote, bool, error) {
			rate, found, err := o.refdata.GetFallbackMinRate(ctx, ticker)
			if err != nil || !found {
				return feeds.SecLendQuote{}, false, err
			}
			return feeds.SecLendQuote{Rate: rate, Status: feeds.BorrowStatusHard}, true, nil
		})
		if err != nil {
			return err
		}
		out.quote, out.quoteProv = quote, prov
		return nil
	})

	g.Go(func() error {
		idx, prov, err := o.volatility.Index(gctx, ticker, o.cfg.DefaultVolatilityIndex)
		if err != nil {
			return err
		}
		out.volatility, out.volProv = idx, prov
		return nil
	})

	g.Go(func() error {
		risk, prov, err := o.events.RiskFactor(gctx, ticker, time.Now(), o.cfg.DefaultEventRiskFactor)
		if err != nil {
			return err
		}
		out.eventRisk, out.eventProv = risk, prov
		return nil
	})

	if err := g.Wait(); err != nil {
		return feedOutcome{}, pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, correlationID, "feed fan-out failed", err)
	}
	return out, nil
}

// resolveBorrowStatus applies the feed-wins-on-live, persisted-wins-on-fallback
// policy: the live SecLend status is authoritative when reachable, otherwise
// the persisted Security row's own status opinion is used.
func resolveBorrowStatus(outcome feedOutcome, security refdata.Security) kernel.BorrowStatus {
	if outcome.quoteProv == feeds.ProvenanceLive {
		return kernel.BorrowStatus(outcome.quote.Status)
	}
	return security.BorrowStatus
}

// ComputeFee resolves a full fee breakdown for req, serving an identical
// in-flight or recently-computed request from the result cache.
func (o *Orchestrator) ComputeFee(ctx context.Context, req ComputeFeeRequest) (ComputeFeeResponse, error) {
	correlationID := uuid.NewString()
	start := time.Now()
	latencyLabels := map[string]string{"ticker": req.Ticker}
	defer func() {
		o.metrics.ObserveLatency("compute_fee_seconds", latencyLabels, time.Since(start).Seconds())
	}()

	if req.ClientID == "" || req.Ticker == "" {
		return ComputeFeeResponse{}, pricingerr.New(pricingerr.KindValidation, correlationID, "client_id and ticker are required")
	}
	if req.PositionValue.LessThanOrEqual(decimal.Zero) {
		return ComputeFeeResponse{}, pricingerr.New(pricingerr.KindValidation, correlationID, "position_value must be positive")
	}
	if req.LoanDays <= 0 {
		return ComputeFeeResponse{}, pricingerr.New(pricingerr.KindValidation, correlationID, "loan_days must be positive")
	}

	ticker, err := normalizeTicker(correlationID, req.Ticker)
	if err != nil {
		return ComputeFeeResponse{}, err
	}
	latencyLabels["ticker"] = ticker

	security, err := o.refdata.GetSecurity(ctx, correlationID, ticker)
	if err != nil {
		return ComputeFeeResponse{}, err
	}
	broker, err := o.refdata.GetActiveBrokerConfig(ctx, correlationID, req.ClientID)
	if err != nil {
		return ComputeFeeResponse{}, err
	}

	fp := fingerprint(req.ClientID, ticker, req.PositionValue, req.LoanDays)

	var resp ComputeFeeResponse
	loadErr := o.results.Get(ctx, fp, &resp, func(ctx context.Context) (interface{}, error) {
		outcome, err := o.fanOut(ctx, correlationID, ticker, security.TickerMinRate)
		if err != nil {
			return nil, err
		}

		rate, err := kernel.BorrowRate(kernel.RateInputs{
			BaseRate:         outcome.quote.Rate,
			VolatilityIndex:  outcome.volatility,
			EventRiskFactor:  outcome.eventRisk,
			TickerMinRate:    security.TickerMinRate,
			GlobalMinRate:    o.cfg.DefaultGlobalMinRate,
			VolatilityFactor: o.cfg.VolatilityFactor,
			EventFactor:      o.cfg.EventFactor,
		}, correlationID)
		if err != nil {
			return nil, err
		}

		fee, err := kernel.ComputeFee(kernel.FeeInputs{
			AnnualRate:    rate,
			PositionValue: req.PositionValue,
			LoanDays:      req.LoanDays,
			DaysInYear:    o.cfg.DaysInYear,
			MarkupPct:     broker.MarkupPercentage,
			TxnFeeType:    broker.TxnFeeType,
			TxnFeeAmount:  broker.TxnFeeAmount,
		}, correlationID)
		if err != nil {
			return nil, err
		}

		fallbackUsed := outcome.quoteProv != feeds.ProvenanceLive ||
			outcome.volProv != feeds.ProvenanceLive ||
			outcome.eventProv != feeds.ProvenanceLive

		result := ComputeFeeResponse{
			Status:   "success",
			TotalFee: fee.TotalFee,
			Breakdown: Breakdown{
				BorrowCost:      fee.BorrowCost,
				Markup:          fee.Markup,
				TransactionFees: fee.TransactionFees,
			},
			BorrowRateUsed: fee.BorrowRateUsed,
			CorrelationID:  correlationID,
			ClientID:       req.ClientID,
			Ticker:         ticker,
			FallbackUsed:   fallbackUsed,
			Provenance: Provenance{
				BorrowRate: string(outcome.quoteProv),
				Volatility: string(outcome.volProv),
				EventRisk:  string(outcome.eventProv),
			},
		}

		o.audit.Emit(refdata.AuditEntry{
			CorrelationID:  correlationID,
			ClientID:       req.ClientID,
			Ticker:         ticker,
			TotalFee:       result.TotalFee,
			BorrowRateUsed: result.BorrowRateUsed,
			FallbackUsed:   fallbackUsedLabel(fallbackUsed),
			CreatedAt:      time.Now(),
		})

		o.metrics.IncrCounter("fee_computed_total", map[string]string{
			"ticker":        ticker,
			"fallback_used": fallbackUsedLabel(fallbackUsed),
		})

		return result, nil
	})
	if loadErr != nil {
		return ComputeFeeResponse{}, loadErr
	}

	// A cache hit carries the correlation id of whichever request first
	// computed it; stamp the current request's id on the response we
	// actually return.
	resp.CorrelationID = correlationID
	return resp, nil
}

// GetCurrentRate resolves just the current borrow rate for a ticker,
// without going through the result cache (there is no fee computation to
// de-duplicate, and the feeds already cache their own values).
func (o *Orchestrator) GetCurrentRate(ctx context.Context, rawTicker string) (CurrentRateResponse, error) {
	correlationID := uuid.NewString()

	if rawTicker == "" {
		return CurrentRateResponse{}, pricingerr.New(pricingerr.KindValidation, correlationID, "ticker is required")
	}
	ticker, err := normalizeTicker(correlationID, rawTicker)
	if err != nil {
		return CurrentRateResponse{}, err
	}

	security, err := o.refdata.GetSecurity(ctx, correlationID, ticker)
	if err != nil {
		return CurrentRateResponse{}, err
	}

	outcome, err := o.fanOut(ctx, correlationID, ticker, security.TickerMinRate)
	if err != nil {
		return CurrentRateResponse{}, err
	}

	rate, err := kernel.BorrowRate(kernel.RateInputs{
		BaseRate:         outcome.quote.Rate,
		VolatilityIndex:  outcome.volatility,
		EventRiskFactor:  outcome.eventRisk,
		TickerMinRate:    security.TickerMinRate,
		GlobalMinRate:    o.cfg.DefaultGlobalMinRate,
		VolatilityFactor: o.cfg.VolatilityFactor,
		EventFactor:      o.cfg.EventFactor,
	}, correlationID)
	if err != nil {
		return CurrentRateResponse{}, err
	}

	fallbackUsed := outcome.quoteProv != feeds.ProvenanceLive ||
		outcome.volProv != feeds.ProvenanceLive ||
		outcome.eventProv != feeds.ProvenanceLive

	return CurrentRateResponse{
		CurrentRate:  rate,
		BorrowStatus: resolveBorrowStatus(outcome, security),
		AsOf:         time.Now(),
		Source:       string(outcome.quoteProv),

		CorrelationID: correlationID,
		Ticker:        ticker,
		FallbackUsed:  fallbackUsed,
		Provenance: Provenance{
			BorrowRate: string(outcome.quoteProv),
			Volatility: string(outcome.volProv),
			EventRisk:  string(outcome.eventProv),
		},
	}, nil
}

func fallbackUsedLabel(used bool) string {
	if used {
		return "FALLBACK"
	}
	return "NONE"
}
