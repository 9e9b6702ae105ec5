package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/cache"
	"github.com/aristath/locate-pricing/internal/kernel"
	"github.com/aristath/locate-pricing/internal/pricingerr"
)

// CalendarEvent is one upcoming corporate/market event for a ticker, as
// reported by the event-calendar feed.
type CalendarEvent struct {
	Type      string    `json:"type"`
	Date      time.Time `json:"date"`
	RiskScore decimal.Decimal
}

type eventWireEntry struct {
	Type      string `json:"type"`
	Date      string `json:"date"`
	RiskScore string `json:"risk_score"`
}

// EventRiskPolicy reduces a ticker's upcoming events into the single 0-10
// event_risk_factor the formula kernel consumes. The default policy (see
// MaxWithinHorizon) takes the maximum risk score among events within a
// configurable horizon; it is pluggable since the exact aggregation rule
// is a judgment call rather than a fixed formula.
type EventRiskPolicy func(now time.Time, events []CalendarEvent) decimal.Decimal

// MaxWithinHorizon returns the highest risk score among events occurring
// within horizon of now, clamped to the kernel's 0-10 event-risk-factor
// range, or zero if none qualify. This is the default policy.
func MaxWithinHorizon(horizon time.Duration) EventRiskPolicy {
	return func(now time.Time, events []CalendarEvent) decimal.Decimal {
		max := decimal.Zero
		cutoff := now.Add(horizon)
		for _, e := range events {
			if e.Date.Before(now) || e.Date.After(cutoff) {
				continue
			}
			if e.RiskScore.GreaterThan(max) {
				max = e.RiskScore
			}
		}
		return kernel.ClampEventRiskFactor(max)
	}
}

// EventCalendarClient fetches upcoming events for a ticker and reduces
// them to a single event-risk factor via Policy.
type EventCalendarClient struct {
	rc      *resilientClient
	baseURL string
	apiKey  string
	tier    *cache.Tier
	Policy  EventRiskPolicy
}

func NewEventCalendarClient(baseURL, apiKey string, timeout time.Duration, tier *cache.Tier, policy EventRiskPolicy) *EventCalendarClient {
	if policy == nil {
		policy = MaxWithinHorizon(7 * 24 * time.Hour)
	}
	return &EventCalendarClient{
		rc:      newResilientClient("event-calendar", timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		tier:    tier,
		Policy:  policy,
	}
}

func (c *EventCalendarClient) State() string { return c.rc.State().String() }

// RiskFactor resolves the ticker's current event-risk factor through the
// fallback ladder. There is no persisted-fallback table for event risk
// per SPEC_FULL.md §4, so an outage with no usable cache entry falls
// straight to globalDefault.
func (c *EventCalendarClient) RiskFactor(ctx context.Context, ticker string, now time.Time, globalDefault decimal.Decimal) (decimal.Decimal, Provenance, error) {
	live := func(ctx context.Context) (decimal.Decimal, error) {
		var wire []eventWireEntry
		url := fmt.Sprintf("%s/v1/events/%s", c.baseURL, ticker)
		err := c.rc.doJSON(ctx, "GET", url, map[string]string{"Authorization": "Bearer " + c.apiKey}, nil, &wire)
		if err != nil {
			return decimal.Zero, err
		}
		events := make([]CalendarEvent, 0, len(wire))
		for _, w := range wire {
			if w.Type == "" || w.Date == "" {
				return decimal.Zero, pricingerr.New(pricingerr.KindUpstreamUnavailable, "", "event-calendar entry missing required fields")
			}
			d, err := time.Parse(time.RFC3339, w.Date)
			if err != nil {
				return decimal.Zero, pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "event-calendar returned unparseable date", err)
			}
			score := decimal.Zero
			if w.RiskScore != "" {
				score, err = decimal.NewFromString(w.RiskScore)
				if err != nil {
					return decimal.Zero, pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "event-calendar returned non-numeric risk_score", err)
				}
			}
			events = append(events, CalendarEvent{Type: w.Type, Date: d, RiskScore: score})
		}
		return c.Policy(now, events), nil
	}

	return resolve(ctx, c.tier, cache.CategoryEventRisk, ticker, live, nil, globalDefault)
}
