package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/cache"
	"github.com/aristath/locate-pricing/internal/pricingerr"
)

// BorrowStatus is the SecLend-reported availability tier for a ticker.
type BorrowStatus string

const (
	BorrowStatusEasy   BorrowStatus = "EASY"
	BorrowStatusMedium BorrowStatus = "MEDIUM"
	BorrowStatusHard   BorrowStatus = "HARD"
)

// SecLendQuote is feed-wins-on-live: the live feed's status always takes
// precedence when reachable. For a quote from any other rung of the
// ladder the orchestrator ignores Status and uses the persisted
// securities.borrow_status instead.
type SecLendQuote struct {
	Rate   decimal.Decimal `json:"rate"`
	Status BorrowStatus    `json:"status"`
}

type secLendWireResponse struct {
	Rate   string `json:"rate"`
	Status string `json:"status"`
}

// SecLendClient fetches the current borrow rate and availability status
// for a ticker.
type SecLendClient struct {
	rc      *resilientClient
	baseURL string
	apiKey  string
	tier    *cache.Tier
}

func NewSecLendClient(baseURL, apiKey string, timeout time.Duration, tier *cache.Tier) *SecLendClient {
	return &SecLendClient{
		rc:      newResilientClient("seclend", timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		tier:    tier,
	}
}

func (c *SecLendClient) State() string { return c.rc.State().String() }

// Quote resolves a ticker's current borrow quote through the full
// fallback ladder. persistedFallback reads the fallback_min_rates table
// and is supplied by the caller (internal/refdata) to keep this package
// free of a database dependency.
func (c *SecLendClient) Quote(ctx context.Context, ticker string, persistedFallback func(context.Context) (SecLendQuote, bool, error)) (SecLendQuote, Provenance, error) {
	live := func(ctx context.Context) (SecLendQuote, error) {
		var wire secLendWireResponse
		url := fmt.Sprintf("%s/v1/seclend/%s", c.baseURL, ticker)
		err := c.rc.doJSON(ctx, "GET", url, map[string]string{"Authorization": "Bearer " + c.apiKey}, nil, &wire)
		if err != nil {
			return SecLendQuote{}, err
		}
		if wire.Rate == "" || wire.Status == "" {
			return SecLendQuote{}, pricingerr.New(pricingerr.KindUpstreamUnavailable, "", "seclend response missing required fields")
		}
		rate, err := decimal.NewFromString(wire.Rate)
		if err != nil {
			return SecLendQuote{}, pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "seclend returned non-numeric rate", err)
		}
		return SecLendQuote{Rate: rate, Status: BorrowStatus(wire.Status)}, nil
	}

	persisted := func(ctx context.Context) (SecLendQuote, bool, error) {
		if persistedFallback == nil {
			return SecLendQuote{}, false, nil
		}
		return persistedFallback(ctx)
	}

	return resolve(ctx, c.tier, cache.CategoryBorrowRate, ticker, live, persisted, SecLendQuote{})
}
