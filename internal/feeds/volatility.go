package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/cache"
	"github.com/aristath/locate-pricing/internal/pricingerr"
)

type volatilityWireResponse struct {
	Index string `json:"index"`
}

// VolatilityClient fetches the current market-volatility index for a
// ticker.
type VolatilityClient struct {
	rc      *resilientClient
	baseURL string
	apiKey  string
	tier    *cache.Tier
}

func NewVolatilityClient(baseURL, apiKey string, timeout time.Duration, tier *cache.Tier) *VolatilityClient {
	return &VolatilityClient{
		rc:      newResilientClient("market-volatility", timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		tier:    tier,
	}
}

func (c *VolatilityClient) State() string { return c.rc.State().String() }

// Index resolves the current volatility index through the fallback
// ladder. globalDefault is the configured DEFAULT_VOLATILITY_INDEX used
// when no live, cached, or persisted value exists.
func (c *VolatilityClient) Index(ctx context.Context, ticker string, globalDefault decimal.Decimal) (decimal.Decimal, Provenance, error) {
	live := func(ctx context.Context) (decimal.Decimal, error) {
		var wire volatilityWireResponse
		url := fmt.Sprintf("%s/v1/volatility/%s", c.baseURL, ticker)
		err := c.rc.doJSON(ctx, "GET", url, map[string]string{"Authorization": "Bearer " + c.apiKey}, nil, &wire)
		if err != nil {
			return decimal.Zero, err
		}
		if wire.Index == "" {
			return decimal.Zero, pricingerr.New(pricingerr.KindUpstreamUnavailable, "", "volatility response missing index")
		}
		return decimal.NewFromString(wire.Index)
	}

	return resolve(ctx, c.tier, cache.CategoryVolatility, ticker, live, nil, globalDefault)
}
