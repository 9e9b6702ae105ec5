package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aristath/locate-pricing/internal/pricingerr"
)

// retryConfig bounds the bounded-retry-with-jittered-backoff policy:
// base 500ms, factor 2, cap 5s, 3 attempts. Network/5xx/timeout errors are
// retryable; 4xx is never retried.
type retryConfig struct {
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

var defaultRetry = retryConfig{
	maxAttempts: 3,
	baseBackoff: 500 * time.Millisecond,
	maxBackoff:  5 * time.Second,
}

// resilientClient is the shared HTTP-plus-resilience shape every feed
// adapter wraps: a per-call timeout, a bounded retry loop with jittered
// exponential backoff, and a circuit breaker that short-circuits attempts
// entirely once a feed is judged unhealthy.
type resilientClient struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   retryConfig
}

// newResilientClient builds a client for a named upstream feed. The
// breaker opens on a failure once at least 10 requests have been made and
// at least 5 of them have failed, cools down for 60s, then allows 3
// half-open probes before fully closing again. The counts are not a
// rolling window: with Interval 0 they cover every request since the
// breaker last changed state.
func newResilientClient(name string, timeout time.Duration) *resilientClient {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    0,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 && counts.TotalFailures >= 5
		},
	}
	return &resilientClient{
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(st),
		retry:   defaultRetry,
	}
}

// State reports the breaker's current state. Each feed client exposes it
// through its own State method; no HTTP route reports it.
func (c *resilientClient) State() gobreaker.State {
	return c.breaker.State()
}

type httpError struct {
	status int
}

func (e *httpError) Error() string { return fmt.Sprintf("upstream returned status %d", e.status) }

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if he, ok := err.(*httpError); ok {
		return he.status >= 500
	}
	// Anything else (network error, context deadline, connection refused)
	// is treated as transient.
	return true
}

// doJSON performs a retried, circuit-broken GET (or POST with a JSON body
// when body != nil) and decodes the response into out. Each attempt is
// individually wrapped by the breaker, so an open breaker rejects the very
// first attempt without ever reaching the network.
func (c *resilientClient) doJSON(ctx context.Context, method, url string, headers map[string]string, body interface{}, out interface{}) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return pricingerr.Wrap(pricingerr.KindInternal, "", "encode request body", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := c.retry.baseBackoff * time.Duration(1<<uint(attempt-1))
			if backoff > c.retry.maxBackoff {
				backoff = c.retry.maxBackoff
			}
			jittered := time.Duration(float64(backoff) * (0.5 + rand.Float64()))
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				return pricingerr.Wrap(pricingerr.KindTimeout, "", "feed request cancelled while backing off", ctx.Err())
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.attempt(ctx, method, url, headers, bodyBytes)
		})
		if err == nil {
			raw := result.([]byte)
			if jerr := json.Unmarshal(raw, out); jerr != nil {
				return pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "decode upstream response", jerr)
			}
			return nil
		}

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "circuit breaker open", err)
		}

		lastErr = err
		if !retryable(err) {
			return pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "upstream rejected request", err)
		}
	}
	return pricingerr.Wrap(pricingerr.KindUpstreamUnavailable, "", "exhausted retries", lastErr)
}

func (c *resilientClient) attempt(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, &httpError{status: resp.StatusCode}
	}
	return data, nil
}
