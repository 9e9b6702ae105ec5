package orchestrator

import (
	"strings"

	"github.com/aristath/locate-pricing/internal/pricingerr"
)

const (
	minTickerLength = 1
	maxTickerLength = 10
)

// normalizeTicker uppercases and trims a raw ticker and validates it against
// the alphanumeric, 1-10 character charset securities are keyed by. Every
// entry point into the orchestrator runs input through this before it
// touches the reference data store, the feeds, or the fingerprint.
func normalizeTicker(correlationID, raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if len(ticker) < minTickerLength || len(ticker) > maxTickerLength {
		return "", pricingerr.New(pricingerr.KindValidation, correlationID, "ticker must be 1-10 characters")
	}
	for _, r := range ticker {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return "", pricingerr.New(pricingerr.KindValidation, correlationID, "ticker must be alphanumeric")
		}
	}
	return ticker, nil
}
