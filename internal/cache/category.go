// Package cache implements a two-level cache: an in-process L1 (TTL +
// LRU + single-flight) in front of a shared L2 (remote key-value
// store), with per-category TTLs, explicit fallback reads, and
// administrative invalidation.
package cache

import "time"

// Category partitions the keyspace so each kind of cached value gets its own
// TTL and its own single-flight domain.
type Category string

const (
	CategoryBorrowRate      Category = "borrow_rate"
	CategoryVolatility      Category = "volatility"
	CategoryEventRisk       Category = "event_risk"
	CategoryBrokerConfig    Category = "broker_config"
	CategoryCalcResult      Category = "calc_result"
	CategoryFallbackMinRate Category = "fallback_min_rate"
	CategorySecurity        Category = "security"
)

// DefaultTTLs are the default freshness windows, in seconds. A TTL of 0
// means "do not cache" for that category.
var DefaultTTLs = map[Category]time.Duration{
	CategoryBorrowRate:      300 * time.Second,
	CategoryVolatility:      900 * time.Second,
	CategoryEventRisk:       3600 * time.Second,
	CategoryBrokerConfig:    1800 * time.Second,
	CategoryCalcResult:      60 * time.Second,
	CategoryFallbackMinRate: 86400 * time.Second,
	CategorySecurity:        1800 * time.Second,
}

// Key builds the deterministic canonicalized cache key for a category and
// identity, e.g. "vol:AAPL", "calc:<fingerprint>".
func Key(category Category, identity string) string {
	prefix := map[Category]string{
		CategoryBorrowRate:      "rate",
		CategoryVolatility:      "vol",
		CategoryEventRisk:       "event",
		CategoryBrokerConfig:    "broker",
		CategoryCalcResult:      "calc",
		CategoryFallbackMinRate: "fallback",
		CategorySecurity:        "sec",
	}[category]
	if prefix == "" {
		prefix = string(category)
	}
	return prefix + ":" + identity
}
