// Package config provides configuration management functionality.
//
// Configuration is loaded once at startup from environment variables (and
// an optional .env file via godotenv) into an explicit Config struct.
// There is no settings database in this engine — every value here is
// either fixed by operations or safe to roll out via a plain environment
// variable change.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every knob the pricing engine reads at startup.
type Config struct {
	Port    int
	LogLevel string
	DevMode bool

	DatabasePath string
	CacheURL     string // empty means "use the in-process MemoryStore fallback"

	SecLendBaseURL  string
	SecLendAPIKey   string
	VolatilityBaseURL string
	VolatilityAPIKey  string
	EventCalendarBaseURL string
	EventCalendarAPIKey  string
	FeedTimeout          time.Duration

	CacheTTLBorrowRate      time.Duration
	CacheTTLVolatility      time.Duration
	CacheTTLEventRisk       time.Duration
	CacheTTLBrokerConfig    time.Duration
	CacheTTLCalcResult      time.Duration
	CacheTTLFallbackMinRate time.Duration
	L1Capacity              int

	DefaultGlobalMinRate   decimal.Decimal
	DefaultVolatilityIndex decimal.Decimal
	DefaultEventRiskFactor decimal.Decimal
	VolatilityFactor       decimal.Decimal
	EventRiskFactorWeight  decimal.Decimal
	DaysInYear             int64
	DefaultMarkupPercentage decimal.Decimal
	DefaultTxnFeeFlat       decimal.Decimal

	RateLimitStandardPerMinute int
	RateLimitPremiumPerMinute  int
	RateLimitInternalPerMinute int
	RateLimitBurst             int

	AdminAPIKey string
}

// Load reads configuration from environment variables, loading a .env
// file first if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		DatabasePath: getEnv("DATABASE_PATH", "./data/refdata.db"),
		CacheURL:     getEnv("CACHE_URL", ""),

		SecLendBaseURL:       getEnv("SECLEND_API_URL", "https://seclend.example.com"),
		SecLendAPIKey:        getEnv("SECLEND_API_KEY", ""),
		VolatilityBaseURL:    getEnv("VOLATILITY_API_URL", "https://market-volatility.example.com"),
		VolatilityAPIKey:     getEnv("VOLATILITY_API_KEY", ""),
		EventCalendarBaseURL: getEnv("EVENT_API_URL", "https://event-calendar.example.com"),
		EventCalendarAPIKey:  getEnv("EVENT_API_KEY", ""),
		FeedTimeout:          getEnvAsDuration("FEED_TIMEOUT", 5*time.Second),

		CacheTTLBorrowRate:      getEnvAsDuration("CACHE_TTL_BORROW_RATE", 300*time.Second),
		CacheTTLVolatility:      getEnvAsDuration("CACHE_TTL_VOLATILITY", 900*time.Second),
		CacheTTLEventRisk:       getEnvAsDuration("CACHE_TTL_EVENT_RISK", 3600*time.Second),
		CacheTTLBrokerConfig:    getEnvAsDuration("CACHE_TTL_BROKER_CONFIG", 1800*time.Second),
		CacheTTLCalcResult:      getEnvAsDuration("CACHE_TTL_CALC_RESULT", 60*time.Second),
		CacheTTLFallbackMinRate: getEnvAsDuration("CACHE_TTL_FALLBACK_MIN_RATE", 86400*time.Second),
		L1Capacity:              getEnvAsInt("CACHE_L1_CAPACITY", 4096),

		DefaultGlobalMinRate:    getEnvAsDecimal("DEFAULT_MINIMUM_BORROW_RATE", "0.0001"),
		DefaultVolatilityIndex:  getEnvAsDecimal("DEFAULT_VOLATILITY_INDEX", "1.0"),
		DefaultEventRiskFactor:  getEnvAsDecimal("DEFAULT_EVENT_RISK_SCORE", "0"),
		VolatilityFactor:        getEnvAsDecimal("DEFAULT_VOLATILITY_FACTOR", "0.01"),
		EventRiskFactorWeight:   getEnvAsDecimal("DEFAULT_EVENT_RISK_FACTOR", "0.05"),
		DaysInYear:              int64(getEnvAsInt("DAYS_IN_YEAR", 365)),
		DefaultMarkupPercentage: getEnvAsDecimal("DEFAULT_MARKUP_PERCENTAGE", "5.00"),
		DefaultTxnFeeFlat:       getEnvAsDecimal("DEFAULT_TRANSACTION_FEE_FLAT", "25.00"),

		RateLimitStandardPerMinute: getEnvAsInt("RATE_LIMIT_STANDARD", 60),
		RateLimitPremiumPerMinute:  getEnvAsInt("RATE_LIMIT_PREMIUM", 300),
		RateLimitInternalPerMinute: getEnvAsInt("RATE_LIMIT_INTERNAL", 1000),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 100),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail confusingly deep
// inside the kernel or cache layers.
func (c *Config) Validate() error {
	if c.Port <= 0 {
		return fmt.Errorf("PORT must be positive, got %d", c.Port)
	}
	if c.DaysInYear <= 0 {
		return fmt.Errorf("DAYS_IN_YEAR must be positive, got %d", c.DaysInYear)
	}
	if c.DefaultGlobalMinRate.IsNegative() {
		return fmt.Errorf("DEFAULT_MINIMUM_BORROW_RATE must not be negative")
	}
	return nil
}

// ==========================================
// Helper Functions
// ==========================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimal(key, defaultValue string) decimal.Decimal {
	raw := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.RequireFromString(defaultValue)
	}
	return d
}
