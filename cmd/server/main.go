// Command server runs the short-locate borrow-fee pricing engine: it
// wires the Cache Tier, External Feed Clients, Reference Data Store,
// Pricing Orchestrator, Rate Limiter and Result Cache behind a thin HTTP
// transport, then serves until signaled to shut down.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aristath/locate-pricing/internal/auditsink"
	"github.com/aristath/locate-pricing/internal/cache"
	"github.com/aristath/locate-pricing/internal/config"
	"github.com/aristath/locate-pricing/internal/database"
	"github.com/aristath/locate-pricing/internal/feeds"
	"github.com/aristath/locate-pricing/internal/httpapi"
	"github.com/aristath/locate-pricing/internal/metrics"
	"github.com/aristath/locate-pricing/internal/orchestrator"
	"github.com/aristath/locate-pricing/internal/ratelimit"
	"github.com/aristath/locate-pricing/internal/refdata"
	"github.com/aristath/locate-pricing/internal/resultcache"
	"github.com/aristath/locate-pricing/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode, Service: "locate-pricing"})
	logger.SetGlobalLogger(log)

	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileStandard,
		Name:    "refdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open reference data store")
	}
	defer db.Close()

	repo := refdata.New(db)
	if err := repo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate reference data schema")
	}

	l2 := newL2Store(cfg, log)

	ttlOverrides := map[cache.Category]time.Duration{
		cache.CategoryBorrowRate:      cfg.CacheTTLBorrowRate,
		cache.CategoryVolatility:      cfg.CacheTTLVolatility,
		cache.CategoryEventRisk:       cfg.CacheTTLEventRisk,
		cache.CategoryBrokerConfig:    cfg.CacheTTLBrokerConfig,
		cache.CategoryCalcResult:      cfg.CacheTTLCalcResult,
		cache.CategoryFallbackMinRate: cfg.CacheTTLFallbackMinRate,
	}
	feedTier := cache.New(l2, cfg.L1Capacity, ttlOverrides)
	resultTier := cache.New(l2, cfg.L1Capacity, ttlOverrides)

	seclendClient := feeds.NewSecLendClient(cfg.SecLendBaseURL, cfg.SecLendAPIKey, cfg.FeedTimeout, feedTier)
	volatilityClient := feeds.NewVolatilityClient(cfg.VolatilityBaseURL, cfg.VolatilityAPIKey, cfg.FeedTimeout, feedTier)
	eventClient := feeds.NewEventCalendarClient(cfg.EventCalendarBaseURL, cfg.EventCalendarAPIKey, cfg.FeedTimeout, feedTier, nil)

	results := resultcache.New(resultTier)
	limiter := ratelimit.New(l2)

	audit := auditsink.New(repo, log)
	audit.Start()

	orch := orchestrator.New(orchestrator.Config{
		DaysInYear:             cfg.DaysInYear,
		VolatilityFactor:       cfg.VolatilityFactor,
		EventFactor:            cfg.EventRiskFactorWeight,
		DefaultVolatilityIndex: cfg.DefaultVolatilityIndex,
		DefaultEventRiskFactor: cfg.DefaultEventRiskFactor,
		DefaultGlobalMinRate:   cfg.DefaultGlobalMinRate,
		FanOutTimeout:          cfg.FeedTimeout + 2*time.Second,
	}, repo, seclendClient, volatilityClient, eventClient, results, audit, log, metrics.Noop{})

	api := httpapi.New(httpapi.Options{
		Orchestrator: orch,
		Refdata:      repo,
		Limiter:      limiter,
		Results:      results,
		Audit:        audit,
		Logger:       log,
		AdminAPIKey:  cfg.AdminAPIKey,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("pricing engine listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("error during HTTP server shutdown")
	}
	if err := audit.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("error draining audit queue")
	}
}

// newL2Store connects to Redis when CACHE_URL is configured, falling
// back to the in-process MemoryStore for single-replica or local
// deployments. A degraded shared cache is never fatal at startup — the
// feed fallback ladder and rate limiter both tolerate a non-authoritative
// L2.
func newL2Store(cfg *config.Config, log zerolog.Logger) cache.Store {
	if cfg.CacheURL == "" {
		log.Warn().Msg("CACHE_URL not set, using in-process cache store (not authoritative across replicas)")
		return cache.NewMemoryStore()
	}

	opts, err := redis.ParseURL(cfg.CacheURL)
	if err != nil {
		log.Error().Err(err).Msg("invalid CACHE_URL, falling back to in-process cache store")
		return cache.NewMemoryStore()
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("failed to reach redis, falling back to in-process cache store")
		return cache.NewMemoryStore()
	}

	return cache.NewRedisStore(client)
}
