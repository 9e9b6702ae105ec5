// Package httpapi is the thin HTTP transport: request validation
// schemas, auth middleware beyond a single API-key header check, and
// metrics/tracing exporters are not implemented here. It wires the
// pricing orchestrator, rate limiter and result cache to a handful of
// routes plus a health endpoint and an admin surface for cache and
// database maintenance.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/locate-pricing/internal/auditsink"
	"github.com/aristath/locate-pricing/internal/orchestrator"
	"github.com/aristath/locate-pricing/internal/ratelimit"
	"github.com/aristath/locate-pricing/internal/refdata"
	"github.com/aristath/locate-pricing/internal/resultcache"
)

// Server wires the pricing engine's components to HTTP routes.
type Server struct {
	router *chi.Mux

	orch    *orchestrator.Orchestrator
	refdata *refdata.Repository
	limiter *ratelimit.Limiter
	results *resultcache.ResultCache
	audit   *auditsink.Sink
	logger  zerolog.Logger

	adminAPIKey string
}

// Options configures a Server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Refdata      *refdata.Repository
	Limiter      *ratelimit.Limiter
	Results      *resultcache.ResultCache
	Audit        *auditsink.Sink
	Logger       zerolog.Logger
	AdminAPIKey  string
}

func New(opts Options) *Server {
	s := &Server{
		orch:        opts.Orchestrator,
		refdata:     opts.Refdata,
		limiter:     opts.Limiter,
		results:     opts.Results,
		audit:       opts.Audit,
		logger:      opts.Logger.With().Str("component", "httpapi").Logger(),
		adminAPIKey: opts.AdminAPIKey,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-API-Key", "X-Client-ID"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/rates/{ticker}", s.handleGetRate)
	r.Post("/calculate-locate", s.handleCalculateLocate)
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdminKey)
		r.Post("/cache/purge", s.handleAdminCachePurge)
		r.Get("/db/stats", s.handleAdminDBStats)
		r.Post("/db/compact", s.handleAdminDBCompact)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
