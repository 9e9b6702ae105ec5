package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aristath/locate-pricing/internal/orchestrator"
	"github.com/aristath/locate-pricing/internal/pricingerr"
	"github.com/aristath/locate-pricing/internal/ratelimit"
)

type calculateLocateRequest struct {
	ClientID      string `json:"client_id"`
	Ticker        string `json:"ticker"`
	PositionValue string `json:"position_value"`
	LoanDays      int64  `json:"loan_days"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbErr := s.refdata.DB().HealthCheck(r.Context())
	if dbErr != nil {
		status = "degraded"
	}

	body := map[string]interface{}{
		"status":        status,
		"audit_dropped": s.audit.Dropped(),
	}
	if dbErr != nil {
		body["database_error"] = dbErr.Error()
	}

	code := http.StatusOK
	if dbErr != nil {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, body)
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	identity := clientIdentity(r)
	allowed, retryAfter, rlErr := s.limiter.Allow(r.Context(), identity, ratelimit.DefaultStandardPerMinute)
	if rlErr == nil && !allowed {
		writeRateLimited(w, int(retryAfter.Seconds())+1)
		return
	}

	ticker := chi.URLParam(r, "ticker")
	resp, err := s.orch.GetCurrentRate(r.Context(), ticker)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// clientIdentity resolves the key the rate limiter admits requests under.
// GET /rates is unauthenticated, so it falls back to the caller-supplied
// X-Client-ID header and finally the remote address rather than requiring
// a broker_configs row to exist.
func clientIdentity(r *http.Request) string {
	if id := r.Header.Get("X-Client-ID"); id != "" {
		return id
	}
	return "anon:" + r.RemoteAddr
}

func (s *Server) handleCalculateLocate(w http.ResponseWriter, r *http.Request) {
	var req calculateLocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, pricingerr.New(pricingerr.KindValidation, "", "malformed request body"))
		return
	}

	position, err := decimal.NewFromString(req.PositionValue)
	if err != nil {
		writeError(w, pricingerr.New(pricingerr.KindValidation, "", "position_value must be a decimal string"))
		return
	}

	limitPerMinute := ratelimit.DefaultStandardPerMinute
	if cfg, cfgErr := s.refdata.GetActiveBrokerConfig(r.Context(), "", req.ClientID); cfgErr == nil {
		limitPerMinute = cfg.RateLimitPerMinute
	}

	allowed, retryAfter, rlErr := s.limiter.Allow(r.Context(), req.ClientID, limitPerMinute)
	if rlErr == nil && !allowed {
		writeRateLimited(w, int(retryAfter.Seconds())+1)
		return
	}

	resp, err := s.orch.ComputeFee(r.Context(), orchestrator.ComputeFeeRequest{
		ClientID:      req.ClientID,
		Ticker:        req.Ticker,
		PositionValue: position,
		LoanDays:      req.LoanDays,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminCachePurge(w http.ResponseWriter, r *http.Request) {
	if err := s.results.PurgeAll(r.Context()); err != nil {
		writeError(w, pricingerr.Wrap(pricingerr.KindInternal, "", "cache purge failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func (s *Server) handleAdminDBStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.refdata.DB().GetStats()
	if err != nil {
		writeError(w, pricingerr.Wrap(pricingerr.KindInternal, "", "failed to collect database stats", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAdminDBCompact(w http.ResponseWriter, r *http.Request) {
	if err := s.refdata.DB().WALCheckpoint("TRUNCATE"); err != nil {
		writeError(w, pricingerr.Wrap(pricingerr.KindInternal, "", "wal checkpoint failed", err))
		return
	}
	if err := s.refdata.DB().Vacuum(); err != nil {
		writeError(w, pricingerr.Wrap(pricingerr.KindInternal, "", "vacuum failed", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "compacted"})
}
