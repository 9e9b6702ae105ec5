package httpapi

import (
	"crypto/subtle"
	"net/http"
)

// requireAdminKey is a deliberately minimal X-API-Key check, not a full
// auth system — request authentication and authorization middleware are
// named-interface-only collaborators per SPEC_FULL.md's ambient stack.
func (s *Server) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminAPIKey == "" {
			http.Error(w, "admin routes are disabled", http.StatusServiceUnavailable)
			return
		}
		supplied := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.adminAPIKey)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
