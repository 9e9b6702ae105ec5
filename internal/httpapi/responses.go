package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aristath/locate-pricing/internal/pricingerr"
)

type errorBody struct {
	Status        string `json:"status"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a typed pricing error to its HTTP status and body shape.
// Anything that isn't a *pricingerr.Error is treated as an opaque internal
// error so no raw internal detail ever reaches the client.
func writeError(w http.ResponseWriter, err error) {
	perr, ok := pricingerr.As(err)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Status:  "error",
			Error:   string(pricingerr.KindInternal),
			Message: "internal error",
		})
		return
	}

	status := pricingerr.HTTPStatus(perr.Kind)
	body := errorBody{
		Status:        "error",
		Error:         string(perr.Kind),
		Message:       perr.Message,
		CorrelationID: perr.CorrelationID,
	}
	writeJSON(w, status, body)
}

func writeRateLimited(w http.ResponseWriter, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Status:  "error",
		Error:   string(pricingerr.KindRateLimited),
		Message: "rate limit exceeded",
	})
}
