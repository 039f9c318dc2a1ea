package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Error codes returned in the JSON error body.
const (
	CodeInternal     = "INTERNAL_SERVER_ERROR"
	CodeInvalidParam = "INVALID_PARAMETER"
	CodeNotFound     = "NOT_FOUND"
	CodeNoData       = "NO_DATA"
	CodeDatabase     = "DATABASE_ERROR"
)

// ErrorResponse is the body of every non-2xx JSON answer.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   message,
		RequestID: GetRequestID(r.Context()),
		Timestamp: time.Now(),
	}}
	if status >= 500 {
		log.Error().
			Str("request_id", resp.Error.RequestID).
			Str("error_code", code).
			Str("message", message).
			Int("status", status).
			Msg("API error response")
	}
	writeJSON(w, status, resp)
}
