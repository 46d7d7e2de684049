package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/transfer"
)

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeError maps domain errors onto status codes: field validation to 422,
// unknown ids to 404, unreadable imports to 400. Anything else is a 500 and
// is logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve       *core.ValidationErrors
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_failed",
			Message: "One or more fields are invalid",
			Fields:  ve.Errors,
		})
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, transfer.ErrMalformedCSV),
		errors.Is(err, transfer.ErrMalformedBackup),
		errors.Is(err, transfer.ErrNothingSelected),
		errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &tooLarge):
		writeJSONError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
	default:
		logger := log.FromContext(r.Context())
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			logger.Component(), operationFor(r.Method),
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}

func writeRateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded. Please try again later.")
}

func operationFor(method string) string {
	switch method {
	case http.MethodPost:
		return log.OpCreate
	case http.MethodPatch, http.MethodPut:
		return log.OpUpdate
	case http.MethodDelete:
		return log.OpDelete
	}
	return log.OpRead
}
