package handler

// RESPONSE HELPERS:
// These functions standardise how handlers send responses and errors.
//
// Two body shapes exist side by side, both part of the API contract:
//   - JSON for entities and listings (writeJSON)
//   - bare text for token strings and update confirmations (writeText) —
//     the routes that respond "Following" or with a raw JWT have always
//     done so as plain text, and the clients parse them that way.
//
// CONSISTENT ERROR FORMAT:
// Every error response has the same JSON shape:
//
//	{"error": "validation_error", "message": "Invalid filter"}
//
// so the frontend always knows what fields to expect.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable category
	Message string `json:"message"` // human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body: once Encode writes,
// the headers are on the wire.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeText sends a bare string body.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		slog.Error("failed to write text response", slog.String("error", err.Error()))
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// ERROR MAPPING:
// The service layer returns apperror sentinels; this is the single place
// they become status codes:
//
//	ErrValidation   → 400
//	ErrNotFound     → 404
//	ErrUnauthorized → 401
//	ErrConflict     → 400 (NOT 409 — duplicate username/email and no-op
//	                  updates have always been reported as 400, and the
//	                  clients test for that)
//
// errors.Is walks the chain via Unwrap, so wrapped service errors still
// match their sentinel.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusBadRequest
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	// Unknown error: generic 500, details stay in the log. The raw error
	// might contain SQL or file paths and must not reach the client.
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// setAuthToken attaches a token to the response the way the API has always
// shipped it: in the x-auth-token header, with the CORS expose header so
// browsers let scripts read it.
func setAuthToken(w http.ResponseWriter, token string) {
	w.Header().Set("x-auth-token", token)
	w.Header().Set("access-control-expose-headers", "x-auth-token")
}
