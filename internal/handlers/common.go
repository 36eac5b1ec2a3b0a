package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"entrepreneur-connect-backend/internal/apperrors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeJSON reads the request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrSelfConnection):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized), errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case apperrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrConnectionExists),
		errors.Is(err, apperrors.ErrAlreadyRegistered),
		errors.Is(err, apperrors.ErrEventFull),
		errors.Is(err, apperrors.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs a failed operation and answers with the mapped status.
// Unexpected failures never leak their cause to the client.
func respondServiceError(w http.ResponseWriter, err error, msg string, fields func(e *zerolog.Event)) {
	status := statusFor(err)

	event := log.Warn()
	if status == http.StatusInternalServerError {
		event = log.Error()
	}
	if fields != nil {
		fields(event)
	}
	event.Err(err).Int("status", status).Msg(msg)

	body := ErrorResponse{Error: err.Error()}
	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		body.Field = custom.Field
	}
	switch {
	case status == http.StatusInternalServerError:
		body = ErrorResponse{Error: apperrors.ErrUnavailable.Error()}
	case errors.Is(err, apperrors.ErrTokenExpired):
		body.Code = "token_expired"
	}
	respondJSON(w, status, body)
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
