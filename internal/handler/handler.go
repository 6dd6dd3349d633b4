package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"farmstand/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}

// writeDomainError maps a service error onto an HTTP status. Domain errors
// carry a stable code and a caller-facing message; anything else is an
// internal error with the details kept server-side.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg("unexpected handler error")
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error:   model.ErrCodeInternalError,
			Message: "an internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case model.ErrCodeValidation:
		status = http.StatusBadRequest
	case model.ErrCodeAuthentication:
		status = http.StatusUnauthorized
	case model.ErrCodeNotFound:
		status = http.StatusNotFound
	case model.ErrCodeConflict:
		status = http.StatusConflict
	case model.ErrCodeExternalService:
		status = http.StatusBadGateway
	}

	logger.Warn().
		Str("code", domainErr.Code).
		Int("status", status).
		Str("error", domainErr.Message).
		Msg("request rejected")

	writeJSON(w, status, model.ErrorResponse{
		Error:   domainErr.Code,
		Message: domainErr.Message,
	})
}

// parsePagination reads limit/offset query parameters, falling back to
// defaults when absent. Malformed values are a validation error.
func parsePagination(r *http.Request, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, model.NewValidationError("invalid limit parameter")
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, model.NewValidationError("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
