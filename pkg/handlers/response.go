package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/apperrors"
	"github.com/chingu-voyages/member-demographics/pkg/logging"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ClassifyError maps a service error to an HTTP status and error code.
func ClassifyError(err error) (int, string) {
	code := apperrors.Code(err)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, code
	case apperrors.IsClientError(err):
		return http.StatusBadRequest, code
	case errors.Is(err, apperrors.ErrCacheUnavailable):
		return http.StatusServiceUnavailable, code
	case errors.Is(err, apperrors.ErrWarehouse):
		return http.StatusBadGateway, code
	}
	return http.StatusInternalServerError, code
}

// WriteError classifies err and writes it as an error response. Client
// errors carry the error text; server errors carry a generic message.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status, code := ClassifyError(err)
	message := err.Error()
	switch status {
	case http.StatusBadGateway:
		logger.Error("Warehouse request failed", zap.String("error", logging.SanitizeError(err)))
		message = "The members warehouse could not answer the query"
	case http.StatusInternalServerError:
		logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
		message = "Internal server error"
	case http.StatusServiceUnavailable:
		logger.Warn("Request refused while value cache is cold")
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
