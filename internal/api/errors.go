package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logging.WithError(err).Warn("Failed to encode error response")
	}
}

// respondServiceError maps a service error to its HTTP status and error body.
// Internal failures never leak their cause to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	logger := logging.FromContext(r.Context()).WithError(err).WithField("code", catErr.Code)
	if catErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Warn("Request rejected")
	}

	svcErr := catErr.ToServiceError()
	if catErr.Category == apperrors.CategorySystem {
		svcErr.Message = "An internal server error occurred"
		svcErr.Details = nil
	}
	respondError(w, catErr.StatusCode, svcErr.Code, svcErr.Message, svcErr.Details)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logging.WithError(err).Warn("Failed to encode response")
		}
	}
}
