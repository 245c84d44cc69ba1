package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/api/middleware"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
)

// APIError represents a structured API error response
type APIError struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeDataUnavailable  = "DATA_UNAVAILABLE"
	ErrCodeNoUsableFeatures = "NO_USABLE_FEATURES"
	ErrCodeModelFitFailed   = "MODEL_FIT_FAILED"
	ErrCodeColumnMismatch   = "COLUMN_MISMATCH"
	ErrCodeModelUnavailable = "MODEL_UNAVAILABLE"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDataUnavailable):
		return http.StatusServiceUnavailable, ErrCodeDataUnavailable
	case errors.Is(err, features.ErrNoUsableFeatures):
		return http.StatusUnprocessableEntity, ErrCodeNoUsableFeatures
	case errors.Is(err, anomaly.ErrFitFailure):
		return http.StatusUnprocessableEntity, ErrCodeModelFitFailed
	case errors.Is(err, anomaly.ErrColumnMismatch):
		return http.StatusBadRequest, ErrCodeColumnMismatch
	case errors.Is(err, service.ErrModelUnavailable):
		return http.StatusServiceUnavailable, ErrCodeModelUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// respondStructuredError sends an APIError with the request's ID.
func respondStructuredError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, APIError{
		Error:     http.StatusText(status),
		Code:      code,
		Message:   message,
		RequestID: middleware.RequestIDFromContext(r.Context()),
	})
}

// respondServiceError classifies err and sends it. Internal errors are not echoed.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	h.logError(r, err, status)
	respondStructuredError(w, r, status, code, message)
}
