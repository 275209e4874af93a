// Package api provides HTTP API utilities including standardized error handling.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/verifyhire/backend/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limit_exceeded"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeInvalidSignature indicates webhook signature verification failure.
	ErrCodeInvalidSignature = "invalid_signature"

	// ErrCodeUnsupportedAction indicates an unknown deposit status action.
	ErrCodeUnsupportedAction = "unsupported_action"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
// Field is set for validation errors to point at the offending input.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError writes a standardized JSON error response. The HTTP status is
// derived from the error code via StatusCodeMapping.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code will be automatically logged by the logging middleware
// for all 4xx and 5xx responses if you call SetErrorCode on the context
// and pass the updated context to WriteError.
//
// Example:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	api.WriteError(w, ctx, api.ErrCodeNotFound, "email not on waitlist")
func WriteError(w http.ResponseWriter, ctx context.Context, code, message string) {
	writeErrorDetail(w, ctx, StatusCodeMapping(code), ErrorDetail{Code: code, Message: message})
}

// WriteFieldError writes a validation error response naming the offending field.
func WriteFieldError(w http.ResponseWriter, ctx context.Context, field, message string) {
	writeErrorDetail(w, ctx, http.StatusBadRequest, ErrorDetail{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	})
}

func writeErrorDetail(w http.ResponseWriter, ctx context.Context, status int, detail ErrorDetail) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{Error: detail})
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidSignature, ErrCodeUnsupportedAction:
		return http.StatusBadRequest
	case ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
