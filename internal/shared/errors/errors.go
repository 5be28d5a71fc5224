// Package errors provides application-level error types and utilities.
// Component boundaries convert infrastructure failures into these kinds;
// the HTTP layer maps them onto the response envelope.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the stable machine-readable error code surfaced to clients.
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrorTypeStore       ErrorType = "DATABASE_UNAVAILABLE"
	ErrorTypeNotFound    ErrorType = "RESOURCE_NOT_FOUND"
	ErrorTypeTimeout     ErrorType = "TIMEOUT"
	ErrorTypeRateLimited ErrorType = "RATE_LIMITED"
	ErrorTypeInternal    ErrorType = "INTERNAL_ERROR"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newAppError(t ErrorType, code int, message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

// NewStoreUnavailableError creates an error for an unreachable or misconfigured store.
func NewStoreUnavailableError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeStore, http.StatusServiceUnavailable, message, details...)
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

// NewTimeoutError creates an error for an elapsed request deadline.
func NewTimeoutError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeTimeout, http.StatusGatewayTimeout, message, details...)
}

// NewRateLimitedError creates an error for a refused request over the in-flight limit.
func NewRateLimitedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeRateLimited, http.StatusTooManyRequests, message, details...)
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// IsAppError checks if the error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsTimeoutError checks if the error is a timeout error.
func IsTimeoutError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeTimeout
}

// IsValidationError checks if the error is a validation error.
func IsValidationError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeValidation
}

// IsStoreUnavailableError checks if the error is a store availability error.
func IsStoreUnavailableError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeStore
}
