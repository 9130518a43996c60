// Package errors defines application-level error types shared by the usecase
// and delivery layers.
package errors

import (
	"net/http"

	"beacon/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Is matches two catalog errors on their business code, so a copy carrying
// details still matches its catalog entry through errors.Is.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)

	return ok && other.errorCode == e.errorCode
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// ErrLocationUnavailable aborts feed setup: without a position there is
	// nothing meaningful to filter.
	ErrLocationUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"LOCATION_UNAVAILABLE",
		"Current position could not be determined",
		"",
	)

	// ErrRemoteUnavailable is a transient backend failure. Reads degrade to
	// cached data and writes degrade to queuing; it only surfaces when no
	// fallback exists.
	ErrRemoteUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"REMOTE_UNAVAILABLE",
		"Remote store is temporarily unavailable",
		"",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	// Alert-related errors
	ErrAlertNotFound = NewBaseError(
		http.StatusNotFound,
		"ALERT_NOT_FOUND",
		"Alert not found",
		"",
	)

	ErrInvalidSeverity = NewBaseError(
		http.StatusBadRequest,
		"INVALID_SEVERITY",
		"Severity must be one of low, medium, high, critical",
		"",
	)

	ErrRadiusOutOfRange = NewBaseError(
		http.StatusBadRequest,
		"RADIUS_OUT_OF_RANGE",
		"Requested radius exceeds the configured maximum",
		"",
	)

	// Message-related errors
	ErrMessageNotFound = NewBaseError(
		http.StatusNotFound,
		"MESSAGE_NOT_FOUND",
		"Emergency message not found",
		"",
	)

	ErrStatusRegression = NewBaseError(
		http.StatusConflict,
		"STATUS_REGRESSION",
		"Message status can only move forward",
		"",
	)

	// Shelter-related errors
	ErrShelterNotFound = NewBaseError(
		http.StatusNotFound,
		"SHELTER_NOT_FOUND",
		"Shelter not found",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Internal server error",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"Access denied",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)
)
