package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired    ErrorCode = "MISSING_REQUIRED"
	ErrCodeInvalidSessionCode ErrorCode = "INVALID_SESSION_CODE"
	ErrCodeInvalidMessage     ErrorCode = "INVALID_MESSAGE"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Signal link
	ErrCodePingPending ErrorCode = "PING_PENDING"
	ErrCodeWrongRole   ErrorCode = "WRONG_ROLE"

	// Geolocation
	ErrCodeGeolocationUnavailable ErrorCode = "GEOLOCATION_UNAVAILABLE"
	ErrCodeGeolocationDenied      ErrorCode = "GEOLOCATION_DENIED"
	ErrCodeGeolocationTimeout     ErrorCode = "GEOLOCATION_TIMEOUT"

	// Sync
	ErrCodeSyncWriteFailed ErrorCode = "SYNC_WRITE_FAILED"

	// Notification relay
	ErrCodeNotConfigured  ErrorCode = "NOT_CONFIGURED"
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func InvalidSessionCode(code string) *AppError {
	return New(ErrCodeInvalidSessionCode, fmt.Sprintf("Invalid session code %q", code))
}

func InvalidMessage() *AppError {
	return New(ErrCodeInvalidMessage, "Message is required")
}

func PingPending() *AppError {
	return New(ErrCodePingPending, "Signal already sent, waiting for partner to sync")
}

func WrongRole(action string) *AppError {
	return New(ErrCodeWrongRole, fmt.Sprintf("%s is not available for this device", action))
}

func GeolocationUnavailable() *AppError {
	return New(ErrCodeGeolocationUnavailable, "Geolocation not supported")
}

func GeolocationDenied(cause error) *AppError {
	return Wrap(ErrCodeGeolocationDenied, "Location access denied", cause)
}

func GeolocationTimeout() *AppError {
	return New(ErrCodeGeolocationTimeout, "Location request timed out")
}

func SyncWriteFailed(cause error) *AppError {
	return Wrap(ErrCodeSyncWriteFailed, "Failed to sync location", cause)
}

func NotConfigured(service string) *AppError {
	return New(ErrCodeNotConfigured, fmt.Sprintf("%s is not configured", service))
}

func DeliveryFailed(service string, details string) *AppError {
	return New(ErrCodeDeliveryFailed, fmt.Sprintf("%s request failed", service)).WithDetails(details)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsGeolocation reports whether err came from a failed location acquisition.
func IsGeolocation(err error) bool {
	switch GetCode(err) {
	case ErrCodeGeolocationUnavailable, ErrCodeGeolocationDenied, ErrCodeGeolocationTimeout:
		return true
	}
	return false
}
