package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/sxk/signal-link/internal/errors"
)

// ClientIDHeader carries the device's persisted client identifier.
const ClientIDHeader = "X-Client-ID"

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		// Wrap unknown errors as internal errors
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteErrorWithStatus(w, StatusFromCode(appErr.Code), appErr)
}

// WriteErrorWithStatus writes an error with a specific HTTP status code
func WriteErrorWithStatus(w http.ResponseWriter, status int, err *apperrors.AppError) {
	response := ErrorResponse{
		Error:   err.Message,
		Code:    err.Code,
		Details: err.Details,
	}
	WriteJSON(w, status, response)
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeInvalidSessionCode,
		apperrors.ErrCodeInvalidMessage:
		return http.StatusBadRequest

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeConflict,
		apperrors.ErrCodePingPending,
		apperrors.ErrCodeWrongRole:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeExternal:
		return http.StatusBadGateway

	// 500 Internal Server Error (relay failures included)
	case apperrors.ErrCodeNotConfigured,
		apperrors.ErrCodeDeliveryFailed,
		apperrors.ErrCodeSyncWriteFailed,
		apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
