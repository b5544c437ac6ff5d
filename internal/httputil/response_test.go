package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sxk/signal-link/internal/errors"
)

func TestStatusFromCode(t *testing.T) {
	tests := []struct {
		code   apperrors.ErrorCode
		status int
	}{
		{apperrors.ErrCodeInvalidMessage, http.StatusBadRequest},
		{apperrors.ErrCodeInvalidSessionCode, http.StatusBadRequest},
		{apperrors.ErrCodeValidation, http.StatusBadRequest},
		{apperrors.ErrCodeNotFound, http.StatusNotFound},
		{apperrors.ErrCodePingPending, http.StatusConflict},
		{apperrors.ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{apperrors.ErrCodeNotConfigured, http.StatusInternalServerError},
		{apperrors.ErrCodeDeliveryFailed, http.StatusInternalServerError},
		{apperrors.ErrCodeDatabase, http.StatusInternalServerError},
		{apperrors.ErrCodeExternal, http.StatusBadGateway},
		{apperrors.ErrorCode("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.status, StatusFromCode(tc.code))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("writes AppError with details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, apperrors.DeliveryFailed("Telegram", "chat not found"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Telegram request failed", body.Error)
		assert.Equal(t, apperrors.ErrCodeDeliveryFailed, body.Code)
		assert.Equal(t, "chat not found", body.Details)
	})

	t.Run("hides unknown errors behind internal error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("pq: password authentication failed"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	})
}
