package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sxk/signal-link/internal/errors"
)

func TestTelegramService_Send(t *testing.T) {
	t.Run("posts message to bot endpoint", func(t *testing.T) {
		var gotPath string
		var gotBody telegramMessage
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		svc := NewTelegramService(server.URL+"/", "123:abc", "-100200")
		err := svc.Send(context.Background(), "📍 Signal Request.")

		require.NoError(t, err)
		assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
		assert.Equal(t, "-100200", gotBody.ChatID)
		assert.Equal(t, "📍 Signal Request.", gotBody.Text)
	})

	t.Run("upstream rejection carries response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
		}))
		defer server.Close()

		svc := NewTelegramService(server.URL, "t", "c")
		err := svc.Send(context.Background(), "hi")

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDeliveryFailed, appErr.Code)
		assert.Equal(t, "Telegram request failed", appErr.Message)
		assert.Contains(t, appErr.Details, "chat not found")
	})

	t.Run("unreachable upstream is delivery failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		err := NewTelegramService(url, "t", "c").Send(context.Background(), "hi")
		assert.Equal(t, apperrors.ErrCodeDeliveryFailed, apperrors.GetCode(err))
	})

	t.Run("missing credentials are not configured", func(t *testing.T) {
		for _, svc := range []*TelegramService{
			NewTelegramService("http://unused", "", "c"),
			NewTelegramService("http://unused", "t", ""),
		} {
			assert.False(t, svc.Configured())
			err := svc.Send(context.Background(), "hi")
			assert.Equal(t, apperrors.ErrCodeNotConfigured, apperrors.GetCode(err))
		}
	})

	t.Run("blank message is rejected before config check", func(t *testing.T) {
		svc := NewTelegramService("http://unused", "", "")
		for _, msg := range []string{"", "   ", "\n\t"} {
			err := svc.Send(context.Background(), msg)
			assert.Equal(t, apperrors.ErrCodeInvalidMessage, apperrors.GetCode(err))
		}
	})
}
