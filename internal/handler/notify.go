package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sxk/signal-link/internal/audit"
	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/metrics"
	"github.com/sxk/signal-link/internal/service"
)

type NotifyHandler struct {
	telegram *service.TelegramService
}

func NewNotifyHandler(telegram *service.TelegramService) *NotifyHandler {
	return &NotifyHandler{telegram: telegram}
}

type notifyRequest struct {
	Message *string `json:"message"`
}

// POST /api/notify
// Relays {message} to the configured Telegram chat.
func (h *NotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		h.reject(w, r, apperrors.InvalidMessage())
		return
	}

	if err := h.telegram.Send(r.Context(), *req.Message); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeInvalidMessage {
			h.reject(w, r, err)
			return
		}
		metrics.IncNotify("failed")
		audit.LogFromRequest(r, audit.Event{
			Type:    audit.EventNotifyFailed,
			Details: map[string]any{"code": string(apperrors.GetCode(err))},
		})
		logServerError(err, "notify relay failed")
		httputil.WriteError(w, err)
		return
	}

	metrics.IncNotify("sent")
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventNotifySent,
		Details: map[string]any{"length": len(*req.Message)},
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *NotifyHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	metrics.IncNotify("rejected")
	audit.LogFromRequest(r, audit.Event{Type: audit.EventNotifyRejected})
	httputil.WriteError(w, err)
}
