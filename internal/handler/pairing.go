package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/audit"
	"github.com/sxk/signal-link/internal/config"
	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/model"
	"github.com/sxk/signal-link/internal/service"
	"github.com/sxk/signal-link/internal/sse"
	"github.com/sxk/signal-link/internal/util"
)

// Streams hands out per-session event streams.
type Streams interface {
	Subscribe(sessionCode string) *sse.Client
	Unsubscribe(client *sse.Client)
}

type PairingHandler struct {
	pairingService *service.PairingService
	streams        Streams
	heartbeat      time.Duration
}

func NewPairingHandler(pairingService *service.PairingService, streams Streams) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		streams:        streams,
		heartbeat:      sse.HeartbeatInterval,
	}
}

func (h *PairingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Put("/{code}", h.Upsert)
		r.Get("/{code}", h.Get)
	})
	r.Get("/{code}/events", h.Events)

	return r
}

// PUT /v1/pairings/{code}
// Writes the caller's slot; the other role's slot is never touched.
func (h *PairingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req model.UpsertPairingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	rec, err := h.pairingService.Upsert(r.Context(), chi.URLParam(r, "code"), req)
	if err != nil {
		logServerError(err, "failed to upsert pairing")
		httputil.WriteError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:        audit.EventPairingUpsert,
		SessionCode: rec.SessionCode,
		Details:     map[string]any{"role": string(req.Role)},
	})
	writeJSON(w, http.StatusOK, rec)
}

// GET /v1/pairings/{code}
func (h *PairingHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.pairingService.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		logServerError(err, "failed to read pairing")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GET /v1/pairings/{code}/events
// Streams `connected`, the current row (if any) and every later change.
func (h *PairingHandler) Events(w http.ResponseWriter, r *http.Request) {
	code := util.NormalizeSessionCode(chi.URLParam(r, "code"))
	if !util.IsValidSessionCode(code) {
		httputil.WriteError(w, apperrors.InvalidSessionCode(chi.URLParam(r, "code")))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	ctx := r.Context()

	// Subscribe before the initial read so no change between them is lost.
	client := h.streams.Subscribe(code)
	defer h.streams.Unsubscribe(client)

	current, err := h.pairingService.Find(ctx, code)
	if err != nil {
		logServerError(err, "failed to read pairing for stream")
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	masked := util.MaskCode(code)
	log.Info().Str("sessionCode", masked).Msg("sse connection established")

	if err := sendEvent(w, flusher, sse.EventConnected, map[string]any{"sessionCode": code}); err != nil {
		return
	}
	if current != nil {
		if err := sendEvent(w, flusher, sse.EventPairing, current); err != nil {
			return
		}
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("sessionCode", masked).Msg("sse connection closed by client")
			return

		case <-client.Done:
			log.Info().Str("sessionCode", masked).Msg("sse connection closed by broker")
			return

		case event := <-client.Events:
			if err := sendRawEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Msg("failed to send event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				log.Debug().Str("sessionCode", masked).Msg("heartbeat failed, closing connection")
				return
			}
			flusher.Flush()
		}
	}
}

func logServerError(err error, msg string) {
	if httputil.StatusFromCode(apperrors.GetCode(err)) >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	}
}
