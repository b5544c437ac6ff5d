package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sxk/signal-link/internal/audit"
	"github.com/sxk/signal-link/internal/util"
)

// EntryHandler turns a shared entry link into an invitation redirect.
type EntryHandler struct {
	entryCode string
}

func NewEntryHandler(entryCode string) *EntryHandler {
	return &EntryHandler{entryCode: entryCode}
}

// GET /entry/{code}
func (h *EntryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if h.entryCode == "" || !util.ConstantTimeEqual(code, h.entryCode) {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventEntryDenied, SessionCode: code})
		http.NotFound(w, r)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventEntryGranted, SessionCode: code})
	http.Redirect(w, r, "/?session="+url.QueryEscape(code), http.StatusFound)
}
