package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/sse"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: jsonData})
}

func sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
