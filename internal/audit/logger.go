package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/metrics"
	"github.com/sxk/signal-link/internal/util"
)

type EventType string

const (
	EventPairingUpsert   EventType = "pairing_upsert"
	EventNotifySent      EventType = "notify_sent"
	EventNotifyFailed    EventType = "notify_failed"
	EventNotifyRejected  EventType = "notify_rejected"
	EventRateLimitExceed EventType = "rate_limit_exceeded"
	EventEntryGranted    EventType = "entry_granted"
	EventEntryDenied     EventType = "entry_denied"
)

const publishTimeout = 2 * time.Second

type Event struct {
	Type        EventType      `json:"eventType"`
	SessionCode string         `json:"sessionCode,omitempty"`
	ClientID    string         `json:"clientId,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"userAgent,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

var publisher Publisher = noopPublisher{reason: "not configured"}

// SetPublisher routes every logged event to p as well as the log.
func SetPublisher(p Publisher) {
	if p == nil {
		p = noopPublisher{reason: "not configured"}
	}
	publisher = p
}

func Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	// Only the masked code is logged or published.
	event.SessionCode = maskOptional(event.SessionCode)

	logger := log.With().
		Str("audit", "signal").
		Str("event_type", string(event.Type)).
		Time("timestamp", event.Timestamp).
		Logger()

	if event.SessionCode != "" {
		logger = logger.With().Str("session_code", event.SessionCode).Logger()
	}
	if event.ClientID != "" {
		logger = logger.With().Str("client_id", event.ClientID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}
	if event.UserAgent != "" {
		logger = logger.With().Str("user_agent", event.UserAgent).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := publisher.Publish(pubCtx, "audit."+string(event.Type), event); err != nil {
		metrics.IncAMQPPublishError()
		log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("audit publish failed")
	}
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	event.UserAgent = r.UserAgent()
	event.ClientID = RequestClientID(r)
	Log(r.Context(), event)
}

// RequestClientID returns the caller's client id header in canonical form, or
// "" when it is absent or not a UUID.
func RequestClientID(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get(httputil.ClientIDHeader))
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}

// ClientIP returns the first forwarded address, falling back to RemoteAddr
// without its port.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func maskOptional(code string) string {
	if code == "" || strings.HasSuffix(code, "****") {
		return code
	}
	return util.MaskCode(code)
}
