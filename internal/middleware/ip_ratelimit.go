package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sxk/signal-link/internal/audit"
	apperrors "github.com/sxk/signal-link/internal/errors"
	"github.com/sxk/signal-link/internal/httputil"
	"github.com/sxk/signal-link/internal/metrics"
	"github.com/sxk/signal-link/internal/service"
)

// Limiter decides whether one more hit against key fits the window.
type Limiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) service.RateDecision
}

type IPRateLimitMiddleware struct {
	limiter Limiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter Limiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := audit.ClientIP(r)

		key := fmt.Sprintf("ip:%s:%s", m.prefix, ip)
		decision := m.limiter.CheckLimit(r.Context(), key, m.limit, m.window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			secondsLeft := int(time.Until(decision.ResetAt).Seconds()) + 1
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))

			metrics.IncRateLimited(m.prefix)
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]any{"prefix": m.prefix, "limit": m.limit},
			})

			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
