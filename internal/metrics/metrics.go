package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_http_requests_total",
			Help: "Total number of HTTP requests processed by the signal server.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	sseActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_sse_active_connections",
			Help: "Number of open pairing event streams.",
		},
	)
	pairingUpsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_pairing_upserts_total",
			Help: "Total number of pairing slot writes.",
		},
		[]string{"role"},
	)
	notifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_notify_total",
			Help: "Total number of relay notifications by outcome.",
		},
		[]string{"outcome"},
	)
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signal_active_sessions",
			Help: "Sessions whose pairing row changed recently.",
		},
	)
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_rate_limited_total",
			Help: "Total number of requests rejected by a rate limit.",
		},
		[]string{"prefix"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signal_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		sseActiveConnections,
		pairingUpsertsTotal,
		notifyTotal,
		activeSessions,
		rateLimitedTotal,
		amqpPublishErrorsTotal,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware records request counts and latencies by chi route pattern.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func IncSSEActive() {
	sseActiveConnections.Inc()
}

func DecSSEActive() {
	sseActiveConnections.Dec()
}

func IncPairingUpsert(role string) {
	pairingUpsertsTotal.WithLabelValues(role).Inc()
}

func IncNotify(outcome string) {
	notifyTotal.WithLabelValues(outcome).Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

func IncRateLimited(prefix string) {
	rateLimitedTotal.WithLabelValues(prefix).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
