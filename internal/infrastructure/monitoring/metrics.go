// Package monitoring provides Prometheus metrics, OpenTelemetry
// tracing, and health probes.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics collects the service's Prometheus metrics on its own
// registry, so construction is safe to repeat in tests.
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	decisionsTotal      *prometheus.CounterVec
	autopilotTotal      *prometheus.CounterVec
	drmTotal            *prometheus.CounterVec
	receiptImportsTotal *prometheus.CounterVec
	tasteUpdatesTotal   *prometheus.CounterVec
}

// NewMetrics creates the metrics collector.
func NewMetrics(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		logger:   logger,
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),

		decisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "decisions_total",
				Help: "Total decisions served, by decision type",
			},
			[]string{"type"},
		),
		autopilotTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopilot_total",
				Help: "Autopilot evaluations on served decisions",
			},
			[]string{"eligible"},
		),
		drmTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drm_total",
				Help: "Dinner rescue recommendations and triggers, by reason",
			},
			[]string{"reason"},
		),
		receiptImportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "receipt_imports_total",
				Help: "Receipt imports, by final status",
			},
			[]string{"status"},
		),
		tasteUpdatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taste_updates_total",
				Help: "Feedback recordings, by result",
			},
			[]string{"result"},
		),
	}
}

// HTTPMiddleware records request count and duration labeled by the
// matched chi route pattern.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(ww.Status())

		m.httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path, status).
			Observe(time.Since(start).Seconds())
	})
}

// DecisionServed records one served decision. An empty type counts as
// "none", the rescue-recommended reply.
func (m *Metrics) DecisionServed(decisionType string) {
	if decisionType == "" {
		decisionType = "none"
	}
	m.decisionsTotal.WithLabelValues(decisionType).Inc()
}

// AutopilotEvaluated records one autopilot gate outcome.
func (m *Metrics) AutopilotEvaluated(eligible bool) {
	m.autopilotTotal.WithLabelValues(strconv.FormatBool(eligible)).Inc()
}

// DrmRecommended records a rescue recommendation or trigger.
func (m *Metrics) DrmRecommended(reason string) {
	m.drmTotal.WithLabelValues(reason).Inc()
}

// ReceiptImported records a completed import attempt.
func (m *Metrics) ReceiptImported(status string) {
	m.receiptImportsTotal.WithLabelValues(status).Inc()
}

// TasteUpdated records a feedback recording outcome.
func (m *Metrics) TasteUpdated(result string) {
	m.tasteUpdatesTotal.WithLabelValues(result).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
