// Package server provides the JSON API HTTP server
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/http/handlers"
	"github.com/suppertime/v1/internal/infrastructure/http/middleware"
	"github.com/suppertime/v1/internal/infrastructure/monitoring"
	"github.com/suppertime/v1/internal/infrastructure/security"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server
type Server struct {
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
	router      *chi.Mux
	handlers    *handlers.APIHandlers
	authService *security.AuthService
	rateLimiter *middleware.RateLimiter
	health      *monitoring.HealthChecker
	metrics     *monitoring.Metrics
	maintenance atomic.Bool
}

// NewServer creates a new HTTP server instance. The metrics and rate
// limiter arguments are nil when the corresponding feature is off.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	apiHandlers *handlers.APIHandlers,
	authService *security.AuthService,
	rateLimiter *middleware.RateLimiter,
	health *monitoring.HealthChecker,
	metrics *monitoring.Metrics,
) *Server {
	s := &Server{
		config:      cfg,
		logger:      logger,
		handlers:    apiHandlers,
		authService: authService,
		rateLimiter: rateLimiter,
		health:      health,
		metrics:     metrics,
	}
	s.maintenance.Store(cfg.Features.MaintenanceMode)

	s.router = s.setupRouter()

	var handler http.Handler = s.router
	if cfg.Monitoring.EnableTracing {
		handler = otelhttp.NewHandler(handler, "suppertime-api")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

// setupRouter configures the HTTP router with middleware and routes
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Security())
	r.Use(middleware.CORS())
	r.Use(chimiddleware.Timeout(s.config.Server.WriteTimeout))
	if s.config.Server.EnableCompression {
		r.Use(s.compressor())
	}

	if s.metrics != nil {
		r.Use(s.metrics.HTTPMiddleware)
	}

	// Ops surfaces stay at the root, outside auth and rate limits.
	r.Get(s.config.Monitoring.HealthCheckPath, s.health.LiveHandler())
	r.Get(s.config.Monitoring.ReadinessPath, s.health.ReadyHandler())
	if s.metrics != nil {
		r.Handle(s.config.Monitoring.MetricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Maintenance(&s.maintenance))
		r.Use(middleware.JSONOnly())

		// Token issuance sits outside the bearer check.
		r.Post("/auth/token", s.handlers.HandleToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.authService))
			if s.rateLimiter != nil {
				r.Use(s.rateLimiter.Handler())
			}

			r.Post("/decision", s.handlers.HandleDecision)
			r.Post("/feedback", s.handlers.HandleFeedback)
			r.Post("/drm", s.handlers.HandleRescue)
			r.Post("/receipt/import", s.handlers.HandleReceiptImport)
			r.Get("/receipt/import/{importID}", s.handlers.HandleReceiptStatus)
		})
	})

	return r
}

// compressor builds the response compressor with brotli preferred
// over gzip when the client accepts it.
func (s *Server) compressor() func(next http.Handler) http.Handler {
	compressor := chimiddleware.NewCompressor(5, "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return compressor.Handler
}

// SetMaintenanceMode flips the API-wide maintenance gate. Safe to call
// while the server is serving; the config watcher applies file edits
// through it.
func (s *Server) SetMaintenanceMode(on bool) {
	if s.maintenance.Swap(on) != on {
		s.logger.Warn("Maintenance mode changed", zap.Bool("enabled", on))
	}
}

// Router exposes the composed router for tests.
func (s *Server) Router() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting API server",
		zap.String("address", s.server.Addr),
		zap.String("environment", s.config.App.Environment),
	)

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server...")

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	return s.server.Shutdown(ctx)
}
