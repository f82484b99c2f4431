package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// probeTimeout bounds each readiness probe so one stuck dependency
// cannot hang the endpoint.
const probeTimeout = 2 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// HealthChecker serves liveness and readiness. Liveness reports the
// process alive; readiness runs the registered dependency probes.
type HealthChecker struct {
	name    string
	version string
	started time.Time
	logger  *zap.Logger

	mu     sync.RWMutex
	probes map[string]Probe
}

// NewHealthChecker creates a health checker stamped with the service
// identity.
func NewHealthChecker(name, version string, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		name:    name,
		version: version,
		started: time.Now(),
		logger:  logger,
		probes:  make(map[string]Probe),
	}
}

// Register adds a named readiness probe.
func (h *HealthChecker) Register(name string, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// LiveHandler reports liveness with version and uptime.
func (h *HealthChecker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": h.name,
			"version": h.version,
			"uptime":  time.Since(h.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler runs every probe and reports 503 when any fails.
func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		names := make([]string, 0, len(h.probes))
		for name := range h.probes {
			names = append(names, name)
		}
		sort.Strings(names)
		probes := make(map[string]Probe, len(h.probes))
		for name, probe := range h.probes {
			probes[name] = probe
		}
		h.mu.RUnlock()

		checks := make(map[string]string, len(names))
		healthy := true
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			err := probes[name](ctx)
			cancel()
			if err != nil {
				healthy = false
				checks[name] = err.Error()
				h.logger.Warn("Readiness probe failed",
					zap.String("probe", name),
					zap.Error(err),
				)
			} else {
				checks[name] = "ok"
			}
		}

		status := "ready"
		code := http.StatusOK
		if !healthy {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
