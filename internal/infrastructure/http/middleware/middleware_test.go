package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/application/household"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/persistence/memory"
	"github.com/suppertime/v1/internal/infrastructure/security"
	"github.com/suppertime/v1/internal/ports/inbound"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newAuthService(t *testing.T, environment string) (*security.AuthService, *household.Service) {
	t.Helper()
	households := household.NewService(
		memory.NewHouseholdRepository(memory.NewStore()),
		"middleware-test-secret",
		zap.NewNop(),
	)
	cfg := &config.Config{}
	cfg.App.Environment = environment
	return security.NewAuthService(cfg, households, zap.NewNop()), households
}

func TestAuthenticate_DevFallbackWithoutHeader(t *testing.T) {
	auth, _ := newAuthService(t, "development")

	var gotKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = security.HouseholdKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Authenticate(auth)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, security.DevHouseholdKey, gotKey)
}

func TestAuthenticate_ProductionRejectsMissingToken(t *testing.T) {
	auth, _ := newAuthService(t, "production")
	handler := Authenticate(auth)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAuthenticate_ValidTokenSetsContext(t *testing.T) {
	auth, households := newAuthService(t, "production")

	issued, err := households.IssueToken(context.Background(), inbound.TokenRequest{HouseholdKey: "casa-verde"})
	require.NoError(t, err)

	var gotKey string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = security.HouseholdKeyFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	handler := Authenticate(auth)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "casa-verde", gotKey)
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstSize: 2}, zap.NewNop())
	defer rl.Stop()

	handler := rl.Handler()(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil)
		req = req.WithContext(security.WithHouseholdKey(req.Context(), "casa-verde"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)

	blocked := send()
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "too_many_requests")
}

func TestRateLimiter_IsolatesHouseholds(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMin: 60, BurstSize: 1}, zap.NewNop())
	defer rl.Stop()

	handler := rl.Handler()(okHandler())

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil)
		req = req.WithContext(security.WithHouseholdKey(req.Context(), key))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("casa-verde"))
	assert.Equal(t, http.StatusTooManyRequests, send("casa-verde"))
	assert.Equal(t, http.StatusOK, send("casa-azul"))
}

func TestJSONOnly_RejectsNonJSONBody(t *testing.T) {
	handler := JSONOnly()(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/decision", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "text/xml")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestJSONOnly_AllowsGetWithoutContentType(t *testing.T) {
	handler := JSONOnly()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMaintenance_RefusesWhileEnabled(t *testing.T) {
	var enabled atomic.Bool
	handler := Maintenance(&enabled)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	enabled.Store(true)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "service_unavailable")

	enabled.Store(false)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decision", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurity_SetsHeaders(t *testing.T) {
	handler := Security()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/decision", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}
