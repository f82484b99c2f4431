package security

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/application/household"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/persistence/memory"
	"github.com/suppertime/v1/internal/ports/inbound"
)

func newAuthService(t *testing.T, environment string) (*AuthService, *household.Service) {
	t.Helper()
	households := household.NewService(
		memory.NewHouseholdRepository(memory.NewStore()),
		"auth-test-secret",
		zap.NewNop(),
	)
	cfg := &config.Config{}
	cfg.App.Environment = environment
	return NewAuthService(cfg, households, zap.NewNop()), households
}

func TestResolveHouseholdKey_ValidBearer(t *testing.T) {
	auth, households := newAuthService(t, "production")

	issued, err := households.IssueToken(context.Background(), inbound.TokenRequest{HouseholdKey: "garcia-family"})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/api/v1/decision", nil)
	r.Header.Set("Authorization", "Bearer "+issued.Token)

	key, err := auth.ResolveHouseholdKey(r)
	require.NoError(t, err)
	assert.Equal(t, "garcia-family", key)
}

func TestResolveHouseholdKey_DevFallback(t *testing.T) {
	auth, _ := newAuthService(t, "development")

	r := httptest.NewRequest("POST", "/api/v1/decision", nil)
	key, err := auth.ResolveHouseholdKey(r)
	require.NoError(t, err)
	assert.Equal(t, DevHouseholdKey, key)
}

func TestResolveHouseholdKey_ProductionRequiresToken(t *testing.T) {
	auth, _ := newAuthService(t, "production")

	r := httptest.NewRequest("POST", "/api/v1/decision", nil)
	_, err := auth.ResolveHouseholdKey(r)
	require.Error(t, err)
}

func TestResolveHouseholdKey_RejectsMalformedHeaders(t *testing.T) {
	auth, _ := newAuthService(t, "production")

	for _, header := range []string{"Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "garbage"} {
		r := httptest.NewRequest("POST", "/api/v1/decision", nil)
		r.Header.Set("Authorization", header)
		_, err := auth.ResolveHouseholdKey(r)
		require.Error(t, err, "header %q must be rejected", header)
	}
}

func TestResolveHouseholdKey_RejectsForgedToken(t *testing.T) {
	auth, households := newAuthService(t, "development")

	issued, err := households.IssueToken(context.Background(), inbound.TokenRequest{HouseholdKey: "garcia-family"})
	require.NoError(t, err)

	// A present-but-invalid token never falls back to the dev key.
	r := httptest.NewRequest("POST", "/api/v1/decision", nil)
	r.Header.Set("Authorization", "Bearer "+issued.Token+"tampered")
	_, err = auth.ResolveHouseholdKey(r)
	require.Error(t, err)
}

func TestHouseholdKeyContext(t *testing.T) {
	ctx := WithHouseholdKey(context.Background(), "garcia-family")
	assert.Equal(t, "garcia-family", HouseholdKeyFromContext(ctx))
	assert.Equal(t, "", HouseholdKeyFromContext(context.Background()))
}
