// Package security provides bearer-token resolution and request
// validation for the HTTP boundary.
package security

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/application/household"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/pkg/errors"
)

// DevHouseholdKey is the key unauthenticated requests resolve to in
// development mode. Production requests always need a token.
const DevHouseholdKey = "default"

type contextKey string

const householdKeyContextKey contextKey = "household_key"

// AuthService turns Authorization headers into household keys. The
// token's key always wins over whatever the request body claims.
type AuthService struct {
	households *household.Service
	devMode    bool
	logger     *zap.Logger
}

// NewAuthService creates the boundary auth service.
func NewAuthService(cfg *config.Config, households *household.Service, logger *zap.Logger) *AuthService {
	return &AuthService{
		households: households,
		devMode:    !cfg.IsProduction(),
		logger:     logger.Named("auth"),
	}
}

// ResolveHouseholdKey authenticates one request. A valid bearer token
// yields its embedded household key; a missing header falls back to
// the dev household outside production.
func (a *AuthService) ResolveHouseholdKey(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if a.devMode {
			return DevHouseholdKey, nil
		}
		return "", errors.NewUnauthorizedError("")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.NewInvalidTokenError()
	}

	claims, err := a.households.ValidateToken(token)
	if err != nil {
		a.logger.Debug("Bearer token rejected", zap.Error(err))
		return "", errors.NewInvalidTokenError()
	}
	return claims.HouseholdKey, nil
}

// WithHouseholdKey stores the resolved key on the request context.
func WithHouseholdKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, householdKeyContextKey, key)
}

// HouseholdKeyFromContext reads the key the auth middleware resolved.
// The empty string means the request never passed through auth.
func HouseholdKeyFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(householdKeyContextKey).(string); ok {
		return key
	}
	return ""
}
