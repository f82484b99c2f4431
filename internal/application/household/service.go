// Package household provides token issuance and verification for the
// tenancy layer. A household registers itself on first contact; the
// optional secret, once set, is required for every later issuance.
package household

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/suppertime/v1/internal/domain/household"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/errors"
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

// HouseholdClaims are the JWT claims carried by every issued token.
type HouseholdClaims struct {
	HouseholdKey string `json:"householdKey"`
	jwt.RegisteredClaims
}

// Service implements token issuance and verification.
type Service struct {
	households outbound.HouseholdRepository
	jwtSecret  string
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the household auth service.
func NewService(households outbound.HouseholdRepository, jwtSecret string, logger *zap.Logger) *Service {
	return &Service{
		households: households,
		jwtSecret:  jwtSecret,
		logger:     logger.Named("household-service"),
		now:        time.Now,
	}
}

// IssueToken authenticates a household and signs a bearer token. An
// unknown key registers itself; a household registered with a secret
// demands that secret on every later issuance.
func (s *Service) IssueToken(ctx context.Context, req inbound.TokenRequest) (*inbound.TokenResponse, error) {
	if !household.ValidKey(req.HouseholdKey) {
		return nil, errors.NewValidationError("householdKey must be 3-64 lowercase alphanumerics, dashes, or underscores")
	}

	h, err := s.households.FindByKey(ctx, req.HouseholdKey)
	if err != nil {
		return nil, errors.NewDatabaseError("load household", err)
	}
	if h == nil {
		h, err = s.register(ctx, req)
		if err != nil {
			return nil, err
		}
	} else if h.SecretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h.SecretHash), []byte(req.Secret)); err != nil {
			s.logger.Warn("Token issuance rejected",
				zap.String("household_key", req.HouseholdKey),
			)
			return nil, errors.NewUnauthorizedError("household secret mismatch")
		}
	}

	token, expiresAt, err := s.sign(h.Key)
	if err != nil {
		return nil, errors.Wrap(err, "sign household token")
	}

	s.logger.Info("Token issued",
		zap.String("household_key", h.Key),
		zap.Time("expires_at", expiresAt),
	)
	return &inbound.TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}

// ValidateToken verifies a bearer token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*HouseholdClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &HouseholdClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, errors.NewInvalidTokenError()
	}

	claims, ok := token.Claims.(*HouseholdClaims)
	if !ok || !token.Valid || !household.ValidKey(claims.HouseholdKey) {
		return nil, errors.NewInvalidTokenError()
	}
	return claims, nil
}

// register creates the household on first contact. A supplied secret
// is hashed and locks the key; without one the household stays open.
func (s *Service) register(ctx context.Context, req inbound.TokenRequest) (*household.Household, error) {
	secretHash := ""
	if req.Secret != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrap(err, "hash household secret")
		}
		secretHash = string(hashed)
	}

	h := &household.Household{
		Key:        req.HouseholdKey,
		Name:       req.HouseholdKey,
		SecretHash: secretHash,
		CreatedAt:  s.now(),
	}
	if err := s.households.Create(ctx, h); err != nil {
		if errors.IsAlreadyProcessed(err) {
			// Concurrent first contact: the other request's row wins.
			existing, ferr := s.households.FindByKey(ctx, req.HouseholdKey)
			if ferr != nil || existing == nil {
				return nil, errors.NewDatabaseError("load household", ferr)
			}
			if existing.SecretHash != "" {
				if cerr := bcrypt.CompareHashAndPassword([]byte(existing.SecretHash), []byte(req.Secret)); cerr != nil {
					return nil, errors.NewUnauthorizedError("household secret mismatch")
				}
			}
			return existing, nil
		}
		return nil, errors.NewDatabaseError("create household", err)
	}

	s.logger.Info("Household registered",
		zap.String("household_key", h.Key),
		zap.Bool("secret_set", secretHash != ""),
	)
	return h, nil
}

// sign builds and signs the HS256 token for a household key.
func (s *Service) sign(householdKey string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(TokenTTL)
	claims := &HouseholdClaims{
		HouseholdKey: householdKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   householdKey,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
