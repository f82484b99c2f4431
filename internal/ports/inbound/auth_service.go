package inbound

import "context"

// AuthService issues bearer tokens for households. Token issuance is
// a development convenience; production deployments mint tokens out
// of band.
type AuthService interface {
	IssueToken(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

// TokenRequest asks for a household-scoped bearer token.
type TokenRequest struct {
	HouseholdKey string `json:"householdKey" validate:"required,household_key"`
	Secret       string `json:"secret,omitempty"`
}

// TokenResponse carries the signed token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}
