package dto

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest payload for credential exchange.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPairResponse carries an issued pair.
type TokenPairResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenRequest carries a single token value (refresh, validate, disable).
type TokenRequest struct {
	Token string `json:"token"`
}

// ValidationResponse is returned for every validate call, valid or not, so
// the attempted subject can be logged upstream.
type ValidationResponse struct {
	Valid   bool          `json:"valid"`
	Subject string        `json:"subject"`
	Roles   []domain.Role `json:"roles"`
}

// ExternalLoginRequest carries the verified identity handed over by the
// OAuth2 gateway after the code exchange.
type ExternalLoginRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ExternalLoginResponse returns the pair plus the redirect target.
type ExternalLoginResponse struct {
	Auth        TokenPairResponse `json:"auth"`
	RedirectURL string            `json:"redirect_url"`
}

// NewTokenPairResponse maps the domain pair.
func NewTokenPairResponse(pair *domain.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
}
