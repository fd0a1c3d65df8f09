package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Subject string
	Role    domain.Role
	Token   string
}

// TokenValidator is the slice of the session manager the middleware needs.
// Validation goes through the ledger, so revoked tokens are rejected even
// while their signature still verifies.
type TokenValidator interface {
	Validate(ctx context.Context, value string) (domain.TokenValidation, error)
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	sessions TokenValidator
}

// NewMiddleware constructs middleware.
func NewMiddleware(sessions TokenValidator) *Middleware {
	return &Middleware{sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	value, err := BearerToken(c)
	if err != nil {
		return err
	}

	verdict, err := m.sessions.Validate(c.UserContext(), value)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !verdict.Valid {
		return apperrors.NewUnauthorized("invalid token")
	}

	role := domain.RoleUser
	if len(verdict.Roles) > 0 {
		role = verdict.Roles[0]
	}

	c.Locals(principalKey, &Principal{Subject: verdict.Subject, Role: role, Token: value})
	return c.Next()
}

// BearerToken extracts the token value from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
