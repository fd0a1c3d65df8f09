package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/identity-service/internal/domain"
)

var (
	// ErrInvalidToken covers malformed input, signature mismatch and expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSubjectMismatch is returned when the token was signed for someone else.
	ErrSubjectMismatch = errors.New("token subject mismatch")
)

// Signer issues and verifies compact signed tokens. The signing key is
// process-wide and read-only after construction, so a single Signer is safe
// for unbounded concurrent callers.
type Signer struct {
	secret []byte
}

// NewSigner builds a Signer around the shared HS256 secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Claims describes the signed token payload.
type Claims struct {
	Role domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a token for subject expiring after ttl. The Signer is
// TTL-agnostic; callers pass the access or refresh duration from config.
func (s *Signer) Issue(subject string, ttl time.Duration, role domain.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	value, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return value, expiresAt, nil
}

// Verify parses value and checks signature, expiry and subject. It fails
// closed: any malformed or forged input yields an error, never a panic, and
// no claim is returned unless the signature verified.
func (s *Signer) Verify(value, expectedSubject string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(value, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject != expectedSubject {
		return nil, ErrSubjectMismatch
	}
	return claims, nil
}
