package dto

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// UserResponse is the public account shape.
type UserResponse struct {
	ID        string            `json:"id"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      domain.Role       `json:"role"`
	Status    domain.UserStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// UserUpdateRequest carries the mutable profile fields.
type UserUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// SessionInfo describes a live token without exposing its value.
type SessionInfo struct {
	Kind      domain.TokenKind `json:"kind"`
	IssuedAt  time.Time        `json:"issued_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// LoginAttemptInfo is one audit log entry.
type LoginAttemptInfo struct {
	Successful    bool      `json:"successful"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"user_agent"`
	FailureReason string    `json:"failure_reason,omitempty"`
	AttemptedAt   time.Time `json:"attempted_at"`
}

// ActivityResponse aggregates live sessions and recent login attempts.
type ActivityResponse struct {
	Sessions []SessionInfo      `json:"sessions"`
	Attempts []LoginAttemptInfo `json:"attempts"`
}

// NewActivityResponse maps ledger rows and attempts.
func NewActivityResponse(tokens []domain.Token, attempts []domain.LoginAttempt) ActivityResponse {
	out := ActivityResponse{
		Sessions: make([]SessionInfo, 0, len(tokens)),
		Attempts: make([]LoginAttemptInfo, 0, len(attempts)),
	}
	for _, token := range tokens {
		out.Sessions = append(out.Sessions, SessionInfo{
			Kind:      token.Kind,
			IssuedAt:  token.IssuedAt,
			ExpiresAt: token.ExpiresAt,
		})
	}
	for _, attempt := range attempts {
		out.Attempts = append(out.Attempts, LoginAttemptInfo{
			Successful:    attempt.Successful,
			IPAddress:     attempt.IPAddress,
			UserAgent:     attempt.UserAgent,
			FailureReason: attempt.FailureReason,
			AttemptedAt:   attempt.AttemptedAt,
		})
	}
	return out
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}
