package events

import (
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered  EventType = "user_registered"
	EventSessionCreated  EventType = "session_created"
	EventTokensRevoked   EventType = "tokens_revoked"
	EventSuspiciousLogin EventType = "suspicious_login"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// SessionCreatedPayload payload.
type SessionCreatedPayload struct {
	Email     string `json:"email"`
	IPAddress string `json:"ip_address,omitempty"`
	Refreshed bool   `json:"refreshed"`
}

// TokensRevokedPayload payload.
type TokensRevokedPayload struct {
	Count  int    `json:"count"`
	Reason string `json:"reason"`
}

// SuspiciousLoginPayload payload.
type SuspiciousLoginPayload struct {
	Email          string `json:"email"`
	FailedAttempts int    `json:"failed_attempts"`
	IPAddress      string `json:"ip_address,omitempty"`
}
