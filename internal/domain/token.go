package domain

import "time"

// TokenKind differentiates short-lived access tokens from long-lived refresh
// tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// TokenStatus is the ledger lifecycle state. Transitions are one-way:
// ACTIVE -> INACTIVE, never back.
type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "ACTIVE"
	TokenStatusInactive TokenStatus = "INACTIVE"
)

// Token is a ledger row for an issued credential. Value is immutable once
// created; only Status mutates. Rows are never deleted except by owning-user
// cascade.
type Token struct {
	ID         string
	Value      string
	Kind       TokenKind
	Status     TokenStatus
	OwnerID    string
	OwnerEmail string
	OwnerRole  Role
	IssuedAt   time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TokenPair is the result of a successful authenticate or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenValidation is the verdict returned to validation callers. Subject and
// Roles are populated even when Valid is false so the attempt can be logged.
type TokenValidation struct {
	Valid   bool
	Subject string
	Roles   []Role
}
