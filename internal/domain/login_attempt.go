package domain

import "time"

// RequestMeta captures caller metadata attached to login attempts.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginAttempt records one authentication try, successful or not. UserID is
// nil when the presented email matched no account.
type LoginAttempt struct {
	ID            string
	UserID        *string
	Email         string
	IPAddress     string
	UserAgent     string
	Successful    bool
	FailureReason string
	AttemptedAt   time.Time
}
