package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/repository"
)

// LoginAttemptService appends login attempts and counts failures over a
// trailing window. It is an independent collaborator; the session manager
// consults it before touching credentials to add a lockout decision.
type LoginAttemptService struct {
	attempts    repository.LoginAttemptRepository
	logger      *zap.Logger
	window      time.Duration
	maxFailures int
}

// NewLoginAttemptService builds the detector from lockout config.
func NewLoginAttemptService(cfg config.LockoutConfig, attempts repository.LoginAttemptRepository, logger *zap.Logger) *LoginAttemptService {
	return &LoginAttemptService{
		attempts:    attempts,
		logger:      logger,
		window:      cfg.Window(),
		maxFailures: cfg.MaxFailures,
	}
}

// Record appends one attempt. user is nil when the email matched no account.
func (s *LoginAttemptService) Record(ctx context.Context, user *domain.User, email string, meta domain.RequestMeta, successful bool, reason string) error {
	attempt := &domain.LoginAttempt{
		Email:         email,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		Successful:    successful,
		FailureReason: reason,
		AttemptedAt:   time.Now(),
	}
	if user != nil {
		attempt.UserID = &user.ID
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		return err
	}
	if !successful {
		s.logger.Info("failed login attempt",
			zap.String("email", email),
			zap.String("ip", meta.IPAddress),
			zap.String("reason", reason))
	}
	return nil
}

// IsSuspicious reports whether the user crossed the failure threshold within
// the trailing window.
func (s *LoginAttemptService) IsSuspicious(ctx context.Context, userID string) (bool, error) {
	since := time.Now().Add(-s.window)
	failed, err := s.attempts.CountFailedSince(ctx, userID, since)
	if err != nil {
		return false, err
	}
	return failed >= s.maxFailures, nil
}

// MaxFailures exposes the lockout threshold.
func (s *LoginAttemptService) MaxFailures() int {
	return s.maxFailures
}

// RecentByUser lists latest attempts for audit endpoints.
func (s *LoginAttemptService) RecentByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.attempts.ListByUser(ctx, userID, limit)
}
