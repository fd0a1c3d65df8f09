package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/cache"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// SessionService owns the token lifecycle: credential exchange, refresh,
// validation, logout and bulk revocation. There is never more than one live
// session generation per user; every successful authenticate or refresh
// revokes the previous generation inside one ledger transaction.
type SessionService struct {
	users      repository.UserRepository
	tokens     repository.TokenRepository
	cache      cache.TokenCache
	attempts   *LoginAttemptService
	signer     *auth.Signer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
}

// SessionDependencies encapsulates collaborator requirements.
type SessionDependencies struct {
	UserRepo   repository.UserRepository
	TokenRepo  repository.TokenRepository
	TokenCache cache.TokenCache
	Attempts   *LoginAttemptService
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewSessionService builds the service.
func NewSessionService(cfg config.Config, deps SessionDependencies) *SessionService {
	return &SessionService{
		users:         deps.UserRepo,
		tokens:        deps.TokenRepo,
		cache:         deps.TokenCache,
		attempts:      deps.Attempts,
		signer:        auth.NewSigner(cfg.Auth.JWTSecret),
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		accessTTL:     cfg.Auth.AccessTokenTTL(),
		refreshTTL:    cfg.Auth.RefreshTokenTTL(),
		rotateRefresh: cfg.Auth.RotateRefreshTokens,
	}
}

// Authenticate exchanges an email/password pair for a fresh token pair. All
// previously outstanding tokens for the user are revoked before the new pair
// becomes visible.
func (s *SessionService) Authenticate(ctx context.Context, email, password string, meta domain.RequestMeta) (*domain.TokenPair, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, apperrors.NewInvalidRequest("email and password required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordAttempt(ctx, nil, email, meta, false, "unknown email")
			return nil, apperrors.NewAuthFailure("invalid credentials")
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	if s.attempts != nil {
		suspicious, err := s.attempts.IsSuspicious(ctx, user.ID)
		if err != nil {
			return nil, apperrors.NewStorageUnavailable(err)
		}
		if suspicious {
			s.recordAttempt(ctx, user, email, meta, false, "account locked")
			s.publish(ctx, events.EventSuspiciousLogin, user.ID, events.SuspiciousLoginPayload{
				Email:          user.Email,
				FailedAttempts: s.attempts.MaxFailures(),
				IPAddress:      meta.IPAddress,
			})
			return nil, apperrors.NewForbidden("too many failed login attempts")
		}
	}

	if user.Status != domain.UserStatusActive {
		s.recordAttempt(ctx, user, email, meta, false, "account inactive")
		return nil, apperrors.NewAuthFailure("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordAttempt(ctx, user, email, meta, false, "password mismatch")
		return nil, apperrors.NewAuthFailure("invalid credentials")
	}

	s.recordAttempt(ctx, user, email, meta, true, "")

	pair, err := s.CreateSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthOutcome("issued")
	s.publish(ctx, events.EventSessionCreated, user.ID, events.SessionCreatedPayload{
		Email:     user.Email,
		IPAddress: meta.IPAddress,
	})
	return pair, nil
}

// CreateSession issues a fresh ACCESS+REFRESH pair for an already verified
// user, superseding every active token. Used by Authenticate and by external
// login completion.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	return s.issueTokens(ctx, user, "")
}

// Refresh mints a new access token from a valid refresh token. Depending on
// the rotation policy the presented refresh token is either kept as the only
// surviving token of the previous generation or replaced alongside it.
func (s *SessionService) Refresh(ctx context.Context, refreshValue string) (*domain.TokenPair, error) {
	if strings.TrimSpace(refreshValue) == "" {
		return nil, apperrors.NewInvalidRequest("refresh token required", nil)
	}

	token, err := s.tokens.FindByValueAndKind(ctx, refreshValue, domain.TokenKindRefresh)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewTokenNotFound()
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	if !s.isTokenValid(token) {
		return nil, apperrors.NewInvalidToken("refresh token expired or revoked")
	}

	user := ownerOf(token)
	keepValue := refreshValue
	if s.rotateRefresh {
		keepValue = ""
	}

	pair, err := s.issueTokens(ctx, user, keepValue)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAuthOutcome("refreshed")
	s.publish(ctx, events.EventSessionCreated, user.ID, events.SessionCreatedPayload{
		Email:     user.Email,
		Refreshed: true,
	})
	return pair, nil
}

// Validate reports whether value identifies a live token. It fails closed:
// unknown values, forged signatures and revoked or expired tokens all yield
// Valid=false. Subject and roles are returned either way so callers can log
// the attempted identity.
func (s *SessionService) Validate(ctx context.Context, value string) (domain.TokenValidation, error) {
	if strings.TrimSpace(value) == "" {
		return domain.TokenValidation{}, nil
	}

	token, err := s.getToken(ctx, value)
	if err != nil {
		return domain.TokenValidation{}, err
	}
	if token == nil {
		return domain.TokenValidation{}, nil
	}

	valid := s.isTokenValid(token)
	if valid {
		s.metrics.RecordAuthOutcome("validation_pass")
	} else {
		s.metrics.RecordAuthOutcome("validation_fail")
	}

	return domain.TokenValidation{
		Valid:   valid,
		Subject: token.OwnerEmail,
		Roles:   []domain.Role{token.OwnerRole},
	}, nil
}

// Logout revokes a single token. Logging out an unknown or already revoked
// token is not an error; the second call is a no-op.
func (s *SessionService) Logout(ctx context.Context, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewInvalidRequest("token required", nil)
	}

	token, err := s.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("token not found when logout")
			return nil
		}
		return apperrors.NewStorageUnavailable(err)
	}

	if err := s.tokens.Revoke(ctx, value); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if err := s.cache.Evict(ctx, value); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}

	s.logger.Info("token revoked", zap.String("owner_id", token.OwnerID), zap.String("kind", string(token.Kind)))
	s.metrics.RecordAuthOutcome("revoked")
	s.publish(ctx, events.EventTokensRevoked, token.OwnerID, events.TokensRevokedPayload{Count: 1, Reason: "logout"})
	return nil
}

// RevokeAll transitions every active token for ownerID to INACTIVE. Exposed
// for account deactivation and deletion flows; a no-op when nothing is
// active.
func (s *SessionService) RevokeAll(ctx context.Context, ownerID string) error {
	revoked, err := s.tokens.RevokeAll(ctx, ownerID)
	if err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	if err := s.cache.Evict(ctx, revoked...); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}

	if len(revoked) > 0 {
		s.metrics.RecordAuthOutcome("revoked")
		s.publish(ctx, events.EventTokensRevoked, ownerID, events.TokensRevokedPayload{Count: len(revoked), Reason: "revoke_all"})
	}
	return nil
}

// ActiveTokens lists the live generation for an owner, for audit endpoints.
func (s *SessionService) ActiveTokens(ctx context.Context, ownerID string) ([]domain.Token, error) {
	tokens, err := s.tokens.FindActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return tokens, nil
}

// issueTokens signs the new generation, swaps it into the ledger atomically
// and evicts the superseded values. The mutating call is complete only once
// eviction succeeded; an eviction failure surfaces as STORAGE_UNAVAILABLE
// rather than leaving a stale ACTIVE entry in the fast path.
func (s *SessionService) issueTokens(ctx context.Context, user *domain.User, keepRefreshValue string) (*domain.TokenPair, error) {
	now := time.Now()

	accessValue, accessExp, err := s.signer.Issue(user.Email, s.accessTTL, user.Role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	newTokens := []*domain.Token{{
		Value:     accessValue,
		Kind:      domain.TokenKindAccess,
		Status:    domain.TokenStatusActive,
		OwnerID:   user.ID,
		IssuedAt:  now,
		ExpiresAt: accessExp,
	}}

	refreshValue := keepRefreshValue
	if refreshValue == "" {
		var refreshExp time.Time
		refreshValue, refreshExp, err = s.signer.Issue(user.Email, s.refreshTTL, user.Role)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		newTokens = append(newTokens, &domain.Token{
			Value:     refreshValue,
			Kind:      domain.TokenKindRefresh,
			Status:    domain.TokenStatusActive,
			OwnerID:   user.ID,
			IssuedAt:  now,
			ExpiresAt: refreshExp,
		})
	}

	revoked, err := s.tokens.ReplaceActive(ctx, user.ID, keepRefreshValue, newTokens)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	if err := s.cache.Evict(ctx, revoked...); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	return &domain.TokenPair{
		AccessToken:  accessValue,
		RefreshToken: refreshValue,
		ExpiresAt:    accessExp,
	}, nil
}

// getToken is the cache-aside lookup. A cache read failure falls back to the
// ledger, which stays authoritative; only a ledger failure aborts.
func (s *SessionService) getToken(ctx context.Context, value string) (*domain.Token, error) {
	cached, err := s.cache.Get(ctx, value)
	if err != nil {
		s.logger.Warn("token cache read failed", zap.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	token, err := s.tokens.FindByValue(ctx, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}

	if err := s.cache.Put(ctx, token); err != nil {
		s.logger.Warn("token cache write failed", zap.Error(err))
	}
	return token, nil
}

func (s *SessionService) isTokenValid(token *domain.Token) bool {
	if token.Status != domain.TokenStatusActive {
		return false
	}
	_, err := s.signer.Verify(token.Value, token.OwnerEmail)
	return err == nil
}

func (s *SessionService) recordAttempt(ctx context.Context, user *domain.User, email string, meta domain.RequestMeta, successful bool, reason string) {
	if s.attempts == nil {
		return
	}
	if err := s.attempts.Record(ctx, user, email, meta, successful, reason); err != nil {
		s.logger.Warn("failed to record login attempt", zap.Error(err), zap.String("email", email))
	}
}

func (s *SessionService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func ownerOf(token *domain.Token) *domain.User {
	return &domain.User{
		ID:     token.OwnerID,
		Email:  token.OwnerEmail,
		Role:   token.OwnerRole,
		Status: domain.UserStatusActive,
	}
}
