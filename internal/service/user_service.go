package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/repository"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// UserService coordinates account management around the token lifecycle.
type UserService struct {
	users      repository.UserRepository
	sessions   *SessionService
	dispatcher events.Dispatcher
	logger     *zap.Logger

	bcryptCost   int
	redirectPath string
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, users repository.UserRepository, sessions *SessionService, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	return &UserService{
		users:        users,
		sessions:     sessions,
		dispatcher:   dispatcher,
		logger:       logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		redirectPath: cfg.Auth.OAuth2RedirectPath,
	}
}

// Register creates a new account with the default USER role.
func (s *UserService) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, apperrors.NewInvalidRequest("email and password required", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}

	s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{Email: user.Email, Role: user.Role})
	return user, nil
}

// GetByID fetches one account.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return user, nil
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return users, nil
}

// Update changes the mutable profile fields.
func (s *UserService) Update(ctx context.Context, id string, firstName, lastName *string) (*domain.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if firstName != nil {
		user.FirstName = *firstName
	}
	if lastName != nil {
		user.LastName = *lastName
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	return user, nil
}

// Deactivate flips the account INACTIVE and revokes its sessions.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.Status = domain.UserStatusInactive
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	return s.sessions.RevokeAll(ctx, id)
}

// Delete revokes every outstanding token, then removes the account. Ledger
// rows disappear with the owner via cascade, so revocation and cache
// eviction must run first.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return apperrors.NewStorageUnavailable(err)
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

// CompleteExternalLogin finishes an OAuth2 login whose code exchange
// happened upstream: the account is provisioned on first sight, a fresh
// session supersedes any previous one, and the redirect URL carrying the
// pair is returned for the gateway to send the browser to.
func (s *UserService) CompleteExternalLogin(ctx context.Context, email, firstName, lastName string) (*domain.TokenPair, string, error) {
	if strings.TrimSpace(email) == "" {
		return nil, "", apperrors.NewInvalidRequest("email required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewStorageUnavailable(err)
		}
		// External identities have no local password; an unguessable hash
		// keeps password login closed for them.
		hash, hashErr := auth.HashPassword(uuid.NewString(), s.bcryptCost)
		if hashErr != nil {
			return nil, "", apperrors.NewInternalError(hashErr)
		}
		user = &domain.User{
			Email:        email,
			FirstName:    firstName,
			LastName:     lastName,
			PasswordHash: hash,
			Role:         domain.RoleUser,
			Status:       domain.UserStatusActive,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, "", apperrors.NewStorageUnavailable(err)
		}
		s.publish(ctx, events.EventUserRegistered, user.ID, events.UserRegisteredPayload{Email: user.Email, Role: user.Role})
	}

	pair, err := s.sessions.CreateSession(ctx, user)
	if err != nil {
		return nil, "", err
	}

	query := url.Values{}
	query.Set("access_token", pair.AccessToken)
	query.Set("refresh_token", pair.RefreshToken)
	redirectURL := s.redirectPath + "?" + query.Encode()

	return pair, redirectURL, nil
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, userID string, payload interface{}) {
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
