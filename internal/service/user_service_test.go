package service_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

func newUserFixture(t *testing.T) (*sessionFixture, *service.UserService) {
	t.Helper()

	f := newSessionFixture(t, nil)
	cfg := config.Config{
		Auth: config.AuthConfig{
			BcryptCost:         4,
			OAuth2RedirectPath: "/oauth2/redirect",
		},
	}
	users := service.NewUserService(cfg, f.users, f.sessions, f.dispatcher, zap.NewNop())
	return f, users
}

func TestUserService_Register(t *testing.T) {
	_, users := newUserFixture(t)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice@example.com", "password123", "Alice", "Doe")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "password123"))

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Register(ctx, "alice@example.com", "other-password", "Alice", "Doe")
		assert.True(t, apperrors.IsCode(err, "CONFLICT"))
	})

	t.Run("blank input", func(t *testing.T) {
		_, err := users.Register(ctx, "", "password123", "", "")
		assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))
	})
}

func TestUserService_Update(t *testing.T) {
	_, users := newUserFixture(t)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice@example.com", "password123", "Alice", "Doe")
	require.NoError(t, err)

	newFirst := "Alicia"
	updated, err := users.Update(ctx, user.ID, &newFirst, nil)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName, "nil field left untouched")

	_, err = users.Update(ctx, "ghost", &newFirst, nil)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestUserService_Deactivate_RevokesSessions(t *testing.T) {
	f, users := newUserFixture(t)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice@example.com", "password123", "Alice", "Doe")
	require.NoError(t, err)
	pair, err := f.sessions.Authenticate(ctx, "alice@example.com", "password123", testMeta)
	require.NoError(t, err)

	require.NoError(t, users.Deactivate(ctx, user.ID))

	assert.False(t, f.mustValidate(t, pair.AccessToken).Valid)
	got, err := users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusInactive, got.Status)
}

func TestUserService_Delete_RevokesBeforeRemoval(t *testing.T) {
	f, users := newUserFixture(t)
	ctx := context.Background()

	user, err := users.Register(ctx, "alice@example.com", "password123", "Alice", "Doe")
	require.NoError(t, err)
	pair, err := f.sessions.Authenticate(ctx, "alice@example.com", "password123", testMeta)
	require.NoError(t, err)
	assert.True(t, f.mustValidate(t, pair.AccessToken).Valid)

	require.NoError(t, users.Delete(ctx, user.ID))

	_, err = users.GetByID(ctx, user.ID)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	assert.False(t, f.cache.has(pair.AccessToken), "cache entries evicted before the owner row goes")

	t.Run("deleting again", func(t *testing.T) {
		err := users.Delete(ctx, user.ID)
		assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
	})
}

func TestUserService_CompleteExternalLogin(t *testing.T) {
	f, users := newUserFixture(t)
	ctx := context.Background()

	pair, redirect, err := users.CompleteExternalLogin(ctx, "alice@example.com", "Alice", "Doe")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	require.True(t, strings.HasPrefix(redirect, "/oauth2/redirect?"))
	query, err := url.ParseQuery(strings.TrimPrefix(redirect, "/oauth2/redirect?"))
	require.NoError(t, err)
	assert.Equal(t, pair.AccessToken, query.Get("access_token"))
	assert.Equal(t, pair.RefreshToken, query.Get("refresh_token"))

	// Provisioned on first sight with password login closed.
	user, err := f.users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	_, err = f.sessions.Authenticate(ctx, "alice@example.com", "password123", testMeta)
	assert.True(t, apperrors.IsCode(err, "AUTH_FAILURE"))

	t.Run("returning identity supersedes the previous session", func(t *testing.T) {
		again, _, err := users.CompleteExternalLogin(ctx, "alice@example.com", "Alice", "Doe")
		require.NoError(t, err)
		assert.False(t, f.mustValidate(t, pair.AccessToken).Valid)
		assert.True(t, f.mustValidate(t, again.AccessToken).Valid)
	})

	t.Run("blank email", func(t *testing.T) {
		_, _, err := users.CompleteExternalLogin(ctx, "", "", "")
		assert.True(t, apperrors.IsCode(err, "INVALID_REQUEST"))
	})
}
