package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/repository"
)

var tokenColumns = []string{
	"id", "value", "kind", "status", "owner_id", "email", "role",
	"issued_at", "expires_at", "created_at", "updated_at",
}

func tokenRow(value string, status domain.TokenStatus) []any {
	now := time.Now()
	return []any{
		"token-1", value, domain.TokenKindAccess, status, "user-1",
		"alice@example.com", domain.RoleUser, now, now.Add(time.Hour), now, now,
	}
}

func TestTokenRepository_FindByValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("FROM tokens t JOIN users u").
			WithArgs("jwt-value").
			WillReturnRows(pgxmock.NewRows(tokenColumns).AddRow(tokenRow("jwt-value", domain.TokenStatusActive)...))

		token, err := r.FindByValue(ctx, "jwt-value")
		require.NoError(t, err)
		assert.Equal(t, "jwt-value", token.Value)
		assert.Equal(t, domain.TokenStatusActive, token.Status)
		assert.Equal(t, "alice@example.com", token.OwnerEmail)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM tokens t JOIN users u").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := r.FindByValue(ctx, "missing")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_FindByValueAndKind(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)

	mock.ExpectQuery("FROM tokens t JOIN users u").
		WithArgs("jwt-value", domain.TokenKindRefresh).
		WillReturnRows(pgxmock.NewRows(tokenColumns).AddRow(tokenRow("jwt-value", domain.TokenStatusActive)...))

	token, err := r.FindByValueAndKind(context.Background(), "jwt-value", domain.TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, "jwt-value", token.Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_FindActiveByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)

	mock.ExpectQuery("FROM tokens t JOIN users u").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(tokenColumns).
			AddRow(tokenRow("access-value", domain.TokenStatusActive)...).
			AddRow(tokenRow("refresh-value", domain.TokenStatusActive)...))

	tokens, err := r.FindActiveByOwner(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "access-value", tokens[0].Value)
	assert.Equal(t, "refresh-value", tokens[1].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)
	now := time.Now()

	token := &domain.Token{
		Value:     "jwt-value",
		Kind:      domain.TokenKindAccess,
		Status:    domain.TokenStatusActive,
		OwnerID:   "user-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	mock.ExpectQuery("INSERT INTO tokens").
		WithArgs(token.Value, token.Kind, token.Status, token.OwnerID, token.IssuedAt, token.ExpiresAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("token-1", now, now))

	require.NoError(t, r.Save(context.Background(), token))
	assert.Equal(t, "token-1", token.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)

	t.Run("active token revoked", func(t *testing.T) {
		mock.ExpectExec("UPDATE tokens SET status='INACTIVE'").
			WithArgs("jwt-value").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, r.Revoke(context.Background(), "jwt-value"))
	})

	t.Run("already inactive is a no-op", func(t *testing.T) {
		mock.ExpectExec("UPDATE tokens SET status='INACTIVE'").
			WithArgs("jwt-value").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.NoError(t, r.Revoke(context.Background(), "jwt-value"))
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_ReplaceActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)
	now := time.Now()

	newTokens := []*domain.Token{
		{Value: "new-access", Kind: domain.TokenKindAccess, Status: domain.TokenStatusActive, OwnerID: "user-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Value: "new-refresh", Kind: domain.TokenKindRefresh, Status: domain.TokenStatusActive, OwnerID: "user-1", IssuedAt: now, ExpiresAt: now.Add(24 * time.Hour)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT id FROM users").
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("UPDATE tokens SET status='INACTIVE'").
		WithArgs("user-1", "").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("old-access").AddRow("old-refresh"))
	mock.ExpectQuery("INSERT INTO tokens").
		WithArgs("new-access", domain.TokenKindAccess, domain.TokenStatusActive, "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("id-1", now, now))
	mock.ExpectQuery("INSERT INTO tokens").
		WithArgs("new-refresh", domain.TokenKindRefresh, domain.TokenStatusActive, "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("id-2", now, now))
	mock.ExpectCommit()
	mock.ExpectRollback()

	revoked, err := r.ReplaceActive(context.Background(), "user-1", "", newTokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-access", "old-refresh"}, revoked)
	assert.Equal(t, "id-1", newTokens[0].ID)
	assert.Equal(t, "id-2", newTokens[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_ReplaceActive_KeepsPresentedRefresh(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)
	now := time.Now()

	newTokens := []*domain.Token{
		{Value: "new-access", Kind: domain.TokenKindAccess, Status: domain.TokenStatusActive, OwnerID: "user-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
	}

	mock.ExpectBegin()
	mock.ExpectExec("SELECT id FROM users").
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("UPDATE tokens SET status='INACTIVE'").
		WithArgs("user-1", "kept-refresh").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("old-access"))
	mock.ExpectQuery("INSERT INTO tokens").
		WithArgs("new-access", domain.TokenKindAccess, domain.TokenStatusActive, "user-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("id-1", now, now))
	mock.ExpectCommit()
	mock.ExpectRollback()

	revoked, err := r.ReplaceActive(context.Background(), "user-1", "kept-refresh", newTokens)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-access"}, revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_RevokeAll_NoActiveTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewTokenRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT id FROM users").
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("UPDATE tokens SET status='INACTIVE'").
		WithArgs("user-1", "").
		WillReturnRows(pgxmock.NewRows([]string{"value"}))
	mock.ExpectCommit()
	mock.ExpectRollback()

	revoked, err := r.RevokeAll(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, revoked)
	require.NoError(t, mock.ExpectationsWereMet())
}
