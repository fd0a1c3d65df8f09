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

var userColumns = []string{
	"id", "email", "first_name", "last_name", "password_hash", "role", "status", "created_at", "updated_at",
}

func userRow(email string) []any {
	now := time.Now()
	return []any{
		"user-1", email, "Alice", "Doe", "$2a$10$hash",
		domain.RoleUser, domain.UserStatusActive, now, now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewUserRepository(mock)
	now := time.Now()

	user := &domain.User{
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Doe",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
	}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(user.Email, user.FirstName, user.LastName, user.PasswordHash, user.Role, user.Status).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("user-1", now, now))

	require.NoError(t, r.Create(context.Background(), user))
	assert.Equal(t, "user-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewUserRepository(mock)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE email=").
			WithArgs("alice@example.com").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(userRow("alice@example.com")...))

		user, err := r.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, domain.RoleUser, user.Role)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE email=").
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := r.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update_MissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewUserRepository(mock)

	user := &domain.User{
		ID:           "ghost",
		Email:        "ghost@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         domain.RoleUser,
		Status:       domain.UserStatusActive,
	}

	mock.ExpectExec("UPDATE users SET").
		WithArgs(user.Email, user.FirstName, user.LastName, user.PasswordHash, user.Role, user.Status, user.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, r.Update(context.Background(), user), pgx.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewUserRepository(mock)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").
			WithArgs("user-1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, r.Delete(ctx, "user-1"))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM users").
			WithArgs("ghost").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, r.Delete(ctx, "ghost"), pgx.ErrNoRows)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repository.NewUserRepository(mock)

	mock.ExpectQuery("FROM users ORDER BY created_at").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(userRow("alice@example.com")...).
			AddRow(userRow("bob@example.com")...))

	users, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob@example.com", users[1].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}
