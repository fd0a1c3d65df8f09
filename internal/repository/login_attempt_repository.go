package repository

import (
	"context"
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

// LoginAttemptRepository persists authentication attempts for anomaly
// counting.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.LoginAttempt) error
	CountFailedSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error)
}

type loginAttemptRepository struct {
	db DB
}

// NewLoginAttemptRepository constructs repository.
func NewLoginAttemptRepository(db DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *domain.LoginAttempt) error {
	const query = `
        INSERT INTO login_attempts (user_id, email, ip_address, user_agent, successful, failure_reason, attempted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`

	return r.db.QueryRow(ctx, query,
		attempt.UserID,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Successful,
		attempt.FailureReason,
		attempt.AttemptedAt,
	).Scan(&attempt.ID)
}

func (r *loginAttemptRepository) CountFailedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM login_attempts
        WHERE user_id=$1 AND successful=false AND attempted_at > $2`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *loginAttemptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	const query = `
        SELECT id, user_id, email, ip_address, user_agent, successful, failure_reason, attempted_at
        FROM login_attempts
        WHERE user_id=$1 ORDER BY attempted_at DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []domain.LoginAttempt
	for rows.Next() {
		var attempt domain.LoginAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&attempt.Email,
			&attempt.IPAddress,
			&attempt.UserAgent,
			&attempt.Successful,
			&attempt.FailureReason,
			&attempt.AttemptedAt,
		); err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}
