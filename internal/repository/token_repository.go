package repository

import (
	"context"
	"fmt"

	"github.com/spec-kit/identity-service/internal/domain"
)

// TokenRepository is the append-only ledger of issued tokens and the source
// of revocation truth. Only status mutates, ACTIVE -> INACTIVE; the UPDATE
// predicates enforce the one-way transition.
type TokenRepository interface {
	Save(ctx context.Context, token *domain.Token) error
	FindByValue(ctx context.Context, value string) (*domain.Token, error)
	FindByValueAndKind(ctx context.Context, value string, kind domain.TokenKind) (*domain.Token, error)
	FindActiveByOwner(ctx context.Context, ownerID string) ([]domain.Token, error)
	Revoke(ctx context.Context, value string) error
	RevokeAll(ctx context.Context, ownerID string) ([]string, error)
	ReplaceActive(ctx context.Context, ownerID, keepValue string, newTokens []*domain.Token) ([]string, error)
}

type tokenRepository struct {
	db DB
}

// NewTokenRepository instantiates the ledger over Postgres.
func NewTokenRepository(db DB) TokenRepository {
	return &tokenRepository{db: db}
}

const tokenColumns = `
        t.id, t.value, t.kind, t.status, t.owner_id, u.email, u.role,
        t.issued_at, t.expires_at, t.created_at, t.updated_at`

const insertTokenSQL = `
        INSERT INTO tokens (value, kind, status, owner_id, issued_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

func (r *tokenRepository) Save(ctx context.Context, token *domain.Token) error {
	return r.db.QueryRow(ctx, insertTokenSQL,
		token.Value,
		token.Kind,
		token.Status,
		token.OwnerID,
		token.IssuedAt,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt)
}

func (r *tokenRepository) FindByValue(ctx context.Context, value string) (*domain.Token, error) {
	query := `
        SELECT ` + tokenColumns + `
        FROM tokens t JOIN users u ON u.id = t.owner_id
        WHERE t.value=$1`
	return r.fetchSingle(ctx, query, value)
}

func (r *tokenRepository) FindByValueAndKind(ctx context.Context, value string, kind domain.TokenKind) (*domain.Token, error) {
	query := `
        SELECT ` + tokenColumns + `
        FROM tokens t JOIN users u ON u.id = t.owner_id
        WHERE t.value=$1 AND t.kind=$2`
	return r.fetchSingle(ctx, query, value, kind)
}

func (r *tokenRepository) FindActiveByOwner(ctx context.Context, ownerID string) ([]domain.Token, error) {
	query := `
        SELECT ` + tokenColumns + `
        FROM tokens t JOIN users u ON u.id = t.owner_id
        WHERE t.owner_id=$1 AND t.status='ACTIVE'
        ORDER BY t.created_at`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		var token domain.Token
		if err := scanToken(rows, &token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// Revoke transitions a single token to INACTIVE. Revoking an already
// inactive or unknown value is a no-op.
func (r *tokenRepository) Revoke(ctx context.Context, value string) error {
	const query = `
        UPDATE tokens SET status='INACTIVE', updated_at=NOW()
        WHERE value=$1 AND status='ACTIVE'`
	_, err := r.db.Exec(ctx, query, value)
	return err
}

// RevokeAll transitions every ACTIVE token for ownerID to INACTIVE and
// returns the revoked values so callers can evict cache entries. The owner
// row is locked first so the operation serializes against concurrent
// ReplaceActive calls for the same owner.
func (r *tokenRepository) RevokeAll(ctx context.Context, ownerID string) ([]string, error) {
	return r.replaceActiveTx(ctx, ownerID, "", nil)
}

// ReplaceActive atomically revokes every ACTIVE token for ownerID except
// keepValue and inserts newTokens, all in one transaction. Two concurrent
// calls for the same owner cannot interleave: whichever commits second sees
// the first call's tokens and revokes them, so exactly one generation stays
// ACTIVE.
func (r *tokenRepository) ReplaceActive(ctx context.Context, ownerID, keepValue string, newTokens []*domain.Token) ([]string, error) {
	return r.replaceActiveTx(ctx, ownerID, keepValue, newTokens)
}

func (r *tokenRepository) replaceActiveTx(ctx context.Context, ownerID, keepValue string, newTokens []*domain.Token) ([]string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Per-owner serialization point.
	if _, err := tx.Exec(ctx, `SELECT id FROM users WHERE id=$1 FOR UPDATE`, ownerID); err != nil {
		return nil, fmt.Errorf("lock owner %s: %w", ownerID, err)
	}

	rows, err := tx.Query(ctx, `
        UPDATE tokens SET status='INACTIVE', updated_at=NOW()
        WHERE owner_id=$1 AND status='ACTIVE' AND value <> $2
        RETURNING value`, ownerID, keepValue)
	if err != nil {
		return nil, err
	}

	var revoked []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			rows.Close()
			return nil, err
		}
		revoked = append(revoked, value)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, token := range newTokens {
		if err := tx.QueryRow(ctx, insertTokenSQL,
			token.Value,
			token.Kind,
			token.Status,
			token.OwnerID,
			token.IssuedAt,
			token.ExpiresAt,
		).Scan(&token.ID, &token.CreatedAt, &token.UpdatedAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return revoked, nil
}

func (r *tokenRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Token, error) {
	var token domain.Token
	if err := scanToken(r.db.QueryRow(ctx, query, args...), &token); err != nil {
		return nil, err
	}
	return &token, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner, token *domain.Token) error {
	return row.Scan(
		&token.ID,
		&token.Value,
		&token.Kind,
		&token.Status,
		&token.OwnerID,
		&token.OwnerEmail,
		&token.OwnerRole,
		&token.IssuedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
}
