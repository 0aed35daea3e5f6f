package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/note-service/internal/domain"
	apperrors "github.com/spec-kit/note-service/pkg/util"
)

// uniqueViolation is the Postgres error code raised by the identifier's
// unique constraint, the single authority against duplicate identifiers.
const uniqueViolation = "23505"

// TokenRepository defines persistence access for access tokens. No business
// rules live here.
type TokenRepository interface {
	// Save persists a new token record; returns a conflict error when the
	// identifier collides with an existing record.
	Save(ctx context.Context, token *domain.AccessToken) error
	// FindByIdentifier returns the record or pgx.ErrNoRows.
	FindByIdentifier(ctx context.Context, identifier string) (*domain.AccessToken, error)
	// ListByOwner returns the owner's tokens ordered by creation time ascending.
	ListByOwner(ctx context.Context, username string) ([]*domain.AccessToken, error)
	// Delete removes the record or returns pgx.ErrNoRows.
	Delete(ctx context.Context, identifier string) error
	// TouchLastUsed records a successful validation. Best-effort; callers may
	// ignore the error.
	TouchLastUsed(ctx context.Context, identifier string, at time.Time) error
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a Postgres-backed implementation.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Save(ctx context.Context, token *domain.AccessToken) error {
	const query = `
        INSERT INTO auth_tokens (key_id, username, secret_hash, label, created_at, valid_until)
        VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		token.Identifier,
		token.OwnerUsername,
		token.SecretHash,
		token.Label,
		token.CreatedAt,
		token.ValidUntil,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewConflict("token identifier already exists", nil)
		}
		return err
	}
	return nil
}

func (r *tokenRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.AccessToken, error) {
	const query = `
        SELECT key_id, username, secret_hash, label, created_at, valid_until, last_used_at
        FROM auth_tokens WHERE key_id=$1`

	var token domain.AccessToken
	if err := r.pool.QueryRow(ctx, query, identifier).Scan(
		&token.Identifier,
		&token.OwnerUsername,
		&token.SecretHash,
		&token.Label,
		&token.CreatedAt,
		&token.ValidUntil,
		&token.LastUsedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) ListByOwner(ctx context.Context, username string) ([]*domain.AccessToken, error) {
	const query = `
        SELECT key_id, username, secret_hash, label, created_at, valid_until, last_used_at
        FROM auth_tokens WHERE username=$1
        ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.AccessToken
	for rows.Next() {
		var token domain.AccessToken
		if err := rows.Scan(
			&token.Identifier,
			&token.OwnerUsername,
			&token.SecretHash,
			&token.Label,
			&token.CreatedAt,
			&token.ValidUntil,
			&token.LastUsedAt,
		); err != nil {
			return nil, err
		}
		tokens = append(tokens, &token)
	}
	return tokens, rows.Err()
}

func (r *tokenRepository) Delete(ctx context.Context, identifier string) error {
	const query = `DELETE FROM auth_tokens WHERE key_id=$1`

	cmd, err := r.pool.Exec(ctx, query, identifier)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *tokenRepository) TouchLastUsed(ctx context.Context, identifier string, at time.Time) error {
	const query = `UPDATE auth_tokens SET last_used_at=$1 WHERE key_id=$2`

	_, err := r.pool.Exec(ctx, query, at, identifier)
	return err
}
