package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/note-service/internal/domain"
	"github.com/spec-kit/note-service/internal/repository"
	apperrors "github.com/spec-kit/note-service/pkg/util"
)

// SessionResolver maps a presented session handle to the owning identity.
// Every session-guarded operation goes through Resolve.
type SessionResolver struct {
	codec    *SessionHandleCodec
	sessions repository.SessionRepository
	users    repository.UserRepository
	ttl      time.Duration
	sliding  bool
}

// NewSessionResolver builds a resolver. When sliding is true, each
// successful resolve re-arms the session TTL; otherwise Resolve is a pure
// read.
func NewSessionResolver(
	codec *SessionHandleCodec,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	ttl time.Duration,
	sliding bool,
) *SessionResolver {
	return &SessionResolver{
		codec:    codec,
		sessions: sessions,
		users:    users,
		ttl:      ttl,
		sliding:  sliding,
	}
}

// Resolve returns the identity behind the handle. Missing, malformed, and
// expired handles all fail with the same unauthorized outcome.
func (r *SessionResolver) Resolve(ctx context.Context, handle string) (*domain.User, error) {
	if handle == "" {
		return nil, apperrors.NewUnauthorized("missing session")
	}

	sessionID, err := r.codec.Decode(handle)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid session")
	}

	session, err := r.sessions.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NewUnauthorized("invalid session")
	}

	user, err := r.users.GetByUsername(ctx, session.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid session")
		}
		return nil, err
	}

	if r.sliding {
		// Best-effort; a dropped TTL refresh never fails resolution.
		_ = r.sessions.Touch(ctx, sessionID, r.ttl)
	}
	return user, nil
}
