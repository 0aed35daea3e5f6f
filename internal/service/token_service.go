package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/note-service/internal/auth"
	"github.com/spec-kit/note-service/internal/domain"
	"github.com/spec-kit/note-service/internal/events"
	"github.com/spec-kit/note-service/internal/repository"
	apperrors "github.com/spec-kit/note-service/pkg/util"
)

// issueAttempts bounds retries when a freshly generated identifier collides
// with an existing record. The repository's unique constraint is the
// collision authority; a conflict after all retries is an internal failure.
const issueAttempts = 3

// TokenService orchestrates issuance, validation, expiry and ownership
// checks for API access tokens.
type TokenService struct {
	tokens     repository.TokenRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	bcryptCost int
}

// TokenDependencies encapsulates the collaborators of the token service.
type TokenDependencies struct {
	TokenRepo  repository.TokenRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewTokenService builds the service.
func NewTokenService(deps TokenDependencies, bcryptCost int) *TokenService {
	return &TokenService{
		tokens:     deps.TokenRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: bcryptCost,
	}
}

// Issue creates a token for the owner and returns the record together with
// the one-time-visible raw secret. This is the only moment the raw secret
// is ever observable outside the caller's memory.
func (s *TokenService) Issue(ctx context.Context, owner, label string, validUntil *time.Time) (*domain.AccessToken, string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, "", apperrors.NewValidationError("label must not be empty", nil)
	}
	if validUntil != nil && !validUntil.After(time.Now()) {
		return nil, "", apperrors.NewValidationError("valid_until must be in the future", nil)
	}

	var lastErr error
	for attempt := 0; attempt < issueAttempts; attempt++ {
		rawSecret, identifier, err := auth.GenerateSecret()
		if err != nil {
			return nil, "", err
		}
		secretHash, err := auth.HashSecret(rawSecret, s.bcryptCost)
		if err != nil {
			return nil, "", err
		}

		token := &domain.AccessToken{
			Identifier:    identifier,
			SecretHash:    secretHash,
			OwnerUsername: owner,
			Label:         label,
			CreatedAt:     time.Now().UTC(),
			ValidUntil:    validUntil,
		}
		if err := s.tokens.Save(ctx, token); err != nil {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" {
				lastErr = err
				continue
			}
			return nil, "", err
		}

		s.publish(ctx, events.EventTokenIssued, owner, events.TokenIssuedPayload{
			Identifier: identifier,
			Label:      label,
			ValidUntil: validUntil,
		})
		return token, rawSecret, nil
	}
	return nil, "", apperrors.NewInternalError(lastErr)
}

// Validate checks a presented bearer credential and returns the owner
// identity. Unknown identifiers and wrong secrets produce the identical
// unauthorized outcome so callers cannot enumerate identifiers.
func (s *TokenService) Validate(ctx context.Context, credential string) (*domain.User, error) {
	identifier, rawSecret, ok := auth.SplitCredential(credential)
	if !ok {
		return nil, apperrors.NewUnauthorized("invalid credential")
	}

	token, err := s.tokens.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credential")
		}
		return nil, err
	}

	if token.Expired(time.Now()) {
		return nil, apperrors.NewExpiredToken()
	}

	if !auth.VerifySecret(rawSecret, token.SecretHash) {
		return nil, apperrors.NewUnauthorized("invalid credential")
	}

	// Best-effort; a dropped touch never fails authentication.
	_ = s.tokens.TouchLastUsed(ctx, identifier, time.Now().UTC())

	user, err := s.users.GetByUsername(ctx, token.OwnerUsername)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credential")
		}
		return nil, err
	}
	return user, nil
}

// ListForOwner returns the owner's tokens, oldest first.
func (s *TokenService) ListForOwner(ctx context.Context, owner string) ([]*domain.AccessToken, error) {
	return s.tokens.ListByOwner(ctx, owner)
}

// Revoke deletes one of the owner's tokens. A token owned by someone else
// is reported as forbidden, a missing one as not found; identifiers are
// public, so revealing existence here is acceptable.
func (s *TokenService) Revoke(ctx context.Context, owner, identifier string) error {
	token, err := s.tokens.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("token", map[string]any{"identifier": identifier})
		}
		return err
	}
	if token.OwnerUsername != owner {
		return apperrors.NewForbidden("token belongs to another user")
	}

	if err := s.tokens.Delete(ctx, identifier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("token", map[string]any{"identifier": identifier})
		}
		return err
	}

	s.publish(ctx, events.EventTokenRevoked, owner, events.TokenRevokedPayload{Identifier: identifier})
	return nil
}

func (s *TokenService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Username:  username,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
