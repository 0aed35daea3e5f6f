package service

import (
	"context"
	"errors"
	"regexp"
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

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,64}$`)

// AuthService coordinates local registration and session login/logout.
type AuthService struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	codec      *auth.SessionHandleCodec
	dispatcher events.Dispatcher
	bcryptCost int
	sessionTTL time.Duration
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Codec       *auth.SessionHandleCodec
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies, bcryptCost int, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.SessionRepo,
		codec:      deps.Codec,
		dispatcher: deps.Dispatcher,
		bcryptCost: bcryptCost,
		sessionTTL: sessionTTL,
	}
}

// Register creates a new local account.
func (s *AuthService) Register(ctx context.Context, username, displayName, password string) (*domain.User, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if !usernamePattern.MatchString(username) {
		return nil, apperrors.NewValidationError("invalid username", nil)
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewConflict("username already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the password and opens a session, returning the signed
// session handle. Unknown usernames and wrong passwords are reported
// identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	session := &domain.Session{
		ID:        uuid.NewString(),
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session, s.sessionTTL); err != nil {
		return nil, "", err
	}

	handle, err := s.codec.Encode(session.ID)
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, events.EventSessionOpened, user.Username, events.SessionOpenedPayload{SessionID: session.ID})
	return user, handle, nil
}

// Logout destroys the session behind the handle. Unknown or malformed
// handles are a no-op.
func (s *AuthService) Logout(ctx context.Context, handle string) error {
	sessionID, err := s.codec.Decode(handle)
	if err != nil {
		return nil
	}

	session, err := s.sessions.Lookup(ctx, sessionID)
	if err != nil || session == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.publish(ctx, events.EventSessionClosed, session.Username, events.SessionClosedPayload{SessionID: sessionID})
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
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
