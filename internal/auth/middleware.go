package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/note-service/internal/domain"
	apperrors "github.com/spec-kit/note-service/pkg/util"
)

const principalKey = "auth_principal"

// SessionCookieName is the cookie carrying the signed session handle.
const SessionCookieName = "note_session"

// CredentialSource records which credential authenticated the caller.
type CredentialSource string

const (
	SourceSession CredentialSource = "session"
	SourceToken   CredentialSource = "token"
)

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Source CredentialSource
}

// CredentialValidator validates a presented bearer credential and returns
// the owning identity. Implemented by the token service.
type CredentialValidator interface {
	Validate(ctx context.Context, credential string) (*domain.User, error)
}

// AccessGuard rejects unauthenticated calls before a protected operation
// runs. Session credentials are attempted first, bearer credentials second;
// the first successful resolution wins.
type AccessGuard struct {
	sessions *SessionResolver
	tokens   CredentialValidator
}

// NewAccessGuard constructs the guard.
func NewAccessGuard(sessions *SessionResolver, tokens CredentialValidator) *AccessGuard {
	return &AccessGuard{sessions: sessions, tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (g *AccessGuard) Handle(c *fiber.Ctx) error {
	var lastErr error

	if handle := c.Cookies(SessionCookieName); handle != "" {
		user, err := g.sessions.Resolve(c.UserContext(), handle)
		if err == nil {
			c.Locals(principalKey, &Principal{User: user, Source: SourceSession})
			return c.Next()
		}
		lastErr = err
	}

	if credential := bearerCredential(c); credential != "" {
		user, err := g.tokens.Validate(c.UserContext(), credential)
		if err == nil {
			c.Locals(principalKey, &Principal{User: user, Source: SourceToken})
			return c.Next()
		}
		lastErr = err
	}

	if lastErr != nil {
		return lastErr
	}
	return apperrors.NewUnauthorized("missing credentials")
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequireUser returns the authenticated user or an unauthorized error.
// Routes behind the guard always have a principal; this covers misuse.
func RequireUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("missing credentials")
	}
	return principal.User, nil
}

func bearerCredential(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
