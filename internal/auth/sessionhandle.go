package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SessionHandleCodec signs and parses the opaque handles clients present for
// an authenticated session. A handle wraps the session store key; the store
// record's TTL is the lifetime authority, so handles carry no expiry of
// their own.
type SessionHandleCodec struct {
	secret []byte
}

// NewSessionHandleCodec builds a codec signing with the given secret.
func NewSessionHandleCodec(secret string) *SessionHandleCodec {
	return &SessionHandleCodec{secret: []byte(secret)}
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Encode produces a signed handle for the given session ID.
func (c *SessionHandleCodec) Encode(sessionID string) (string, error) {
	claims := &sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies a presented handle and returns the session ID it wraps.
// Malformed or badly signed handles fail exactly like unknown sessions.
func (c *SessionHandleCodec) Decode(handle string) (string, error) {
	parsed, err := jwt.ParseWithClaims(handle, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return "", errors.New("invalid session handle")
	}
	return claims.SessionID, nil
}
