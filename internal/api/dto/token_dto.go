package dto

import (
	"time"

	"github.com/spec-kit/note-service/internal/domain"
)

// TokenCreateRequest payload for issuing a token.
type TokenCreateRequest struct {
	Label      string     `json:"label"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// TokenResponse is the externally observable projection of a token. It
// never carries the secret or its hash.
type TokenResponse struct {
	Identifier string     `json:"identifier"`
	Label      string     `json:"label"`
	CreatedAt  time.Time  `json:"created_at"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// TokenCreatedResponse extends TokenResponse with the one-time-visible
// bearer credential.
type TokenCreatedResponse struct {
	TokenResponse
	Secret string `json:"secret"`
}

// NewTokenResponse projects a domain token for display.
func NewTokenResponse(token *domain.AccessToken) TokenResponse {
	return TokenResponse{
		Identifier: token.Identifier,
		Label:      token.Label,
		CreatedAt:  token.CreatedAt,
		ValidUntil: token.ValidUntil,
		LastUsedAt: token.LastUsedAt,
	}
}
