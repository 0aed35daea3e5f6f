package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/note-service/internal/api/dto"
	"github.com/spec-kit/note-service/internal/auth"
	"github.com/spec-kit/note-service/internal/service"
)

// TokensHandler exposes token management endpoints, scoped to the caller's
// own identity resolved by the access guard.
type TokensHandler struct {
	tokens *service.TokenService
}

// NewTokensHandler constructs handler.
func NewTokensHandler(tokens *service.TokenService) *TokensHandler {
	return &TokensHandler{tokens: tokens}
}

// List handles GET /api/tokens.
func (h *TokensHandler) List(c *fiber.Ctx) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}

	tokens, err := h.tokens.ListForOwner(c.UserContext(), user.Username)
	if err != nil {
		return err
	}

	out := make([]dto.TokenResponse, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, dto.NewTokenResponse(token))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Create handles POST /api/tokens.
func (h *TokensHandler) Create(c *fiber.Ctx) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}

	var req dto.TokenCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	token, rawSecret, err := h.tokens.Issue(c.UserContext(), user.Username, req.Label, req.ValidUntil)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.TokenCreatedResponse{
			TokenResponse: dto.NewTokenResponse(token),
			Secret:        auth.EncodeCredential(token.Identifier, rawSecret),
		},
	})
}

// Delete handles DELETE /api/tokens/:identifier.
func (h *TokensHandler) Delete(c *fiber.Ctx) error {
	user, err := auth.RequireUser(c)
	if err != nil {
		return err
	}

	identifier := c.Params("identifier")
	if err := h.tokens.Revoke(c.UserContext(), user.Username, identifier); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
