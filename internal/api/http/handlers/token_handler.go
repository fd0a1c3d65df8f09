package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/service"
)

// TokenHandler exposes refresh, validation and revocation endpoints.
type TokenHandler struct {
	sessions *service.SessionService
}

// NewTokenHandler constructs handler.
func NewTokenHandler(sessions *service.SessionService) *TokenHandler {
	return &TokenHandler{sessions: sessions}
}

// Refresh handles POST /token/refresh.
func (h *TokenHandler) Refresh(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	pair, err := h.sessions.Refresh(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTokenPairResponse(pair)})
}

// Validate handles POST /token/validate. The response carries the verdict
// either way; an unknown token is a 200 with valid=false, not an error.
func (h *TokenHandler) Validate(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	verdict, err := h.sessions.Validate(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ValidationResponse{
		Valid:   verdict.Valid,
		Subject: verdict.Subject,
		Roles:   verdict.Roles,
	}})
}

// Disable handles POST /token/disable. Same semantics as logout: unknown
// tokens are treated as already disabled.
func (h *TokenHandler) Disable(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	if err := h.sessions.Logout(c.UserContext(), req.Token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}
