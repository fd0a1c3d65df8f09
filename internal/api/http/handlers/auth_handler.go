package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
)

// AuthHandler exposes credential exchange and session endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	users    *service.UserService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService, users *service.UserService) *AuthHandler {
	return &AuthHandler{sessions: sessions, users: users}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.Register(c.UserContext(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.NewUserResponse(user),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	pair, err := h.sessions.Authenticate(c.UserContext(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.NewTokenPairResponse(pair)})
}

// Logout handles POST /auth/logout. The token comes from the Authorization
// header; logging out an unknown or already revoked token succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	value, err := auth.BearerToken(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Logout(c.UserContext(), value); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// CompleteExternalLogin handles POST /auth/oauth2/complete, called by the
// gateway that performed the code exchange.
func (h *AuthHandler) CompleteExternalLogin(c *fiber.Ctx) error {
	var req dto.ExternalLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	pair, redirectURL, err := h.users.CompleteExternalLogin(c.UserContext(), req.Email, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.ExternalLoginResponse{
		Auth:        dto.NewTokenPairResponse(pair),
		RedirectURL: redirectURL,
	}})
}

func requestMeta(c *fiber.Ctx) domain.RequestMeta {
	return domain.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}
