package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/auth"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// UsersHandler exposes account management endpoints.
type UsersHandler struct {
	users    *service.UserService
	sessions *service.SessionService
	attempts *service.LoginAttemptService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, sessions *service.SessionService, attempts *service.LoginAttemptService) *UsersHandler {
	return &UsersHandler{users: users, sessions: sessions, attempts: attempts}
}

// List handles GET /users (admin only; enforced in the router).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /users/:id. Admins may read anyone; users only themselves.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.authorizeSelfOrAdmin(c, id); err != nil {
		return err
	}

	user, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.authorizeSelfOrAdmin(c, id); err != nil {
		return err
	}

	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.Update(c.UserContext(), id, req.FirstName, req.LastName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Delete handles DELETE /users/:id (admin only; enforced in the router).
// Every outstanding token for the account is revoked before removal.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// Activity handles GET /users/:id/activity. Reports the live session tokens
// (metadata only, never the values) and recent login attempts.
func (h *UsersHandler) Activity(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.authorizeSelfOrAdmin(c, id); err != nil {
		return err
	}

	tokens, err := h.sessions.ActiveTokens(c.UserContext(), id)
	if err != nil {
		return err
	}
	attempts, err := h.attempts.RecentByUser(c.UserContext(), id, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityResponse(tokens, attempts)})
}

// authorizeSelfOrAdmin lets admins through and matches everyone else against
// the target account's email.
func (h *UsersHandler) authorizeSelfOrAdmin(c *fiber.Ctx, id string) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.Role == domain.RoleAdmin {
		return nil
	}

	user, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if user.Email != principal.Subject {
		return apperrors.NewForbidden("not allowed for this account")
	}
	return nil
}
