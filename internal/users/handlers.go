package users

import (
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// GetProfile GET /api/v1/users/:id returns the profile masked per requester role.
func (h *Handlers) GetProfile(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid user id", fiber.StatusBadRequest, nil)
	}
	profile, err := h.Service.GetProfile(c.Context(), p.UserID, targetID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Profile fetched", profile, nil)
}

type updateRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/role (admin)
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	user, err := h.Service.UpdateRole(c.Context(), p.UserID, targetID, req.Role)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Role updated", fiber.Map{
		"user_id": user.UserID,
		"role":    user.Role,
	}, nil)
}

// SetBanned returns a handler banning or unbanning the target user (admin).
// Used for POST /api/v1/users/:id/ban and /unban.
func (h *Handlers) SetBanned(banned bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := middleware.GetPrincipal(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		targetID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return response.Error(c, "Invalid user id", fiber.StatusBadRequest, nil)
		}
		user, err := h.Service.SetBanned(c.Context(), p.UserID, targetID, banned)
		if err != nil {
			return response.AppError(c, err)
		}
		return response.Success(c, "User updated", fiber.Map{
			"user_id": user.UserID,
			"banned":  user.Banned,
		}, nil)
	}
}
