package disputes

import (
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

type openRequest struct {
	Reason string `json:"reason"`
}

// Open POST /api/v1/orders/:id/dispute
func (h *Handlers) Open(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	dispute, err := h.Service.Open(c.Context(), p.UserID, orderID, req.Reason)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Dispute opened", dispute, nil)
}

// Resolve POST /api/v1/disputes/:id/resolve
func (h *Handlers) Resolve(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	disputeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid dispute id", fiber.StatusBadRequest, nil)
	}
	dispute, err := h.Service.Resolve(c.Context(), p.UserID, disputeID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Dispute resolved", dispute, nil)
}
