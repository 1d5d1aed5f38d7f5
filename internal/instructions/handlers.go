package instructions

import (
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

type createRequest struct {
	TargetRole    string  `json:"target_role"`
	TargetUserID  string  `json:"target_user_id"`
	Message       string  `json:"message"`
	ContactHandle *string `json:"contact_handle"`
}

// Create POST /api/v1/orders/:id/instructions
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	targetUserID, err := uuid.Parse(req.TargetUserID)
	if err != nil {
		return response.Error(c, "target_user_id is required", fiber.StatusBadRequest, nil)
	}
	instruction, err := h.Service.Create(c.Context(), p.UserID, CreateInput{
		OrderID:       orderID,
		TargetRole:    req.TargetRole,
		TargetUserID:  targetUserID,
		Message:       req.Message,
		ContactHandle: req.ContactHandle,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Instruction sent", instruction, nil)
}

// Acknowledge POST /api/v1/instructions/:id/acknowledge
func (h *Handlers) Acknowledge(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	instructionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid instruction id", fiber.StatusBadRequest, nil)
	}
	instruction, err := h.Service.Acknowledge(c.Context(), p.UserID, instructionID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Instruction acknowledged", instruction, nil)
}

// ListForOrder GET /api/v1/orders/:id/instructions
func (h *Handlers) ListForOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	list, err := h.Service.ListForOrder(c.Context(), p.UserID, orderID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Instructions fetched", list, nil)
}
