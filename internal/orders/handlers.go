package orders

import (
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for order endpoints. CommissionPercent is the
// configured settlement rate, resolved once at wiring time and passed into
// CompleteOrder per call.
type Handlers struct {
	Service           *Service
	CommissionPercent float64
}

type placeOrderRequest struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrder POST /api/v1/orders
func (h *Handlers) PlaceOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req placeOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return response.Error(c, "listing_id is required", fiber.StatusBadRequest, nil)
	}
	order, err := h.Service.PlaceOrder(c.Context(), p.UserID, listingID, req.Quantity)
	if err != nil {
		return response.AppError(c, err)
	}
	view, err := h.Service.GetOrderView(c.Context(), p.UserID, order.OrderID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Order placed", view, nil)
}

// GetOrder GET /api/v1/orders/:id
func (h *Handlers) GetOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	view, err := h.Service.GetOrderView(c.Context(), p.UserID, orderID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Order fetched", view, nil)
}

// ListOrders GET /api/v1/orders
func (h *Handlers) ListOrders(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	list, err := h.Service.ListOrders(c.Context(), p.UserID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Orders fetched", list, nil)
}

type assignMiddlemanRequest struct {
	MiddlemanID string `json:"middleman_id"`
}

// AssignMiddleman POST /api/v1/orders/:id/assign-middleman
func (h *Handlers) AssignMiddleman(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	var req assignMiddlemanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	middlemanID, err := uuid.Parse(req.MiddlemanID)
	if err != nil {
		return response.Error(c, "middleman_id is required", fiber.StatusBadRequest, nil)
	}
	order, err := h.Service.AssignMiddleman(c.Context(), p.UserID, orderID, middlemanID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Middleman assigned", fiber.Map{
		"order_id":     order.OrderID,
		"middleman_id": order.MiddlemanID,
		"status":       order.Status,
	}, nil)
}

type advanceOrderRequest struct {
	Target string `json:"target"`
}

// AdvanceOrder POST /api/v1/orders/:id/advance
func (h *Handlers) AdvanceOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	var req advanceOrderRequest
	if err := c.BodyParser(&req); err != nil || req.Target == "" {
		return response.Error(c, "target is required", fiber.StatusBadRequest, nil)
	}
	order, err := h.Service.AdvanceOrder(c.Context(), p.UserID, orderID, req.Target)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Order advanced", fiber.Map{
		"order_id": order.OrderID,
		"status":   order.Status,
	}, nil)
}

// CompleteOrder POST /api/v1/orders/:id/complete
func (h *Handlers) CompleteOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	record, err := h.Service.CompleteOrder(c.Context(), p.UserID, orderID, h.CommissionPercent)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Order completed", record, nil)
}

// CancelOrder POST /api/v1/orders/:id/cancel
func (h *Handlers) CancelOrder(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	order, err := h.Service.CancelOrder(c.Context(), p.UserID, orderID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Order cancelled", fiber.Map{
		"order_id": order.OrderID,
		"status":   order.Status,
	}, nil)
}

// ListEvents GET /api/v1/orders/:id/events
func (h *Handlers) ListEvents(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid order id", fiber.StatusBadRequest, nil)
	}
	events, err := h.Service.ListEvents(c.Context(), p.UserID, orderID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Order events fetched", events, nil)
}
