package listings

import (
	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/middleware"
	"middlemarket-backend/internal/pkg/response"
	"middlemarket-backend/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Handlers struct {
	Service *Service
}

type createRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Stock       int     `json:"stock"`
}

// Create POST /api/v1/listings
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Create(c.Context(), p.UserID, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		UnitPrice:   req.UnitPrice,
		Stock:       req.Stock,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.SuccessCreated(c, "Listing created", listing, nil)
}

type updateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Stock       *int     `json:"stock"`
	UnitPrice   *float64 `json:"unit_price"`
}

// Update PUT /api/v1/listings/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	// Price is immutable once set; reject the attempt instead of ignoring it.
	if req.UnitPrice != nil {
		return response.Error(c, "Unit price cannot be changed", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Update(c.Context(), p.UserID, listingID, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Stock:       req.Stock,
	})
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Listing updated", listing, nil)
}

// SetStatus returns a handler flipping the listing to the given status.
// Used for POST /api/v1/listings/:id/pause|activate|remove|disable.
func (h *Handlers) SetStatus(target string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := middleware.GetPrincipal(c)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}
		listingID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
		}
		listing, err := h.Service.SetStatus(c.Context(), p.UserID, listingID, target)
		if err != nil {
			return response.AppError(c, err)
		}
		return response.Success(c, "Listing status updated", listing, nil)
	}
}

// Browse GET /api/v1/listings/browse is public; sellers are masked to aggregates.
func (h *Handlers) Browse(c *fiber.Ctx) error {
	list, err := h.Service.Browse(c.Context())
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Listings fetched", list, nil)
}

// Get GET /api/v1/listings/:id serves the public projection unless the caller is the
// owning seller or an admin, who see the raw listing.
func (h *Handlers) Get(c *fiber.Ctx) error {
	listingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid listing id", fiber.StatusBadRequest, nil)
	}
	listing, err := h.Service.Get(c.Context(), listingID)
	if err != nil {
		return response.AppError(c, err)
	}
	if p, ok := middleware.GetPrincipal(c); ok {
		if p.Role == constants.RoleAdmin || p.UserID == listing.SellerID {
			return response.Success(c, "Listing fetched", listing, nil)
		}
	}
	var seller *domain.User
	var u domain.User
	if err := h.Service.DB.WithContext(c.Context()).Where("user_id = ?", listing.SellerID).First(&u).Error; err == nil {
		seller = &u
	} else if err != gorm.ErrRecordNotFound {
		return response.AppError(c, err)
	}
	return response.Success(c, "Listing fetched", views.Listing(listing, seller), nil)
}

// ListMine GET /api/v1/listings/mine
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	list, err := h.Service.ListMine(c.Context(), p.UserID)
	if err != nil {
		return response.AppError(c, err)
	}
	return response.Success(c, "Listings fetched", list, nil)
}
