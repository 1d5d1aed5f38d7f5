package listings

import (
	"context"
	"strings"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"
	"middlemarket-backend/internal/pkg/apperr"
	"middlemarket-backend/internal/views"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// CreateInput for a new listing.
type CreateInput struct {
	Title       string
	Description string
	UnitPrice   float64
	Stock       int
}

// UpdateInput for listing edits. UnitPrice is absent on purpose: price is
// immutable once set, so edits can never touch it.
type UpdateInput struct {
	Title       *string
	Description *string
	Stock       *int
}

// HasActiveOrders reports whether any order referencing the listing is still
// in a non-terminal state. Recomputed by live query, never cached, so the
// guard cannot drift from the orders table.
func HasActiveOrders(tx *gorm.DB, listingID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&domain.Order{}).
		Where("listing_id = ? AND status NOT IN ?", listingID, []string{domain.OrderCompleted, domain.OrderCancelled}).
		Count(&count).Error
	return count > 0, err
}

// Create opens a new active listing owned by the actor.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in CreateInput) (*domain.Listing, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.InvalidInput("Title is required")
	}
	if in.UnitPrice <= 0 {
		return nil, apperr.InvalidInput("Unit price must be positive")
	}
	if in.Stock < 1 {
		return nil, apperr.InvalidInput("Stock must be at least 1")
	}

	var listing *domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequirePermission(actor, constants.CreateListing); err != nil {
			return err
		}
		listing = &domain.Listing{
			SellerID:    actorID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			UnitPrice:   in.UnitPrice,
			Stock:       in.Stock,
			Status:      domain.ListingActive,
		}
		return tx.Create(listing).Error
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Update edits a listing's mutable fields. Blocked while any order against it
// is non-terminal; only the owning seller or an admin may edit.
func (s *Service) Update(ctx context.Context, actorID, listingID uuid.UUID, in UpdateInput) (*domain.Listing, error) {
	if in.Stock != nil && *in.Stock < 0 {
		return nil, apperr.InvalidInput("Stock cannot be negative")
	}

	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadOwned(tx, actorID, listingID, &listing); err != nil {
			return err
		}
		if err := requireNoActiveOrders(tx, listingID); err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return apperr.InvalidInput("Title is required")
			}
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Stock != nil {
			updates["stock"] = *in.Stock
			// Restock reopens a sold-out listing; draining to zero closes it.
			if *in.Stock > 0 && listing.Status == domain.ListingSold {
				updates["status"] = domain.ListingActive
			}
			if *in.Stock == 0 && listing.Status == domain.ListingActive {
				updates["status"] = domain.ListingSold
			}
		}
		if len(updates) == 0 {
			return apperr.InvalidInput("Nothing to update")
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("listing_id = ?", listingID).First(&listing).Error
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// SetStatus pauses, reactivates or removes a listing (owner or admin), or
// disables it (admin only). Blocked while orders are in flight.
func (s *Service) SetStatus(ctx context.Context, actorID, listingID uuid.UUID, target string) (*domain.Listing, error) {
	if !domain.IsValidListingStatus(target) || target == domain.ListingSold {
		return nil, apperr.InvalidInput("Invalid listing status")
	}

	var listing domain.Listing
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := s.loadOwned(tx, actorID, listingID, &listing)
		if err != nil {
			return err
		}
		if target == domain.ListingDisabledByAdmin {
			if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
				return err
			}
		}
		if listing.Status == domain.ListingRemoved || listing.Status == domain.ListingDisabledByAdmin {
			if actor.Role != constants.RoleAdmin {
				return apperr.Conflict(apperr.CodeNotAvailable, "Listing can no longer be changed")
			}
		}
		if target == domain.ListingActive && listing.Stock == 0 {
			return apperr.Conflict(apperr.CodeInsufficientStock, "Restock before reactivating")
		}
		if err := requireNoActiveOrders(tx, listingID); err != nil {
			return err
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", listingID).Update("status", target).Error; err != nil {
			return err
		}
		listing.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// Get fetches a listing by id.
func (s *Service) Get(ctx context.Context, listingID uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, err
	}
	return &listing, nil
}

// Browse returns all active listings with sellers reduced to aggregate
// reputation. This is the only projection public callers ever see.
func (s *Service) Browse(ctx context.Context) ([]views.ListingPublic, error) {
	db := s.DB.WithContext(ctx)
	var listings []domain.Listing
	if err := db.Where("status = ?", domain.ListingActive).Order(`"createdAt" DESC`).Find(&listings).Error; err != nil {
		return nil, err
	}

	sellerIDs := make([]uuid.UUID, 0, len(listings))
	for _, l := range listings {
		sellerIDs = append(sellerIDs, l.SellerID)
	}
	sellers := map[uuid.UUID]*domain.User{}
	if len(sellerIDs) > 0 {
		var users []domain.User
		if err := db.Where("user_id IN ?", sellerIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for i := range users {
			sellers[users[i].UserID] = &users[i]
		}
	}

	out := make([]views.ListingPublic, 0, len(listings))
	for i := range listings {
		out = append(out, views.Listing(&listings[i], sellers[listings[i].SellerID]))
	}
	return out, nil
}

// ListMine returns the actor's own listings, unmasked (it is their data).
func (s *Service) ListMine(ctx context.Context, actorID uuid.UUID) ([]domain.Listing, error) {
	db := s.DB.WithContext(ctx)
	if _, err := guard.LoadActor(db, actorID); err != nil {
		return nil, err
	}
	var listings []domain.Listing
	if err := db.Where("seller_id = ?", actorID).Order(`"createdAt" DESC`).Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// loadOwned loads the actor and listing, admitting the owning seller or an admin.
func (s *Service) loadOwned(tx *gorm.DB, actorID, listingID uuid.UUID, listing *domain.Listing) (*domain.User, error) {
	actor, err := guard.LoadActor(tx, actorID)
	if err != nil {
		return nil, err
	}
	if err := tx.Where("listing_id = ?", listingID).First(listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Listing not found")
		}
		return nil, err
	}
	if actor.Role != constants.RoleAdmin && listing.SellerID != actorID {
		return nil, apperr.Forbidden("Only the listing's seller may change it")
	}
	return actor, nil
}

func requireNoActiveOrders(tx *gorm.DB, listingID uuid.UUID) error {
	busy, err := HasActiveOrders(tx, listingID)
	if err != nil {
		return err
	}
	if busy {
		return apperr.Conflict(apperr.CodeActiveOrders, "Listing has orders in progress")
	}
	return nil
}
