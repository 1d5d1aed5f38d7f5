package orders

import (
	"context"
	"encoding/json"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/disputes"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"
	"middlemarket-backend/internal/instructions"
	"middlemarket-backend/internal/pkg/apperr"
	"middlemarket-backend/internal/views"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	DB *gorm.DB
}

// advanceFrom maps each AdvanceOrder target to its required current status.
// completed is deliberately absent: settlement goes through CompleteOrder.
var advanceFrom = map[string]string{
	domain.OrderPaid:          domain.OrderPendingPayment,
	domain.OrderItemCollected: domain.OrderPaid,
	domain.OrderItemDelivered: domain.OrderItemCollected,
}

// lockForUpdate applies a row lock on dialects that support it. SQLite (used
// in tests) serializes writers on its own and rejects FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func appendEvent(tx *gorm.DB, orderID uuid.UUID, eventType string, actorID uuid.UUID, data map[string]interface{}) error {
	b, _ := json.Marshal(data)
	return tx.Create(&domain.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		ActorID:   &actorID,
		EventData: datatypes.JSON(b),
	}).Error
}

// PlaceOrder atomically reserves stock and creates the order. The whole unit
// commits or aborts together: a guard failure at any step leaves stock
// untouched. The decrement is a conditional UPDATE keyed on current stock, so
// two racing reservations can never both drain the same units.
func (s *Service) PlaceOrder(ctx context.Context, buyerID, listingID uuid.UUID, quantity int) (*domain.Order, error) {
	if quantity < 1 {
		return nil, apperr.InvalidInput("Quantity must be at least 1")
	}

	var order *domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := guard.LoadActor(tx, buyerID); err != nil {
			return err
		}

		var listing domain.Listing
		if err := lockForUpdate(tx).Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Listing not found")
			}
			return err
		}
		if listing.Status != domain.ListingActive {
			return apperr.Conflict(apperr.CodeNotAvailable, "Listing is not available for purchase")
		}
		if listing.SellerID == buyerID {
			return apperr.Conflict(apperr.CodeSelfPurchase, "You cannot order your own listing")
		}
		if quantity > listing.Stock {
			return apperr.Conflict(apperr.CodeInsufficientStock, "Not enough stock available")
		}

		res := tx.Model(&domain.Listing{}).
			Where("listing_id = ? AND status = ? AND stock >= ?", listingID, domain.ListingActive, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInsufficientStock, "Not enough stock available")
		}
		if listing.Stock-quantity == 0 {
			if err := tx.Model(&domain.Listing{}).
				Where("listing_id = ?", listingID).
				Update("status", domain.ListingSold).Error; err != nil {
				return err
			}
		}

		// Price is snapshotted here and never recomputed from the listing.
		order = &domain.Order{
			BuyerID:    buyerID,
			SellerID:   listing.SellerID,
			ListingID:  listingID,
			Quantity:   quantity,
			UnitPrice:  listing.UnitPrice,
			TotalPrice: listing.UnitPrice * float64(quantity),
			Status:     domain.OrderPendingPayment,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return appendEvent(tx, order.OrderID, domain.OrderEventCreated, buyerID, map[string]interface{}{
			"quantity":    quantity,
			"unit_price":  order.UnitPrice,
			"total_price": order.TotalPrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// AssignMiddleman attaches a middleman to an order (admin only). Permitted
// only early in the lifecycle and never on a disputed order.
func (s *Service) AssignMiddleman(ctx context.Context, actorID, orderID, middlemanID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}

		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if order.Status != domain.OrderPendingPayment && order.Status != domain.OrderPaid {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Middleman can only be assigned before item handover")
		}
		if frozen, err := disputes.HasOpen(tx, orderID); err != nil {
			return err
		} else if frozen {
			return apperr.Conflict(apperr.CodeDisputed, "Order is disputed")
		}

		var middleman domain.User
		if err := tx.Where("user_id = ?", middlemanID).First(&middleman).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Middleman not found")
			}
			return err
		}
		if middleman.Role != constants.RoleMiddleman || middleman.Banned {
			return apperr.InvalidInput("Target user cannot act as middleman")
		}

		res := tx.Model(&domain.Order{}).
			Where("order_id = ? AND status IN ?", orderID, []string{domain.OrderPendingPayment, domain.OrderPaid}).
			Update("middleman_id", middlemanID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order moved on; middleman not assigned")
		}
		order.MiddlemanID = &middlemanID

		return appendEvent(tx, orderID, domain.OrderEventMiddlemanAssigned, actorID, map[string]interface{}{
			"middleman_id": middlemanID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// AdvanceOrder moves an order one step along the chain
// pending_payment -> paid -> item_collected -> item_delivered.
// Only the assigned middleman may advance, never on a disputed order, and
// never while a PENDING instruction is outstanding. The status flip is a
// conditional update so racing calls cannot double-apply a transition.
func (s *Service) AdvanceOrder(ctx context.Context, actorID, orderID uuid.UUID, target string) (*domain.Order, error) {
	if !domain.IsValidOrderStatus(target) {
		return nil, apperr.InvalidInput("Unknown order status")
	}
	from, ok := advanceFrom[target]
	if !ok {
		return nil, apperr.Conflict(apperr.CodeInvalidTransition, "Order cannot be advanced to "+target)
	}

	var order domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := guard.LoadActor(tx, actorID); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if !order.IsAssignedMiddleman(actorID) {
			return apperr.Forbidden("Only the assigned middleman may advance this order")
		}
		if err := requireUnfrozen(tx, orderID); err != nil {
			return err
		}
		if order.Status != from {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order is not in "+from)
		}

		res := tx.Model(&domain.Order{}).
			Where("order_id = ? AND status = ?", orderID, from).
			Update("status", target)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order is not in "+from)
		}
		order.Status = target

		return appendEvent(tx, orderID, domain.OrderEventStatusChanged, actorID, map[string]interface{}{
			"from": from,
			"to":   target,
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteOrder settles an item_delivered order (admin only): computes the
// commission split, flips the order to completed, credits the seller's deal
// counter and records the one-and-only settlement Transaction. A second call
// on the same order fails with a conflict instead of double-crediting.
func (s *Service) CompleteOrder(ctx context.Context, actorID, orderID uuid.UUID, commissionPercent float64) (*domain.Transaction, error) {
	if commissionPercent < 0 || commissionPercent > 100 {
		return nil, apperr.InvalidInput("Commission percent must be between 0 and 100")
	}

	var record *domain.Transaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}

		var order domain.Order
		if err := lockForUpdate(tx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if order.Status == domain.OrderCompleted {
			return apperr.Conflict(apperr.CodeDuplicateSettlement, "Order is already settled")
		}
		if order.Status != domain.OrderItemDelivered {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order has not reached item_delivered")
		}
		if err := requireUnfrozen(tx, orderID); err != nil {
			return err
		}

		// Plain float arithmetic; no rounding policy is applied here.
		commission := order.TotalPrice * commissionPercent / 100
		payout := order.TotalPrice - commission

		res := tx.Model(&domain.Order{}).
			Where("order_id = ? AND status = ?", orderID, domain.OrderItemDelivered).
			Updates(map[string]interface{}{
				"status":            domain.OrderCompleted,
				"commission_amount": commission,
				"seller_payout":     payout,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeDuplicateSettlement, "Order is already settled")
		}

		var existing int64
		if err := tx.Model(&domain.Transaction{}).Where("order_id = ?", orderID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict(apperr.CodeDuplicateSettlement, "Order is already settled")
		}

		record = &domain.Transaction{
			OrderID:           orderID,
			BuyerID:           order.BuyerID,
			SellerID:          order.SellerID,
			MiddlemanID:       order.MiddlemanID,
			GrossAmount:       order.TotalPrice,
			CommissionPercent: commissionPercent,
			CommissionAmount:  commission,
			SellerPayout:      payout,
			PayoutStatus:      domain.PayoutRecorded,
		}
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.User{}).
			Where("user_id = ?", order.SellerID).
			Update("deals_completed", gorm.Expr("deals_completed + 1")).Error; err != nil {
			return err
		}

		return appendEvent(tx, orderID, domain.OrderEventCompleted, actorID, map[string]interface{}{
			"commission_amount": commission,
			"seller_payout":     payout,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// CancelOrder cancels a non-terminal order (admin only) and restores the
// reserved stock to the listing, reopening it when it had sold out.
func (s *Service) CancelOrder(ctx context.Context, actorID, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if domain.OrderTerminal(order.Status) {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order is no longer active")
		}
		if frozen, err := disputes.HasOpen(tx, orderID); err != nil {
			return err
		} else if frozen {
			return apperr.Conflict(apperr.CodeDisputed, "Resolve the dispute before cancelling")
		}

		res := tx.Model(&domain.Order{}).
			Where("order_id = ? AND status = ?", orderID, order.Status).
			Update("status", domain.OrderCancelled)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order moved on; not cancelled")
		}
		order.Status = domain.OrderCancelled

		var listing domain.Listing
		if err := lockForUpdate(tx).Where("listing_id = ?", order.ListingID).First(&listing).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"stock": gorm.Expr("stock + ?", order.Quantity)}
		if listing.Status == domain.ListingSold {
			updates["status"] = domain.ListingActive
		}
		if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", order.ListingID).Updates(updates).Error; err != nil {
			return err
		}

		return appendEvent(tx, orderID, domain.OrderEventCancelled, actorID, map[string]interface{}{
			"restocked": order.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderView returns the role-masked projection of an order for the actor.
// Only the order's parties, its assigned middleman and admins may see it.
func (s *Service) GetOrderView(ctx context.Context, actorID, orderID uuid.UUID) (*views.OrderView, error) {
	db := s.DB.WithContext(ctx)
	actor, err := guard.LoadActor(db, actorID)
	if err != nil {
		return nil, err
	}

	var order domain.Order
	if err := db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, err
	}
	if actor.Role != constants.RoleAdmin && !order.IsParty(actorID) && !order.IsAssignedMiddleman(actorID) {
		return nil, apperr.Forbidden("Not a participant in this order")
	}

	v := s.project(db, &order, guard.Principal{UserID: actorID, Role: actor.Role})
	return &v, nil
}

// ListOrders returns the actor's orders, masked. Admins see every order.
func (s *Service) ListOrders(ctx context.Context, actorID uuid.UUID) ([]views.OrderView, error) {
	db := s.DB.WithContext(ctx)
	actor, err := guard.LoadActor(db, actorID)
	if err != nil {
		return nil, err
	}

	q := db.Order(`"createdAt" DESC`)
	if actor.Role != constants.RoleAdmin {
		q = q.Where("buyer_id = ? OR seller_id = ? OR middleman_id = ?", actorID, actorID, actorID)
	}
	var list []domain.Order
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}

	p := guard.Principal{UserID: actorID, Role: actor.Role}
	out := make([]views.OrderView, 0, len(list))
	for i := range list {
		out = append(out, s.project(db, &list[i], p))
	}
	return out, nil
}

// ListEvents returns the order's audit trail (admin only).
func (s *Service) ListEvents(ctx context.Context, actorID, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	db := s.DB.WithContext(ctx)
	actor, err := guard.LoadActor(db, actorID)
	if err != nil {
		return nil, err
	}
	if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
		return nil, err
	}
	var events []domain.OrderEvent
	if err := db.Where("order_id = ?", orderID).Order(`"createdAt" ASC`).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// requireUnfrozen enforces the two cross-cutting transition guards: an open
// dispute freezes the order, and a pending instruction blocks it until the
// addressed party acknowledges.
func requireUnfrozen(tx *gorm.DB, orderID uuid.UUID) error {
	frozen, err := disputes.HasOpen(tx, orderID)
	if err != nil {
		return err
	}
	if frozen {
		return apperr.Conflict(apperr.CodeDisputed, "Order is disputed")
	}
	pending, err := instructions.HasPending(tx, orderID)
	if err != nil {
		return err
	}
	if pending {
		return apperr.Conflict(apperr.CodePendingInstruction, "Acknowledge the pending instruction first")
	}
	return nil
}

// project loads the order's participants and masks them for the requester.
func (s *Service) project(db *gorm.DB, order *domain.Order, requester guard.Principal) views.OrderView {
	var buyer, seller, middleman *domain.User
	var u domain.User
	if err := db.Where("user_id = ?", order.BuyerID).First(&u).Error; err == nil {
		b := u
		buyer = &b
	}
	if err := db.Where("user_id = ?", order.SellerID).First(&u).Error; err == nil {
		sl := u
		seller = &sl
	}
	if order.MiddlemanID != nil {
		if err := db.Where("user_id = ?", *order.MiddlemanID).First(&u).Error; err == nil {
			m := u
			middleman = &m
		}
	}
	return views.Order(order, buyer, seller, middleman, requester)
}
