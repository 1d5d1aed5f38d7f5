package disputes

import (
	"context"
	"encoding/json"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"
	"middlemarket-backend/internal/pkg/apperr"
	"middlemarket-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

const maxReasonLen = 2000

// HasOpen reports whether the order has an open dispute. While true, every
// lifecycle transition on the order is frozen.
func HasOpen(tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&domain.Dispute{}).
		Where("order_id = ? AND status = ?", orderID, domain.DisputeOpen).
		Count(&count).Error
	return count > 0, err
}

// Open raises a dispute against an order. Only a party (buyer or seller) may
// raise one; at most one dispute ever exists per order.
func (s *Service) Open(ctx context.Context, actorID, orderID uuid.UUID, reason string) (*domain.Dispute, error) {
	if !validation.IsValidMessage(reason, maxReasonLen) {
		return nil, apperr.InvalidInput("Reason is required and must be at most 2000 characters")
	}

	var dispute *domain.Dispute
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := guard.LoadActor(tx, actorID); err != nil {
			return err
		}
		var order domain.Order
		if err := tx.Where("order_id = ?", orderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if !order.IsParty(actorID) {
			return apperr.Forbidden("Not a participant in this order")
		}
		if domain.OrderTerminal(order.Status) {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order is no longer active")
		}

		var count int64
		if err := tx.Model(&domain.Dispute{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict(apperr.CodeDisputeExists, "A dispute already exists for this order")
		}

		dispute = &domain.Dispute{
			OrderID:  orderID,
			RaisedBy: actorID,
			Reason:   reason,
			Status:   domain.DisputeOpen,
		}
		if err := tx.Create(dispute).Error; err != nil {
			return err
		}

		eventData, _ := json.Marshal(map[string]interface{}{"dispute_id": dispute.DisputeID})
		return tx.Create(&domain.OrderEvent{
			OrderID:   orderID,
			EventType: domain.OrderEventDisputeOpened,
			ActorID:   &actorID,
			EventData: datatypes.JSON(eventData),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return dispute, nil
}

// Resolve closes an open dispute (admin only), unfreezing the order.
func (s *Service) Resolve(ctx context.Context, actorID, disputeID uuid.UUID) (*domain.Dispute, error) {
	var dispute domain.Dispute
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}
		if err := tx.Where("dispute_id = ?", disputeID).First(&dispute).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Dispute not found")
			}
			return err
		}
		res := tx.Model(&domain.Dispute{}).
			Where("dispute_id = ? AND status = ?", disputeID, domain.DisputeOpen).
			Update("status", domain.DisputeResolved)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Dispute is already resolved")
		}
		dispute.Status = domain.DisputeResolved

		eventData, _ := json.Marshal(map[string]interface{}{"dispute_id": dispute.DisputeID})
		return tx.Create(&domain.OrderEvent{
			OrderID:   dispute.OrderID,
			EventType: domain.OrderEventDisputeResolved,
			ActorID:   &actorID,
			EventData: datatypes.JSON(eventData),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}
