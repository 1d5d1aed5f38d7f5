package instructions

import (
	"context"
	"encoding/json"
	"time"

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

// CreateInput for a new middleman instruction.
type CreateInput struct {
	OrderID       uuid.UUID
	TargetRole    string
	TargetUserID  uuid.UUID
	Message       string
	ContactHandle *string
}

// HasPending reports whether the order has any PENDING instruction.
// Consumed by the order lifecycle guards: a pending instruction blocks
// every transition until the addressed party acknowledges it.
func HasPending(tx *gorm.DB, orderID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&domain.MiddlemanInstruction{}).
		Where("order_id = ? AND status = ?", orderID, domain.InstructionPending).
		Count(&count).Error
	return count > 0, err
}

// Create issues a directive from the assigned middleman (or an admin) to
// exactly one party of the order. The target is validated against the order
// row, never trusted from the caller alone.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, in CreateInput) (*domain.MiddlemanInstruction, error) {
	if !validation.IsValidMessage(in.Message, domain.MaxInstructionMessageLen) {
		return nil, apperr.InvalidInput("Message is required and must be at most 2000 characters")
	}

	var instruction *domain.MiddlemanInstruction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}

		var order domain.Order
		if err := tx.Where("order_id = ?", in.OrderID).First(&order).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if actor.Role != constants.RoleAdmin && !order.IsAssignedMiddleman(actorID) {
			return apperr.Forbidden("Only the assigned middleman may instruct this order")
		}
		if domain.OrderTerminal(order.Status) {
			return apperr.Conflict(apperr.CodeInvalidTransition, "Order is no longer active")
		}

		switch in.TargetRole {
		case constants.RoleUser:
			if in.TargetUserID != order.BuyerID {
				return apperr.InvalidInput("Target user is not the order's buyer")
			}
		case constants.RoleSeller:
			if in.TargetUserID != order.SellerID {
				return apperr.InvalidInput("Target user is not the order's seller")
			}
		default:
			return apperr.InvalidInput("Target role must be user or seller")
		}

		instruction = &domain.MiddlemanInstruction{
			OrderID:       in.OrderID,
			TargetUserID:  in.TargetUserID,
			TargetRole:    in.TargetRole,
			Message:       in.Message,
			ContactHandle: in.ContactHandle,
			Status:        domain.InstructionPending,
			CreatedBy:     actorID,
		}
		if err := tx.Create(instruction).Error; err != nil {
			return err
		}

		eventData, _ := json.Marshal(map[string]interface{}{
			"instruction_id": instruction.InstructionID,
			"target_role":    in.TargetRole,
		})
		return tx.Create(&domain.OrderEvent{
			OrderID:   in.OrderID,
			EventType: domain.OrderEventInstructionSent,
			ActorID:   &actorID,
			EventData: datatypes.JSON(eventData),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return instruction, nil
}

// Acknowledge marks an instruction ACKNOWLEDGED. Only the addressed target may
// acknowledge; acknowledging an already-acknowledged instruction is a no-op
// success, never a rollback to PENDING.
func (s *Service) Acknowledge(ctx context.Context, actorID, instructionID uuid.UUID) (*domain.MiddlemanInstruction, error) {
	var instruction domain.MiddlemanInstruction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := guard.LoadActor(tx, actorID); err != nil {
			return err
		}
		if err := tx.Where("instruction_id = ?", instructionID).First(&instruction).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("Instruction not found")
			}
			return err
		}
		if instruction.TargetUserID != actorID {
			return apperr.Forbidden("Only the addressed user may acknowledge this instruction")
		}
		if instruction.Status == domain.InstructionAcknowledged {
			return nil
		}
		now := time.Now()
		res := tx.Model(&domain.MiddlemanInstruction{}).
			Where("instruction_id = ? AND status = ?", instructionID, domain.InstructionPending).
			Updates(map[string]interface{}{"status": domain.InstructionAcknowledged, "acknowledged_at": now})
		if res.Error != nil {
			return res.Error
		}
		instruction.Status = domain.InstructionAcknowledged
		instruction.AcknowledgedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &instruction, nil
}

// ListForOrder returns the order's instructions visible to the actor: all of
// them for an admin or the assigned middleman, only those addressed to the
// actor for a party.
func (s *Service) ListForOrder(ctx context.Context, actorID, orderID uuid.UUID) ([]domain.MiddlemanInstruction, error) {
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

	q := db.Where("order_id = ?", orderID).Order(`"createdAt" ASC`)
	switch {
	case actor.Role == constants.RoleAdmin, order.IsAssignedMiddleman(actorID):
	case order.IsParty(actorID):
		q = q.Where("target_user_id = ?", actorID)
	default:
		return nil, apperr.Forbidden("Not a participant in this order")
	}

	var list []domain.MiddlemanInstruction
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
