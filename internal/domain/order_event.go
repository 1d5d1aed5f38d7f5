package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order event types, written in the same transaction as the mutation they record.
const (
	OrderEventCreated           = "CREATED"
	OrderEventMiddlemanAssigned = "MIDDLEMAN_ASSIGNED"
	OrderEventStatusChanged     = "STATUS_CHANGED"
	OrderEventInstructionSent   = "INSTRUCTION_SENT"
	OrderEventDisputeOpened     = "DISPUTE_OPENED"
	OrderEventDisputeResolved   = "DISPUTE_RESOLVED"
	OrderEventCompleted         = "COMPLETED"
	OrderEventCancelled         = "CANCELLED"
)

// OrderEvent is an append-only audit row for order mutations.
type OrderEvent struct {
	OrderEventID uuid.UUID      `gorm:"column:order_event_id;type:uuid;primaryKey" json:"order_event_id"`
	OrderID      uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	EventType    string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	ActorID      *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	EventData    datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt    time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (OrderEvent) TableName() string {
	return "OrderEvents"
}

// BeforeCreate sets order_event_id if not already set.
func (e *OrderEvent) BeforeCreate(tx *gorm.DB) error {
	if e.OrderEventID == uuid.Nil {
		e.OrderEventID = uuid.New()
	}
	return nil
}
