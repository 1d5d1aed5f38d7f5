package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Instruction statuses. Acknowledgment is monotonic: PENDING -> ACKNOWLEDGED, never back.
const (
	InstructionPending      = "PENDING"
	InstructionAcknowledged = "ACKNOWLEDGED"
)

// MaxInstructionMessageLen bounds the free-text message field.
const MaxInstructionMessageLen = 2000

// MiddlemanInstruction is a one-way directive from the assigned middleman to
// exactly one party (buyer xor seller) of an order. A PENDING instruction
// blocks all lifecycle transitions on the order until acknowledged.
type MiddlemanInstruction struct {
	InstructionID  uuid.UUID  `gorm:"column:instruction_id;type:uuid;primaryKey" json:"instruction_id"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	TargetUserID   uuid.UUID  `gorm:"column:target_user_id;type:uuid;not null;index" json:"target_user_id"`
	TargetRole     string     `gorm:"column:target_role;type:varchar(20);not null" json:"target_role"`
	Message        string     `gorm:"column:message;not null" json:"message"`
	ContactHandle  *string    `gorm:"column:contact_handle" json:"contact_handle,omitempty"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedBy      uuid.UUID  `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	AcknowledgedAt *time.Time `gorm:"column:acknowledged_at" json:"acknowledged_at"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (MiddlemanInstruction) TableName() string {
	return "MiddlemanInstructions"
}

// BeforeCreate sets instruction_id if not already set.
func (i *MiddlemanInstruction) BeforeCreate(tx *gorm.DB) error {
	if i.InstructionID == uuid.Nil {
		i.InstructionID = uuid.New()
	}
	return nil
}
