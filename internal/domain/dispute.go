package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispute statuses.
const (
	DisputeOpen     = "open"
	DisputeResolved = "resolved"
)

// Dispute freezes an order: while one is open, no lifecycle transition is
// permitted. At most one dispute exists per order (unique index on order_id).
type Dispute struct {
	DisputeID uuid.UUID `gorm:"column:dispute_id;type:uuid;primaryKey" json:"dispute_id"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"order_id"`
	RaisedBy  uuid.UUID `gorm:"column:raised_by;type:uuid;not null" json:"raised_by"`
	Reason    string    `gorm:"column:reason;not null" json:"reason"`
	Status    string    `gorm:"column:status;type:varchar(20);not null;default:'open'" json:"status"`
	CreatedAt time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Dispute) TableName() string {
	return "Disputes"
}

// BeforeCreate sets dispute_id if not already set.
func (d *Dispute) BeforeCreate(tx *gorm.DB) error {
	if d.DisputeID == uuid.Nil {
		d.DisputeID = uuid.New()
	}
	return nil
}
