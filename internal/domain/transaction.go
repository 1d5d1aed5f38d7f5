package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payout statuses for a settlement record.
const (
	PayoutRecorded = "recorded"
	PayoutPaidOut  = "paid_out"
)

// Transaction is the immutable settlement record created exactly once per
// order at completion. The unique index on order_id is the last line of
// defense against double settlement.
type Transaction struct {
	TxID              uuid.UUID  `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	OrderID           uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex" json:"order_id"`
	BuyerID           uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	SellerID          uuid.UUID  `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	MiddlemanID       *uuid.UUID `gorm:"column:middleman_id;type:uuid" json:"middleman_id"`
	GrossAmount       float64    `gorm:"column:gross_amount;type:decimal(18,2);not null" json:"gross_amount"`
	CommissionPercent float64    `gorm:"column:commission_percent;type:decimal(5,2);not null" json:"commission_percent"`
	CommissionAmount  float64    `gorm:"column:commission_amount;type:decimal(18,2);not null" json:"commission_amount"`
	SellerPayout      float64    `gorm:"column:seller_payout;type:decimal(18,2);not null" json:"seller_payout"`
	PayoutStatus      string     `gorm:"column:payout_status;type:varchar(20);not null;default:'recorded'" json:"payout_status"`
	CreatedAt         time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

// BeforeCreate sets tx_id if not already set.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
