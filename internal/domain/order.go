package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order statuses. The chain runs pending_payment -> paid -> item_collected ->
// item_delivered -> completed; cancelled is terminal and reachable from any
// non-terminal status. A dispute freezes the chain without changing status.
const (
	OrderPendingPayment = "pending_payment"
	OrderPaid           = "paid"
	OrderItemCollected  = "item_collected"
	OrderItemDelivered  = "item_delivered"
	OrderCompleted      = "completed"
	OrderCancelled      = "cancelled"
)

// ValidOrderStatuses is the set of allowed order status values.
var ValidOrderStatuses = []string{OrderPendingPayment, OrderPaid, OrderItemCollected, OrderItemDelivered, OrderCompleted, OrderCancelled}

// IsValidOrderStatus returns true if status is one of the allowed values.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OrderTerminal reports whether status accepts no further transitions.
func OrderTerminal(status string) bool {
	return status == OrderCompleted || status == OrderCancelled
}

// Order is one purchase attempt against one listing. UnitPrice and TotalPrice
// are computed once at creation and never recomputed from the listing.
type Order struct {
	OrderID          uuid.UUID  `gorm:"column:order_id;type:uuid;primaryKey" json:"order_id"`
	BuyerID          uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;index" json:"buyer_id"`
	SellerID         uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	ListingID        uuid.UUID  `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	MiddlemanID      *uuid.UUID `gorm:"column:middleman_id;type:uuid;index" json:"middleman_id"`
	Quantity         int        `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice        float64    `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	TotalPrice       float64    `gorm:"column:total_price;type:decimal(18,2);not null" json:"total_price"`
	Status           string     `gorm:"column:status;type:varchar(20);not null;default:'pending_payment'" json:"status"`
	CommissionAmount *float64   `gorm:"column:commission_amount;type:decimal(18,2)" json:"commission_amount"`
	SellerPayout     *float64   `gorm:"column:seller_payout;type:decimal(18,2)" json:"seller_payout"`
	CreatedAt        time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Order) TableName() string {
	return "Orders"
}

// BeforeCreate sets order_id if not already set.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderID == uuid.Nil {
		o.OrderID = uuid.New()
	}
	return nil
}

// IsParty reports whether userID is the order's buyer or seller.
func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.BuyerID == userID || o.SellerID == userID
}

// IsAssignedMiddleman reports whether userID is the order's assigned middleman.
func (o *Order) IsAssignedMiddleman(userID uuid.UUID) bool {
	return o.MiddlemanID != nil && *o.MiddlemanID == userID
}
