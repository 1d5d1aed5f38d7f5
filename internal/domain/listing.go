package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing statuses. Closed set; anything else is rejected at the boundary.
const (
	ListingActive          = "active"
	ListingSold            = "sold"
	ListingPaused          = "paused"
	ListingDisabledByAdmin = "disabled_by_admin"
	ListingRemoved         = "removed"
)

// ValidListingStatuses is the set of allowed listing status values.
var ValidListingStatuses = []string{ListingActive, ListingSold, ListingPaused, ListingDisabledByAdmin, ListingRemoved}

// IsValidListingStatus returns true if status is one of the allowed values.
func IsValidListingStatus(status string) bool {
	for _, s := range ValidListingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Listing is a sellable offer. UnitPrice is immutable once set; orders snapshot
// it at creation so later edits can never change an existing order's totals.
type Listing struct {
	ListingID   uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey" json:"listing_id"`
	SellerID    uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description" json:"description"`
	UnitPrice   float64   `gorm:"column:unit_price;type:decimal(18,2);not null" json:"unit_price"`
	Stock       int       `gorm:"column:stock;not null" json:"stock"`
	Status      string    `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt   time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

// BeforeCreate sets listing_id if not already set.
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ListingID == uuid.Nil {
		l.ListingID = uuid.New()
	}
	return nil
}
