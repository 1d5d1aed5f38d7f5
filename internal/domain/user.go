package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a marketplace account. ContactHandle is the external messenger id
// (e.g. Telegram) that visibility masking redacts for non-privileged viewers.
type User struct {
	UserID         uuid.UUID      `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Handle         string         `gorm:"column:handle;not null;uniqueIndex" json:"handle"`
	Email          string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash   string         `gorm:"column:password_hash;not null" json:"-"`
	ContactHandle  *string        `gorm:"column:contact_handle" json:"contact_handle,omitempty"`
	Role           string         `gorm:"column:role;type:varchar(20);not null;default:user" json:"role"`
	Banned         bool           `gorm:"column:banned;not null;default:false" json:"banned"`
	DealsCompleted int            `gorm:"column:deals_completed;not null;default:0" json:"deals_completed"`
	RatingCount    int            `gorm:"column:rating_count;not null;default:0" json:"rating_count"`
	RatingSum      float64        `gorm:"column:rating_sum;not null;default:0" json:"rating_sum"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "Users"
}

// BeforeCreate sets user_id for DBs without default uuid.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UserID == uuid.Nil {
		u.UserID = uuid.New()
	}
	return nil
}

// RatingAvg returns the average rating, 0 when unrated.
func (u *User) RatingAvg() float64 {
	if u.RatingCount == 0 {
		return 0
	}
	return u.RatingSum / float64(u.RatingCount)
}
