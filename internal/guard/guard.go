package guard

import (
	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Principal is the verified caller identity resolved from the session.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == constants.RoleAdmin
}

// LoadActor re-reads the caller's user row so every operation sees the current
// ban state, never a stale session copy. A banned or missing account is
// Unauthorized regardless of role.
func LoadActor(tx *gorm.DB, userID uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := tx.Where("user_id = ?", userID).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.Unauthorized("Unknown account")
		}
		return nil, err
	}
	if u.Banned {
		return nil, apperr.Unauthorized("Account is banned")
	}
	return &u, nil
}

// RequireRole admits the actor when their role is in the allowed set.
func RequireRole(actor *domain.User, roles ...string) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("User is Forbidden from performing this action")
}

// RequirePermission admits the actor per the PermissionRoles table.
func RequirePermission(actor *domain.User, permission string) error {
	if !constants.AllowedRole(permission, actor.Role) {
		return apperr.Forbidden("User is Forbidden from performing this action")
	}
	return nil
}
