package users

import (
	"context"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"
	"middlemarket-backend/internal/pkg/apperr"
	"middlemarket-backend/internal/views"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// GetProfile returns the masked profile of a user for the actor.
func (s *Service) GetProfile(ctx context.Context, actorID, targetID uuid.UUID) (*views.UserRef, error) {
	db := s.DB.WithContext(ctx)
	actor, err := guard.LoadActor(db, actorID)
	if err != nil {
		return nil, err
	}
	var target domain.User
	if err := db.Where("user_id = ?", targetID).First(&target).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	v := views.Profile(&target, guard.Principal{UserID: actorID, Role: actor.Role})
	return &v, nil
}

// UpdateRole changes a user's role (admin only).
func (s *Service) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, role string) (*domain.User, error) {
	if !constants.IsValidRole(role) {
		return nil, apperr.InvalidInput("Invalid role")
	}

	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", targetID).First(&target).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("User not found")
			}
			return err
		}
		if err := tx.Model(&domain.User{}).Where("user_id = ?", targetID).Update("role", role).Error; err != nil {
			return err
		}
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// SetBanned bans or unbans an account (admin only). A banned account fails
// every authorization check until unbanned.
func (s *Service) SetBanned(ctx context.Context, actorID, targetID uuid.UUID, banned bool) (*domain.User, error) {
	var target domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := guard.LoadActor(tx, actorID)
		if err != nil {
			return err
		}
		if err := guard.RequireRole(actor, constants.RoleAdmin); err != nil {
			return err
		}
		if actorID == targetID {
			return apperr.InvalidInput("Admins cannot ban themselves")
		}
		if err := tx.Where("user_id = ?", targetID).First(&target).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound("User not found")
			}
			return err
		}
		if err := tx.Model(&domain.User{}).Where("user_id = ?", targetID).Update("banned", banned).Error; err != nil {
			return err
		}
		target.Banned = banned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}
