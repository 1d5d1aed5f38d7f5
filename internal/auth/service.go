package auth

import (
	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/pkg/apperr"
	"middlemarket-backend/internal/pkg/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput for the public register endpoint. Role may be user or seller;
// middleman and admin accounts are provisioned by an admin.
type RegisterInput struct {
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	Handle        string  `json:"handle"`
	ContactHandle *string `json:"contact_handle"`
	Role          string  `json:"role"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// UserFinder abstracts user lookup by email+password (GORM in production, test doubles elsewhere).
type UserFinder interface {
	FindByEmailAndPassword(email, password string) (*domain.User, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	return LoginUser(g.DB, LoginInput{Email: email, Password: password})
}

// LoginUser finds the user by email and verifies the password. A banned
// account cannot log in.
func LoginUser(db *gorm.DB, input LoginInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u domain.User
	if err := db.Where("email = ?", input.Email).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	if u.Banned {
		return nil, ErrAccountBanned
	}
	return &u, nil
}

// RegisterUser creates a marketplace account.
func RegisterUser(db *gorm.DB, input RegisterInput) (*domain.User, error) {
	if !validation.IsValidEmail(input.Email) {
		return nil, apperr.InvalidInput("Invalid email")
	}
	if !validation.IsValidPassword(input.Password) {
		return nil, apperr.InvalidInput("Password must be at least 8 characters with a letter, a number and a special character")
	}
	if !validation.IsValidHandle(input.Handle) {
		return nil, apperr.InvalidInput("Handle must be 3-32 letters, digits or underscores")
	}
	role := input.Role
	if role == "" {
		role = constants.RoleUser
	}
	if role != constants.RoleUser && role != constants.RoleSeller {
		return nil, apperr.InvalidInput("Role must be user or seller")
	}

	var count int64
	if err := db.Model(&domain.User{}).Where("email = ? OR handle = ?", input.Email, input.Handle).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.Conflict("", "Email or handle already in use")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:         input.Email,
		Handle:        input.Handle,
		PasswordHash:  string(hash),
		ContactHandle: input.ContactHandle,
		Role:          role,
	}
	if err := db.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// VerifyUser validates the session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	return &SessionUserShape{
		UserID: userID,
		Handle: str(m["handle"]),
		Email:  str(m["email"]),
		Role:   str(m["role"]),
	}, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
