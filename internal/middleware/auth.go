package middleware

import (
	"middlemarket-backend/internal/guard"
	"middlemarket-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with the standard
// error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetPrincipal parses the session user into a guard.Principal.
// ok is false when no valid principal is present.
func GetPrincipal(c *fiber.Ctx) (guard.Principal, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return guard.Principal{}, false
	}
	idStr, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	id, err := uuid.Parse(idStr)
	if err != nil || role == "" {
		return guard.Principal{}, false
	}
	return guard.Principal{UserID: id, Role: role}, true
}
