package constants

// Role enum. "user" is the buyer-side role.
const (
	RoleUser      = "user"
	RoleSeller    = "seller"
	RoleMiddleman = "middleman"
	RoleAdmin     = "admin"
)

// ValidRoles is the set of allowed DB enum values for user role.
var ValidRoles = []string{RoleUser, RoleSeller, RoleMiddleman, RoleAdmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
