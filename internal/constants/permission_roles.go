package constants

// PermissionRoles maps each permission to the roles allowed to perform it.
// This is the coarse half of the authorization gate; relationship checks
// (listing owner, assigned middleman, instruction target) live in the services.
var PermissionRoles = map[string][]string{
	PlaceOrder:        {RoleUser, RoleSeller},
	AdvanceOrder:      {RoleMiddleman},
	AssignMiddleman:   {RoleAdmin},
	CompleteOrder:     {RoleAdmin},
	CancelOrder:       {RoleAdmin},
	ViewOrderEvents:   {RoleAdmin},
	CreateInstruction: {RoleMiddleman, RoleAdmin},
	OpenDispute:       {RoleUser, RoleSeller},
	ResolveDispute:    {RoleAdmin},
	CreateListing:     {RoleSeller, RoleAdmin},
	EditListing:       {RoleSeller, RoleAdmin},
	DisableListing:    {RoleAdmin},
	UpdateRole:        {RoleAdmin},
	BanUser:           {RoleAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
