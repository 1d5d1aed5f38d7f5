package constants

// Permission names used by middleware.AuthorizePermission and route wiring.
const (
	PlaceOrder        = "place_order"
	AdvanceOrder      = "advance_order"
	AssignMiddleman   = "assign_middleman"
	CompleteOrder     = "complete_order"
	CancelOrder       = "cancel_order"
	ViewOrderEvents   = "view_order_events"
	CreateInstruction = "create_instruction"
	OpenDispute       = "open_dispute"
	ResolveDispute    = "resolve_dispute"
	CreateListing     = "create_listing"
	EditListing       = "edit_listing"
	DisableListing    = "disable_listing"
	UpdateRole        = "update_role"
	BanUser           = "ban_user"
)
