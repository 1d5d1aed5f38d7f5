package views

import (
	"time"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"

	"github.com/google/uuid"
)

// UserRef is a role-masked projection of a user attached to an order.
// Fields absent for the requester are omitted from JSON entirely.
type UserRef struct {
	UserID        uuid.UUID `json:"user_id"`
	Handle        string    `json:"handle,omitempty"`
	ContactHandle *string   `json:"contact_handle,omitempty"`
}

// SellerPublic is what unauthenticated listing browsing sees of a seller:
// aggregate reputation only, no identifier-linked handle.
type SellerPublic struct {
	SellerID       uuid.UUID `json:"seller_id"`
	DealsCompleted int       `json:"deals_completed"`
	RatingCount    int       `json:"rating_count"`
	RatingAvg      float64   `json:"rating_avg"`
}

// OrderView is the masked order projection returned to callers.
type OrderView struct {
	OrderID          uuid.UUID `json:"order_id"`
	ListingID        uuid.UUID `json:"listing_id"`
	Status           string    `json:"status"`
	Quantity         int       `json:"quantity"`
	UnitPrice        float64   `json:"unit_price"`
	TotalPrice       float64   `json:"total_price"`
	CommissionAmount *float64  `json:"commission_amount,omitempty"`
	SellerPayout     *float64  `json:"seller_payout,omitempty"`
	Buyer            UserRef   `json:"buyer"`
	Seller           UserRef   `json:"seller"`
	Middleman        *UserRef  `json:"middleman,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ListingPublic is the public browse projection of an active listing.
type ListingPublic struct {
	ListingID   uuid.UUID    `json:"listing_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	UnitPrice   float64      `json:"unit_price"`
	Stock       int          `json:"stock"`
	Status      string       `json:"status"`
	Seller      SellerPublic `json:"seller"`
}

// maskOrderUser projects one order participant for the requester.
// admin: full view. Assigned middleman: handle + contact for buyer/seller.
// A party: own handle only; everyone else reduced to the bare id.
func maskOrderUser(u *domain.User, requester guard.Principal, o *domain.Order) UserRef {
	if u == nil {
		return UserRef{}
	}
	ref := UserRef{UserID: u.UserID}
	switch {
	case requester.Role == constants.RoleAdmin:
		ref.Handle = u.Handle
		ref.ContactHandle = u.ContactHandle
	case o.IsAssignedMiddleman(requester.UserID):
		ref.Handle = u.Handle
		if o.IsParty(u.UserID) {
			ref.ContactHandle = u.ContactHandle
		}
	case requester.UserID == u.UserID:
		ref.Handle = u.Handle
	}
	return ref
}

// Order projects an order with its participants masked for the requester.
func Order(o *domain.Order, buyer, seller, middleman *domain.User, requester guard.Principal) OrderView {
	v := OrderView{
		OrderID:    o.OrderID,
		ListingID:  o.ListingID,
		Status:     o.Status,
		Quantity:   o.Quantity,
		UnitPrice:  o.UnitPrice,
		TotalPrice: o.TotalPrice,
		Buyer:      maskOrderUser(buyer, requester, o),
		Seller:     maskOrderUser(seller, requester, o),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if requester.Role == constants.RoleAdmin || o.IsParty(requester.UserID) || o.IsAssignedMiddleman(requester.UserID) {
		v.CommissionAmount = o.CommissionAmount
		v.SellerPayout = o.SellerPayout
	}
	if middleman != nil {
		m := maskOrderUser(middleman, requester, o)
		v.Middleman = &m
	} else if o.MiddlemanID != nil {
		v.Middleman = &UserRef{UserID: *o.MiddlemanID}
	}
	return v
}

// Profile projects a user profile for the requester. Only admins see the
// contact handle; a user sees their own handle but never any contact handle.
func Profile(u *domain.User, requester guard.Principal) UserRef {
	ref := UserRef{UserID: u.UserID}
	switch {
	case requester.Role == constants.RoleAdmin:
		ref.Handle = u.Handle
		ref.ContactHandle = u.ContactHandle
	case requester.UserID == u.UserID:
		ref.Handle = u.Handle
	}
	return ref
}

// Seller reduces a seller to aggregate reputation for public browsing.
func Seller(u *domain.User) SellerPublic {
	return SellerPublic{
		SellerID:       u.UserID,
		DealsCompleted: u.DealsCompleted,
		RatingCount:    u.RatingCount,
		RatingAvg:      u.RatingAvg(),
	}
}

// Listing projects a listing with its seller reduced to aggregates.
func Listing(l *domain.Listing, seller *domain.User) ListingPublic {
	v := ListingPublic{
		ListingID:   l.ListingID,
		Title:       l.Title,
		Description: l.Description,
		UnitPrice:   l.UnitPrice,
		Stock:       l.Stock,
		Status:      l.Status,
	}
	if seller != nil {
		v.Seller = Seller(seller)
	} else {
		v.Seller = SellerPublic{SellerID: l.SellerID}
	}
	return v
}
