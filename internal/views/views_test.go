package views

import (
	"testing"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/guard"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func fixtureOrder() (*domain.Order, *domain.User, *domain.User, *domain.User) {
	buyerContact := "@buyer_tg"
	sellerContact := "@seller_tg"
	buyer := &domain.User{UserID: uuid.New(), Handle: "buyer1", ContactHandle: &buyerContact, Role: constants.RoleUser}
	seller := &domain.User{UserID: uuid.New(), Handle: "seller1", ContactHandle: &sellerContact, Role: constants.RoleSeller}
	middleman := &domain.User{UserID: uuid.New(), Handle: "mm1", Role: constants.RoleMiddleman}
	order := &domain.Order{
		OrderID:     uuid.New(),
		BuyerID:     buyer.UserID,
		SellerID:    seller.UserID,
		ListingID:   uuid.New(),
		MiddlemanID: &middleman.UserID,
		Quantity:    2,
		UnitPrice:   50,
		TotalPrice:  100,
		Status:      domain.OrderPaid,
	}
	return order, buyer, seller, middleman
}

func TestOrderMasking_Buyer(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	v := Order(order, buyer, seller, middleman, guard.Principal{UserID: buyer.UserID, Role: constants.RoleUser})

	assert.Equal(t, "buyer1", v.Buyer.Handle)
	assert.Nil(t, v.Buyer.ContactHandle)
	// Counterparty is reduced to the bare id.
	assert.Equal(t, seller.UserID, v.Seller.UserID)
	assert.Empty(t, v.Seller.Handle)
	assert.Nil(t, v.Seller.ContactHandle)
}

func TestOrderMasking_Middleman(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	v := Order(order, buyer, seller, middleman, guard.Principal{UserID: middleman.UserID, Role: constants.RoleMiddleman})

	assert.Equal(t, "buyer1", v.Buyer.Handle)
	assert.Equal(t, "seller1", v.Seller.Handle)
	// The assigned middleman gets contact handles for both parties, but the
	// parties never get the middleman's.
	assert.NotNil(t, v.Buyer.ContactHandle)
	assert.NotNil(t, v.Seller.ContactHandle)
	assert.Equal(t, "mm1", v.Middleman.Handle)
}

func TestOrderMasking_UnassignedMiddlemanGetsNothing(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	stranger := uuid.New()
	v := Order(order, buyer, seller, middleman, guard.Principal{UserID: stranger, Role: constants.RoleMiddleman})

	assert.Empty(t, v.Buyer.Handle)
	assert.Empty(t, v.Seller.Handle)
	assert.Nil(t, v.Buyer.ContactHandle)
	assert.Nil(t, v.Seller.ContactHandle)
}

func TestOrderMasking_Admin(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	v := Order(order, buyer, seller, middleman, guard.Principal{UserID: uuid.New(), Role: constants.RoleAdmin})

	assert.Equal(t, "buyer1", v.Buyer.Handle)
	assert.Equal(t, "seller1", v.Seller.Handle)
	assert.NotNil(t, v.Buyer.ContactHandle)
	assert.NotNil(t, v.Seller.ContactHandle)
	assert.Equal(t, "mm1", v.Middleman.Handle)
}

func TestOrderMasking_SettlementVisibility(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	commission := 10.0
	payout := 90.0
	order.CommissionAmount = &commission
	order.SellerPayout = &payout

	v := Order(order, buyer, seller, middleman, guard.Principal{UserID: seller.UserID, Role: constants.RoleSeller})
	assert.NotNil(t, v.CommissionAmount)
	assert.NotNil(t, v.SellerPayout)

	v = Order(order, buyer, seller, middleman, guard.Principal{UserID: uuid.New(), Role: constants.RoleSeller})
	assert.Nil(t, v.CommissionAmount)
	assert.Nil(t, v.SellerPayout)
}

func TestOrder_MiddlemanIDWithoutRow(t *testing.T) {
	order, buyer, seller, middleman := fixtureOrder()
	v := Order(order, buyer, seller, nil, guard.Principal{UserID: buyer.UserID, Role: constants.RoleUser})
	// The id survives even when the user row was not loaded.
	assert.Equal(t, middleman.UserID, v.Middleman.UserID)
	assert.Empty(t, v.Middleman.Handle)
}

func TestProfileMasking(t *testing.T) {
	contact := "@tg"
	u := &domain.User{UserID: uuid.New(), Handle: "someone", ContactHandle: &contact, Role: constants.RoleUser}

	v := Profile(u, guard.Principal{UserID: u.UserID, Role: constants.RoleUser})
	assert.Equal(t, "someone", v.Handle)
	assert.Nil(t, v.ContactHandle)

	v = Profile(u, guard.Principal{UserID: uuid.New(), Role: constants.RoleUser})
	assert.Empty(t, v.Handle)
	assert.Nil(t, v.ContactHandle)

	v = Profile(u, guard.Principal{UserID: uuid.New(), Role: constants.RoleAdmin})
	assert.Equal(t, "someone", v.Handle)
	assert.NotNil(t, v.ContactHandle)
}

func TestSellerAggregates(t *testing.T) {
	u := &domain.User{UserID: uuid.New(), Handle: "seller", DealsCompleted: 12, RatingCount: 4, RatingSum: 18}
	v := Seller(u)
	assert.Equal(t, 12, v.DealsCompleted)
	assert.Equal(t, 4.5, v.RatingAvg)

	unrated := &domain.User{UserID: uuid.New()}
	assert.Equal(t, 0.0, Seller(unrated).RatingAvg)
}

func TestListingProjection(t *testing.T) {
	seller := &domain.User{UserID: uuid.New(), Handle: "seller", DealsCompleted: 3}
	l := &domain.Listing{ListingID: uuid.New(), SellerID: seller.UserID, Title: "Item", UnitPrice: 9.5, Stock: 2, Status: domain.ListingActive}

	v := Listing(l, seller)
	assert.Equal(t, 3, v.Seller.DealsCompleted)

	// Missing seller row still yields the id.
	v = Listing(l, nil)
	assert.Equal(t, seller.UserID, v.Seller.SellerID)
	assert.Equal(t, 0, v.Seller.DealsCompleted)
}
