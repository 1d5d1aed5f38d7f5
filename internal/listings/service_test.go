package listings

import (
	"context"
	"fmt"
	"testing"

	"middlemarket-backend/internal/constants"
	"middlemarket-backend/internal/domain"
	"middlemarket-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var seq int

func newUser(t *testing.T, db *gorm.DB, role string) *domain.User {
	seq++
	u := &domain.User{
		Handle:       fmt.Sprintf("%s%d", role, seq),
		Email:        fmt.Sprintf("%s%d@test.local", role, seq),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func setupListingTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Listing{}, &domain.Order{}))
	return &Service{DB: db}
}

func TestCreateListing(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	ctx := context.Background()

	listing, err := s.Create(ctx, seller.UserID, CreateInput{
		Title: "  Rare skin  ", Description: "mint", UnitPrice: 25, Stock: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Rare skin", listing.Title)
	assert.Equal(t, domain.ListingActive, listing.Status)

	_, err = s.Create(ctx, seller.UserID, CreateInput{Title: "  ", UnitPrice: 25, Stock: 4})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = s.Create(ctx, seller.UserID, CreateInput{Title: "x", UnitPrice: 0, Stock: 4})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = s.Create(ctx, seller.UserID, CreateInput{Title: "x", UnitPrice: 25, Stock: 0})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	// A plain user cannot create listings.
	buyer := newUser(t, s.DB, constants.RoleUser)
	_, err = s.Create(ctx, buyer.UserID, CreateInput{Title: "x", UnitPrice: 25, Stock: 4})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUpdateListing_OwnershipAndRestock(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	other := newUser(t, s.DB, constants.RoleSeller)
	admin := newUser(t, s.DB, constants.RoleAdmin)
	ctx := context.Background()

	listing, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Item", UnitPrice: 10, Stock: 2})
	require.NoError(t, err)

	_, err = s.Update(ctx, other.UserID, listing.ListingID, UpdateInput{Title: strptr("hijack")})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// Draining stock to zero marks the listing sold; restocking reopens it.
	updated, err := s.Update(ctx, seller.UserID, listing.ListingID, UpdateInput{Stock: intptr(0)})
	require.NoError(t, err)
	assert.Equal(t, domain.ListingSold, updated.Status)

	updated, err = s.Update(ctx, admin.UserID, listing.ListingID, UpdateInput{Stock: intptr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Stock)
	assert.Equal(t, domain.ListingActive, updated.Status)

	_, err = s.Update(ctx, seller.UserID, listing.ListingID, UpdateInput{})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = s.Update(ctx, seller.UserID, listing.ListingID, UpdateInput{Stock: intptr(-1)})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestUpdateListing_BlockedByActiveOrders(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	buyer := newUser(t, s.DB, constants.RoleUser)
	ctx := context.Background()

	listing, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Item", UnitPrice: 10, Stock: 5})
	require.NoError(t, err)
	require.NoError(t, s.DB.Create(&domain.Order{
		BuyerID: buyer.UserID, SellerID: seller.UserID, ListingID: listing.ListingID,
		Quantity: 1, UnitPrice: 10, TotalPrice: 10, Status: domain.OrderPaid,
	}).Error)

	_, err = s.Update(ctx, seller.UserID, listing.ListingID, UpdateInput{Stock: intptr(9)})
	assert.Equal(t, apperr.CodeActiveOrders, apperr.CodeOf(err))
	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingPaused)
	assert.Equal(t, apperr.CodeActiveOrders, apperr.CodeOf(err))

	// Terminal orders release the guard.
	require.NoError(t, s.DB.Model(&domain.Order{}).
		Where("listing_id = ?", listing.ListingID).
		Update("status", domain.OrderCompleted).Error)
	_, err = s.Update(ctx, seller.UserID, listing.ListingID, UpdateInput{Stock: intptr(9)})
	require.NoError(t, err)
}

func TestSetStatus(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	admin := newUser(t, s.DB, constants.RoleAdmin)
	ctx := context.Background()

	listing, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Item", UnitPrice: 10, Stock: 5})
	require.NoError(t, err)

	// sold is never a direct target, and unknown statuses are rejected.
	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingSold)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, "archived")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	paused, err := s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingPaused)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingPaused, paused.Status)

	// Disabling is admin-only.
	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingDisabledByAdmin)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	disabled, err := s.SetStatus(ctx, admin.UserID, listing.ListingID, domain.ListingDisabledByAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.ListingDisabledByAdmin, disabled.Status)

	// A disabled listing is immutable for its seller; admins can still restore it.
	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingActive)
	assert.Equal(t, apperr.CodeNotAvailable, apperr.CodeOf(err))
	_, err = s.SetStatus(ctx, admin.UserID, listing.ListingID, domain.ListingActive)
	require.NoError(t, err)
}

func TestSetStatus_ReactivateNeedsStock(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	ctx := context.Background()

	listing, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Item", UnitPrice: 10, Stock: 1})
	require.NoError(t, err)
	require.NoError(t, s.DB.Model(&domain.Listing{}).
		Where("listing_id = ?", listing.ListingID).
		Updates(map[string]interface{}{"stock": 0, "status": domain.ListingPaused}).Error)

	_, err = s.SetStatus(ctx, seller.UserID, listing.ListingID, domain.ListingActive)
	assert.Equal(t, apperr.CodeInsufficientStock, apperr.CodeOf(err))
}

func TestBrowse_ActiveOnlyWithSellerAggregates(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	require.NoError(t, s.DB.Model(&domain.User{}).
		Where("user_id = ?", seller.UserID).
		Updates(map[string]interface{}{"deals_completed": 7, "rating_count": 2, "rating_sum": 9.0}).Error)
	ctx := context.Background()

	active, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Visible", UnitPrice: 10, Stock: 1})
	require.NoError(t, err)
	paused, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Hidden", UnitPrice: 10, Stock: 1})
	require.NoError(t, err)
	_, err = s.SetStatus(ctx, seller.UserID, paused.ListingID, domain.ListingPaused)
	require.NoError(t, err)

	out, err := s.Browse(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, active.ListingID, out[0].ListingID)
	assert.Equal(t, seller.UserID, out[0].Seller.SellerID)
	assert.Equal(t, 7, out[0].Seller.DealsCompleted)
	assert.Equal(t, 4.5, out[0].Seller.RatingAvg)
}

func TestListMineAndGet(t *testing.T) {
	s := setupListingTest(t)
	seller := newUser(t, s.DB, constants.RoleSeller)
	other := newUser(t, s.DB, constants.RoleSeller)
	ctx := context.Background()

	mineListing, err := s.Create(ctx, seller.UserID, CreateInput{Title: "Mine", UnitPrice: 10, Stock: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, other.UserID, CreateInput{Title: "Theirs", UnitPrice: 10, Stock: 1})
	require.NoError(t, err)

	mine, err := s.ListMine(ctx, seller.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, mineListing.ListingID, mine[0].ListingID)

	got, err := s.Get(ctx, mineListing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Title)
	_, err = s.Get(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }
