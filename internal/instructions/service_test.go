package instructions

import (
	"context"
	"fmt"
	"strings"
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

type instructionFixture struct {
	svc       *Service
	buyer     *domain.User
	seller    *domain.User
	middleman *domain.User
	admin     *domain.User
	order     *domain.Order
}

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

func setupInstructionTest(t *testing.T) *instructionFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.User{}, &domain.Order{}, &domain.MiddlemanInstruction{}, &domain.OrderEvent{},
	))

	f := &instructionFixture{
		svc:       &Service{DB: db},
		buyer:     newUser(t, db, constants.RoleUser),
		seller:    newUser(t, db, constants.RoleSeller),
		middleman: newUser(t, db, constants.RoleMiddleman),
		admin:     newUser(t, db, constants.RoleAdmin),
	}
	f.order = &domain.Order{
		BuyerID:     f.buyer.UserID,
		SellerID:    f.seller.UserID,
		ListingID:   uuid.New(),
		MiddlemanID: &f.middleman.UserID,
		Quantity:    1,
		UnitPrice:   10,
		TotalPrice:  10,
		Status:      domain.OrderPendingPayment,
	}
	require.NoError(t, db.Create(f.order).Error)
	return f
}

func TestCreateInstruction(t *testing.T) {
	f := setupInstructionTest(t)
	ctx := context.Background()

	ins, err := f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID:      f.order.OrderID,
		TargetRole:   constants.RoleUser,
		TargetUserID: f.buyer.UserID,
		Message:      "Transfer the payment to escrow",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InstructionPending, ins.Status)
	assert.Equal(t, f.middleman.UserID, ins.CreatedBy)

	var events int64
	require.NoError(t, f.svc.DB.Model(&domain.OrderEvent{}).
		Where("order_id = ? AND event_type = ?", f.order.OrderID, domain.OrderEventInstructionSent).
		Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

func TestCreateInstruction_Guards(t *testing.T) {
	f := setupInstructionTest(t)
	ctx := context.Background()

	// Empty and oversized messages are rejected.
	_, err := f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleUser, TargetUserID: f.buyer.UserID,
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleUser, TargetUserID: f.buyer.UserID,
		Message: strings.Repeat("a", domain.MaxInstructionMessageLen+1),
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	// Only the assigned middleman or an admin may instruct.
	_, err = f.svc.Create(ctx, f.seller.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleUser, TargetUserID: f.buyer.UserID,
		Message: "hi",
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// Target id must match the role named on the order.
	_, err = f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleSeller, TargetUserID: f.buyer.UserID,
		Message: "hi",
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleMiddleman, TargetUserID: f.middleman.UserID,
		Message: "hi",
	})
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	// Terminal orders accept no instructions.
	require.NoError(t, f.svc.DB.Model(&domain.Order{}).
		Where("order_id = ?", f.order.OrderID).
		Update("status", domain.OrderCompleted).Error)
	_, err = f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleUser, TargetUserID: f.buyer.UserID,
		Message: "hi",
	})
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}

func TestCreateInstruction_AdminMayInstruct(t *testing.T) {
	f := setupInstructionTest(t)
	_, err := f.svc.Create(context.Background(), f.admin.UserID, CreateInput{
		OrderID:      f.order.OrderID,
		TargetRole:   constants.RoleSeller,
		TargetUserID: f.seller.UserID,
		Message:      "Hand the item to the middleman",
	})
	require.NoError(t, err)
}

func TestAcknowledge(t *testing.T) {
	f := setupInstructionTest(t)
	ctx := context.Background()
	ins, err := f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID:      f.order.OrderID,
		TargetRole:   constants.RoleUser,
		TargetUserID: f.buyer.UserID,
		Message:      "Pay now",
	})
	require.NoError(t, err)

	// Only the addressed party may acknowledge.
	_, err = f.svc.Acknowledge(ctx, f.seller.UserID, ins.InstructionID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.svc.Acknowledge(ctx, f.middleman.UserID, ins.InstructionID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	acked, err := f.svc.Acknowledge(ctx, f.buyer.UserID, ins.InstructionID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstructionAcknowledged, acked.Status)
	assert.NotNil(t, acked.AcknowledgedAt)

	// Acknowledging twice stays acknowledged.
	again, err := f.svc.Acknowledge(ctx, f.buyer.UserID, ins.InstructionID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstructionAcknowledged, again.Status)

	_, err = f.svc.Acknowledge(ctx, f.buyer.UserID, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListForOrder_Visibility(t *testing.T) {
	f := setupInstructionTest(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleUser, TargetUserID: f.buyer.UserID,
		Message: "For the buyer",
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.middleman.UserID, CreateInput{
		OrderID: f.order.OrderID, TargetRole: constants.RoleSeller, TargetUserID: f.seller.UserID,
		Message: "For the seller",
	})
	require.NoError(t, err)

	all, err := f.svc.ListForOrder(ctx, f.middleman.UserID, f.order.OrderID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	all, err = f.svc.ListForOrder(ctx, f.admin.UserID, f.order.OrderID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// A party only sees what is addressed to them.
	mine, err := f.svc.ListForOrder(ctx, f.buyer.UserID, f.order.OrderID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.buyer.UserID, mine[0].TargetUserID)

	stranger := newUser(t, f.svc.DB, constants.RoleUser)
	_, err = f.svc.ListForOrder(ctx, stranger.UserID, f.order.OrderID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
