package payments_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/payments"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/rental"
	"github.com/Farkhat1984/Trai-on/internal/testutil"
)

func newService(t *testing.T) (*gorm.DB, *payments.Service) {
	t.Helper()
	db := testutil.NewDB(t)
	log := testutil.Logger()
	settings := platform.NewSettings(db)
	svc := payments.NewService(
		db,
		ledger.New(db, log),
		rental.NewLifecycle(db, settings, log),
		settings,
		payments.SandboxProvider{},
		log,
	)
	return db, svc
}

func newUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: "user-" + t.Name() + "@example.com", Name: "Buyer"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newShopWithProduct(t *testing.T, db *gorm.DB, price string, visible bool) (*models.Shop, *models.Product) {
	t.Helper()
	shop := &models.Shop{Email: "shop-" + t.Name() + "@example.com", ShopName: "Atelier", OwnerName: "Owner"}
	require.NoError(t, db.Create(shop).Error)

	product := &models.Product{
		ShopID:           shop.ID,
		Name:             "Wool Coat",
		Price:            decimal.RequireFromString(price),
		Images:           datatypes.JSON(`["https://cdn.traion.local/p/1.png"]`),
		ModerationStatus: models.ModerationApproved,
	}
	if visible {
		expires := time.Now().UTC().Add(30 * 24 * time.Hour)
		product.RentExpiresAt = &expires
		product.IsActive = true
	}
	require.NoError(t, db.Create(product).Error)
	return shop, product
}

func userBalance(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u.Balance
}

func shopBalance(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	t.Helper()
	var s models.Shop
	require.NoError(t, db.First(&s, id).Error)
	return s.Balance
}

func TestTopUpCaptureIsIdempotent(t *testing.T) {
	db, svc := newService(t)
	user := newUser(t, db)
	ctx := context.Background()

	order, err := svc.InitiateTopUp(ctx, user.ID, decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	require.NotEmpty(t, order.Ref)
	require.NotEmpty(t, order.ApprovalURL)
	assert.True(t, userBalance(t, db, user.ID).IsZero(), "balance moved before capture")

	first, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.Equal(t, models.TxCompleted, first.Transaction.Status)
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("25.00")))

	second, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)
	assert.True(t, userBalance(t, db, user.ID).Equal(decimal.RequireFromString("25.00")),
		"replayed capture deposited again")

	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestInitiateTopUpValidation(t *testing.T) {
	db, svc := newService(t)
	user := newUser(t, db)
	ctx := context.Background()

	_, err := svc.InitiateTopUp(ctx, user.ID, decimal.Zero)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.InitiateTopUp(ctx, 9999, decimal.RequireFromString("5.00"))
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCaptureUnknownRef(t *testing.T) {
	_, svc := newService(t)

	_, err := svc.Capture(context.Background(), "ORD-nope")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRentCaptureActivatesProduct(t *testing.T) {
	db, svc := newService(t)
	shop, product := newShopWithProduct(t, db, "49.99", false)
	ctx := context.Background()

	order, err := svc.InitiateRent(ctx, shop.ID, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("20.00")))

	var before models.Product
	require.NoError(t, db.First(&before, product.ID).Error)
	assert.False(t, before.IsActive, "product active before capture")

	fulfillment, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.False(t, fulfillment.Replayed)

	var after models.Product
	require.NoError(t, db.First(&after, product.ID).Error)
	assert.True(t, after.IsActive)
	require.NotNil(t, after.RentExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(2*30*24*time.Hour), *after.RentExpiresAt, time.Minute)

	replay, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)

	var untouched models.Product
	require.NoError(t, db.First(&untouched, product.ID).Error)
	require.NotNil(t, untouched.RentExpiresAt)
	assert.WithinDuration(t, *after.RentExpiresAt, *untouched.RentExpiresAt, time.Second,
		"replayed capture extended the rent window")
}

func TestInitiateRentChecks(t *testing.T) {
	db, svc := newService(t)
	shop, product := newShopWithProduct(t, db, "49.99", false)
	ctx := context.Background()

	_, err := svc.InitiateRent(ctx, shop.ID, product.ID, 0)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.InitiateRent(ctx, shop.ID+1, product.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, db.Model(product).Update("moderation_status", models.ModerationPending).Error)
	_, err = svc.InitiateRent(ctx, shop.ID, product.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNotApproved)
}

func TestPurchaseCaptureSplitsCommission(t *testing.T) {
	db, svc := newService(t)
	shop, product := newShopWithProduct(t, db, "19.99", true)
	user := newUser(t, db)
	ctx := context.Background()

	order, err := svc.InitiatePurchase(ctx, user.ID, product.ID)
	require.NoError(t, err)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("19.99")))

	fulfillment, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.False(t, fulfillment.Replayed)

	// 10% of 19.99 rounds to 2.00; the shop keeps the remainder.
	assert.True(t, shopBalance(t, db, shop.ID).Equal(decimal.RequireFromString("17.99")),
		"shop got %s", shopBalance(t, db, shop.ID))

	var commission models.Transaction
	require.NoError(t, db.Where("shop_id = ? AND kind = ?", shop.ID, models.KindCommission).
		First(&commission).Error)
	assert.True(t, commission.Amount.Equal(decimal.RequireFromString("2.00")))
	assert.Equal(t, models.TxCompleted, commission.Status)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.EqualValues(t, 1, reloaded.PurchasesCount)

	replay, err := svc.Capture(ctx, order.Ref)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.True(t, shopBalance(t, db, shop.ID).Equal(decimal.RequireFromString("17.99")))

	require.NoError(t, db.First(&reloaded, product.ID).Error)
	assert.EqualValues(t, 1, reloaded.PurchasesCount, "replayed capture counted the sale twice")
}

func TestPurchaseSplitAlwaysSumsToGross(t *testing.T) {
	db, svc := newService(t)
	shop, product := newShopWithProduct(t, db, "0.05", true)
	user := newUser(t, db)
	ctx := context.Background()

	order, err := svc.InitiatePurchase(ctx, user.ID, product.ID)
	require.NoError(t, err)
	_, err = svc.Capture(ctx, order.Ref)
	require.NoError(t, err)

	// 10% of 0.05 rounds to 0.01 commission, 0.04 net.
	assert.True(t, shopBalance(t, db, shop.ID).Equal(decimal.RequireFromString("0.04")))

	var commission models.Transaction
	require.NoError(t, db.Where("shop_id = ? AND kind = ?", shop.ID, models.KindCommission).
		First(&commission).Error)
	assert.True(t, commission.Amount.Add(decimal.RequireFromString("0.04")).Equal(order.Amount))
}

func TestInitiatePurchaseRequiresVisibility(t *testing.T) {
	db, svc := newService(t)
	_, hidden := newShopWithProduct(t, db, "19.99", false)
	user := newUser(t, db)

	_, err := svc.InitiatePurchase(context.Background(), user.ID, hidden.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInitiatePurchaseExpiredRent(t *testing.T) {
	db, svc := newService(t)
	_, product := newShopWithProduct(t, db, "19.99", true)
	user := newUser(t, db)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(product).Update("rent_expires_at", past).Error)

	_, err := svc.InitiatePurchase(context.Background(), user.ID, product.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
