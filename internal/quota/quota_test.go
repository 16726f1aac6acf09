package quota_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/ledger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/quota"
	"github.com/Farkhat1984/Trai-on/internal/testutil"
)

func newGate(t *testing.T) (*gorm.DB, *quota.Gate) {
	t.Helper()
	db := testutil.NewDB(t)
	log := testutil.Logger()
	gate := quota.NewGate(db, ledger.New(db, log), platform.NewSettings(db), log)
	return db, gate
}

func newUser(t *testing.T, db *gorm.DB, balance string, freeGens, freeTryOns int) *models.User {
	t.Helper()
	user := &models.User{
		Email:               "user-" + t.Name() + "@example.com",
		Name:                "Test User",
		Balance:             decimal.RequireFromString(balance),
		FreeGenerationsLeft: freeGens,
		FreeTryOnsLeft:      freeTryOns,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestFreeQuotaConsumedBeforeBalance(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "5.00", 3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := gate.Charge(ctx, user.ID, quota.WorkGeneration)
		require.NoError(t, err)
		assert.True(t, out.UsedFreeQuota)
		assert.True(t, out.Cost.IsZero())
	}

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 0, reloaded.FreeGenerationsLeft)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("5.00")))

	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n, "free uses must not write transaction rows")

	out, err := gate.Charge(ctx, user.ID, quota.WorkGeneration)
	require.NoError(t, err)
	assert.False(t, out.UsedFreeQuota)
	assert.True(t, out.Cost.Equal(decimal.RequireFromString("1.00")))

	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("4.00")))
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestTryOnUsesItsOwnPriceAndCounter(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "2.00", 3, 1)
	ctx := context.Background()

	out, err := gate.Charge(ctx, user.ID, quota.WorkTryOn)
	require.NoError(t, err)
	assert.True(t, out.UsedFreeQuota)

	out, err = gate.Charge(ctx, user.ID, quota.WorkTryOn)
	require.NoError(t, err)
	assert.False(t, out.UsedFreeQuota)
	assert.True(t, out.Cost.Equal(decimal.RequireFromString("0.50")))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 3, reloaded.FreeGenerationsLeft, "generation counter touched by a try-on")
	assert.Equal(t, 0, reloaded.FreeTryOnsLeft)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("1.50")))
}

func TestChargeInsufficientFunds(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "0.50", 0, 0)

	_, err := gate.Charge(context.Background(), user.ID, quota.WorkGeneration)
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("0.50")))

	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestChargeReadsCurrentPrice(t *testing.T) {
	db, gate := newGate(t)
	settings := platform.NewSettings(db)
	user := newUser(t, db, "10.00", 0, 0)
	ctx := context.Background()

	require.NoError(t, settings.Set(ctx, platform.KeyGenerationPrice, "2.50", ""))

	out, err := gate.Charge(ctx, user.ID, quota.WorkGeneration)
	require.NoError(t, err)
	assert.True(t, out.Cost.Equal(decimal.RequireFromString("2.50")))
}

func TestReverseRestoresFreeUse(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "0.00", 1, 0)
	ctx := context.Background()

	out, err := gate.Charge(ctx, user.ID, quota.WorkGeneration)
	require.NoError(t, err)
	require.True(t, out.UsedFreeQuota)

	require.NoError(t, gate.Reverse(ctx, user.ID, quota.WorkGeneration, out))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 1, reloaded.FreeGenerationsLeft)
}

func TestReverseCreditsPaidCharge(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "3.00", 0, 0)
	ctx := context.Background()

	out, err := gate.Charge(ctx, user.ID, quota.WorkGeneration)
	require.NoError(t, err)
	require.False(t, out.UsedFreeQuota)

	require.NoError(t, gate.Reverse(ctx, user.ID, quota.WorkGeneration, out))

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.Balance.Equal(decimal.RequireFromString("3.00")))

	var refunds int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("user_id = ? AND kind = ?", user.ID, models.KindRefund).
		Count(&refunds).Error)
	assert.EqualValues(t, 1, refunds)
}

func TestChargeUnknownWorkKind(t *testing.T) {
	db, gate := newGate(t)
	user := newUser(t, db, "1.00", 0, 0)

	_, err := gate.Charge(context.Background(), user.ID, quota.WorkKind("mystery"))
	require.ErrorIs(t, err, apperr.ErrValidation)
}
