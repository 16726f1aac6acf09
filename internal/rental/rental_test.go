package rental_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/rental"
	"github.com/Farkhat1984/Trai-on/internal/testutil"
)

const month = 30 * 24 * time.Hour

func newLifecycle(t *testing.T) (*gorm.DB, *rental.Lifecycle) {
	t.Helper()
	db := testutil.NewDB(t)
	return db, rental.NewLifecycle(db, platform.NewSettings(db), testutil.Logger())
}

func newProduct(t *testing.T, db *gorm.DB, status models.ModerationStatus) *models.Product {
	t.Helper()
	product := &models.Product{
		ShopID:           1,
		Name:             "Wool Coat",
		Price:            decimal.RequireFromString("49.99"),
		ModerationStatus: status,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestActivateStartsRentWindow(t *testing.T) {
	db, lc := newLifecycle(t)
	product := newProduct(t, db, models.ModerationApproved)

	activated, err := lc.Activate(context.Background(), product.ID, 2)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	require.NotNil(t, activated.RentExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(2*month), *activated.RentExpiresAt, time.Minute)
	assert.True(t, activated.Visible(time.Now().UTC()))
}

func TestActivateExtendsFromFutureExpiry(t *testing.T) {
	db, lc := newLifecycle(t)
	product := newProduct(t, db, models.ModerationApproved)

	current := time.Now().UTC().Add(10 * 24 * time.Hour)
	require.NoError(t, db.Model(product).Updates(map[string]any{
		"rent_expires_at": current,
		"is_active":       true,
	}).Error)

	activated, err := lc.Activate(context.Background(), product.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, activated.RentExpiresAt)
	assert.WithinDuration(t, current.Add(month), *activated.RentExpiresAt, time.Second,
		"early renewal lost paid days")
}

func TestActivateAfterLapseStartsFromNow(t *testing.T) {
	db, lc := newLifecycle(t)
	product := newProduct(t, db, models.ModerationApproved)

	past := time.Now().UTC().Add(-40 * 24 * time.Hour)
	require.NoError(t, db.Model(product).Update("rent_expires_at", past).Error)

	activated, err := lc.Activate(context.Background(), product.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, activated.RentExpiresAt)
	assert.WithinDuration(t, time.Now().UTC().Add(month), *activated.RentExpiresAt, time.Minute)
}

func TestActivateBelowMinimumMonths(t *testing.T) {
	db, lc := newLifecycle(t)
	product := newProduct(t, db, models.ModerationApproved)

	_, err := lc.Activate(context.Background(), product.ID, 0)
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestActivateRequiresApproval(t *testing.T) {
	db, lc := newLifecycle(t)
	pending := newProduct(t, db, models.ModerationPending)
	rejected := newProduct(t, db, models.ModerationRejected)
	ctx := context.Background()

	_, err := lc.Activate(ctx, pending.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNotApproved)

	_, err = lc.Activate(ctx, rejected.ID, 1)
	require.ErrorIs(t, err, apperr.ErrNotApproved)
}

func TestActivateUnknownProduct(t *testing.T) {
	_, lc := newLifecycle(t)

	_, err := lc.Activate(context.Background(), 9999, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSweepDeactivatesExpiredOnly(t *testing.T) {
	db, lc := newLifecycle(t)
	ctx := context.Background()

	expired := newProduct(t, db, models.ModerationApproved)
	expiredAt := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Model(expired).Updates(map[string]any{
		"rent_expires_at": expiredAt,
		"is_active":       true,
	}).Error)

	live := newProduct(t, db, models.ModerationApproved)
	require.NoError(t, db.Model(live).Updates(map[string]any{
		"rent_expires_at": time.Now().UTC().Add(time.Hour),
		"is_active":       true,
	}).Error)

	n, err := lc.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, expired.ID).Error)
	assert.False(t, reloaded.IsActive)
	require.NotNil(t, reloaded.RentExpiresAt)
	assert.WithinDuration(t, expiredAt, *reloaded.RentExpiresAt, time.Second,
		"sweep must not touch the expiry timestamp")

	reloaded = models.Product{}
	require.NoError(t, db.First(&reloaded, live.ID).Error)
	assert.True(t, reloaded.IsActive)
}

func TestSweepIsIdempotent(t *testing.T) {
	db, lc := newLifecycle(t)
	ctx := context.Background()

	expired := newProduct(t, db, models.ModerationApproved)
	require.NoError(t, db.Model(expired).Updates(map[string]any{
		"rent_expires_at": time.Now().UTC().Add(-time.Hour),
		"is_active":       true,
	}).Error)

	n, err := lc.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = lc.Sweep(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestSweepIgnoresNeverRentedProducts(t *testing.T) {
	db, lc := newLifecycle(t)
	newProduct(t, db, models.ModerationApproved)

	n, err := lc.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
