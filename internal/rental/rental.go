// Package rental manages the time-boxed right of an approved product to be
// customer-visible. Activation extends rent_expires_at and flips is_active;
// a periodic sweep turns expired products off again.
package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
)

const rentMonth = 30 * 24 * time.Hour

type Lifecycle struct {
	db       *gorm.DB
	settings *platform.Settings
	log      *zap.Logger
}

func NewLifecycle(db *gorm.DB, settings *platform.Settings, log *zap.Logger) *Lifecycle {
	return &Lifecycle{db: db, settings: settings, log: log}
}

// Activate starts or extends the rent window of an approved product and
// makes it active. Months must be at least the platform minimum. Extension
// is from the current expiry when that is still in the future, so renewing
// early never loses paid days.
func (l *Lifecycle) Activate(ctx context.Context, productID uint, months int) (*models.Product, error) {
	var product *models.Product
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := l.ActivateTx(tx, productID, months)
		product = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ActivateTx is Activate inside an already-open database transaction, used
// by payment capture so activation commits together with the money record.
// All reads go through tx; reaching back to the pool while the transaction
// holds a connection can deadlock it.
func (l *Lifecycle) ActivateTx(tx *gorm.DB, productID uint, months int) (*models.Product, error) {
	minMonths, err := l.settings.IntTx(tx, platform.KeyMinRentMonths)
	if err != nil {
		return nil, err
	}
	if months < minMonths {
		return nil, fmt.Errorf("rent period %d months below minimum %d: %w", months, minMonths, apperr.ErrValidation)
	}

	var product models.Product
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if product.ModerationStatus != models.ModerationApproved {
		return nil, fmt.Errorf("product %d: %w", productID, apperr.ErrNotApproved)
	}

	now := time.Now().UTC()
	base := now
	if product.RentExpiresAt != nil && product.RentExpiresAt.After(now) {
		base = *product.RentExpiresAt
	}
	expires := base.Add(time.Duration(months) * rentMonth)

	if err := tx.Model(&product).Updates(map[string]any{
		"rent_expires_at": expires,
		"is_active":       true,
	}).Error; err != nil {
		return nil, err
	}
	product.RentExpiresAt = &expires
	product.IsActive = true

	l.log.Info("product rent activated",
		zap.Uint("product_id", productID),
		zap.Int("months", months),
		zap.Time("expires_at", expires),
	)
	return &product, nil
}

// Sweep deactivates every product whose paid window has passed. One
// statement, no ordering between rows, and rent_expires_at is left alone;
// running it twice in the same tick changes nothing further.
func (l *Lifecycle) Sweep(ctx context.Context) (int64, error) {
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ?", true).
		Where("rent_expires_at IS NOT NULL").
		Where("rent_expires_at <= ?", time.Now().UTC()).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		l.log.Info("rent expiry sweep", zap.Int64("deactivated", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
