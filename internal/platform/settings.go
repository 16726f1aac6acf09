// Package platform is the runtime configuration store. Prices, quotas and
// rates are rows in platform_settings so admins can change them without a
// deploy; every getter reads the current row, never a cached snapshot.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Farkhat1984/Trai-on/internal/apperr"
	"github.com/Farkhat1984/Trai-on/internal/models"
)

const (
	KeyGenerationPrice = "user_generation_price"
	KeyTryOnPrice      = "user_try_on_price"
	KeyFreeGenerations = "user_free_generations"
	KeyFreeTryOns      = "user_free_try_ons"
	KeyRentPrice       = "shop_product_rent_price"
	KeyMinRentMonths   = "shop_min_rent_months"
	KeyCommissionRate  = "shop_commission_rate"
	KeyRefundDays      = "refund_period_days"
)

type Settings struct {
	db *gorm.DB
}

func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

func (s *Settings) Get(ctx context.Context, key string) (string, error) {
	return s.get(s.db.WithContext(ctx), key)
}

// GetTx reads a setting through an already-open transaction. Callers holding
// row locks must use the Tx variants so the read never waits on a second
// pool connection.
func (s *Settings) GetTx(tx *gorm.DB, key string) (string, error) {
	return s.get(tx, key)
}

func (s *Settings) get(db *gorm.DB, key string) (string, error) {
	var row models.PlatformSetting
	err := db.Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("setting %q: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// Price returns a monetary setting as a two-decimal value.
func (s *Settings) Price(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return parsePrice(key, raw)
}

func (s *Settings) Int(ctx context.Context, key string) (int, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return parseInt(key, raw)
}

// IntTx is Int through an already-open transaction.
func (s *Settings) IntTx(tx *gorm.DB, key string) (int, error) {
	raw, err := s.GetTx(tx, key)
	if err != nil {
		return 0, err
	}
	return parseInt(key, raw)
}

// Rate returns a percentage setting (e.g. "10.0" meaning 10%).
func (s *Settings) Rate(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return parseRate(key, raw)
}

// RateTx is Rate through an already-open transaction.
func (s *Settings) RateTx(tx *gorm.DB, key string) (decimal.Decimal, error) {
	raw, err := s.GetTx(tx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return parseRate(key, raw)
}

func parsePrice(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %q is not a decimal: %w", key, apperr.ErrValidation)
	}
	return d.Round(2), nil
}

func parseInt(key, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("setting %q is not an integer: %w", key, apperr.ErrValidation)
	}
	return n, nil
}

func parseRate(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %q is not a rate: %w", key, apperr.ErrValidation)
	}
	return d, nil
}

func (s *Settings) Set(ctx context.Context, key, value, description string) error {
	row := models.PlatformSetting{Key: key, Value: value, Description: description}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
		}).
		Create(&row).Error
}

func (s *Settings) All(ctx context.Context) ([]models.PlatformSetting, error) {
	var rows []models.PlatformSetting
	err := s.db.WithContext(ctx).Order("key asc").Find(&rows).Error
	return rows, err
}

// SeedDefault inserts a setting only when the key does not exist yet, so
// admin-edited values survive restarts.
func (s *Settings) SeedDefault(ctx context.Context, key, value, description string) error {
	row := models.PlatformSetting{Key: key, Value: value, Description: description}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&row).Error
}
