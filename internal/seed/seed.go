package seed

import (
	"context"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/Farkhat1984/Trai-on/configs"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
	"github.com/Farkhat1984/Trai-on/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@traion.local"
	adminPassword = "admin123"
	shopEmail     = "shop@traion.local"
	shopPassword  = "shop123"
)

// Run bootstraps the platform settings from config defaults and creates the
// initial admin. Idempotent: existing rows are left alone.
func Run() {
	db := store.DB
	ctx := context.Background()
	settings := platform.NewSettings(db)

	p := configs.AppConfig.Platform
	defaults := []struct{ key, value, desc string }{
		{platform.KeyGenerationPrice, p.GenerationPrice, "price of one fashion generation"},
		{platform.KeyTryOnPrice, p.TryOnPrice, "price of one try-on"},
		{platform.KeyFreeGenerations, itoa(p.FreeGenerations), "free generations for new users"},
		{platform.KeyFreeTryOns, itoa(p.FreeTryOns), "free try-ons for new users"},
		{platform.KeyRentPrice, p.RentPrice, "product rent price per month"},
		{platform.KeyMinRentMonths, itoa(p.MinRentMonths), "minimum rent period in months"},
		{platform.KeyCommissionRate, p.CommissionRate, "platform commission on purchases, percent"},
		{platform.KeyRefundDays, itoa(p.RefundDays), "refund request window in days"},
	}
	for _, d := range defaults {
		if err := settings.SeedDefault(ctx, d.key, d.value, d.desc); err != nil {
			logger.Log.Fatal("settings seed failed", zap.String("key", d.key), zap.Error(err))
		}
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		logger.Log.Fatal("seed check failed", zap.Error(err))
	}
	if count > 0 {
		logger.Log.Info("seed already applied, skipping")
		return
	}

	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}
	shopHash, err := bcrypt.GenerateFromPassword([]byte(shopPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash seed password", zap.Error(err))
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{
			Email:    adminEmail,
			Name:     "Platform Admin",
			Password: string(adminHash),
			Role:     models.RoleAdmin,
			Balance:  decimal.Zero,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		shop := models.Shop{
			Email:     shopEmail,
			ShopName:  "Demo Shop",
			OwnerName: "Demo Owner",
			Password:  string(shopHash),
			Balance:   decimal.Zero,
		}
		return tx.Create(&shop).Error
	})
	if err != nil {
		logger.Log.Fatal("seed failed", zap.Error(err))
	}
	logger.Log.Info("seeded platform settings, admin user and demo shop",
		zap.String("admin", adminEmail), zap.String("shop", shopEmail))
}

func itoa(n int) string { return strconv.Itoa(n) }
