// Package testutil provides the shared in-memory database used by the
// service test suites.
package testutil

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Farkhat1984/Trai-on/internal/models"
	"github.com/Farkhat1984/Trai-on/internal/platform"
)

// NewDB opens an isolated in-memory database with the full schema and the
// default platform settings. Connections are capped at one so every query
// sees the same database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&models.User{},
		&models.Shop{},
		&models.Product{},
		&models.Transaction{},
		&models.ModerationEntry{},
		&models.Refund{},
		&models.Generation{},
		&models.PlatformSetting{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	settings := platform.NewSettings(db)
	defaults := map[string]string{
		platform.KeyGenerationPrice: "1.00",
		platform.KeyTryOnPrice:      "0.50",
		platform.KeyFreeGenerations: "3",
		platform.KeyFreeTryOns:      "5",
		platform.KeyRentPrice:       "10.00",
		platform.KeyMinRentMonths:   "1",
		platform.KeyCommissionRate:  "10.0",
		platform.KeyRefundDays:      "14",
	}
	for key, value := range defaults {
		if err := settings.SeedDefault(context.Background(), key, value, ""); err != nil {
			t.Fatalf("seed setting %s: %v", key, err)
		}
	}

	return db
}

// Logger returns a silent logger for service construction in tests.
func Logger() *zap.Logger { return zap.NewNop() }
