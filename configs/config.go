package configs

import (
	"errors"

	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Debug  bool `mapstructure:"debug"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	DB struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"db"`
	JWT struct {
		SECRET string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Payments struct {
		Mode string `mapstructure:"mode"` // sandbox | live
	} `mapstructure:"payments"`
	Rent struct {
		SweepSchedule string `mapstructure:"sweep-schedule"` // cron spec
	} `mapstructure:"rent"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	// Defaults used to seed the platform_settings table on first boot;
	// runtime reads always go through the settings store, not this struct.
	Platform struct {
		GenerationPrice string `mapstructure:"generation-price"`
		TryOnPrice      string `mapstructure:"try-on-price"`
		FreeGenerations int    `mapstructure:"free-generations"`
		FreeTryOns      int    `mapstructure:"free-try-ons"`
		RentPrice       string `mapstructure:"rent-price"`
		MinRentMonths   int    `mapstructure:"min-rent-months"`
		CommissionRate  string `mapstructure:"commission-rate"`
		RefundDays      int    `mapstructure:"refund-days"`
	} `mapstructure:"platform"`
}

var AppConfig Config

func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("payments.mode", "sandbox")
	viper.SetDefault("rent.sweep-schedule", "@hourly")
	viper.SetDefault("platform.generation-price", "1.00")
	viper.SetDefault("platform.try-on-price", "0.50")
	viper.SetDefault("platform.free-generations", 3)
	viper.SetDefault("platform.free-try-ons", 5)
	viper.SetDefault("platform.rent-price", "10.00")
	viper.SetDefault("platform.min-rent-months", 1)
	viper.SetDefault("platform.commission-rate", "10.0")
	viper.SetDefault("platform.refund-days", 14)

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if errors.As(err, &fileLookupError) {
			logger.Log.Fatal("config file not found", zap.Error(err))
		}
		logger.Log.Fatal("failed to read config", zap.Error(err))
	}

	viper.Unmarshal(&AppConfig)
}
