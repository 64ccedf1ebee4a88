package utils

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Fee       FeeConfig
	Checkout  CheckoutConfig
	Telegram  TelegramConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	CacheTTLMinutes int
}

type SessionConfig struct {
	ExpiryHours int
}

// FeeConfig holds the pricing knobs shared by the fee calculator and the
// payment orchestrator.
type FeeConfig struct {
	FineMultiplier decimal.Decimal
	Currency       string
}

type CheckoutConfig struct {
	APIKey  string
	BaseURL string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
}

type SchedulerConfig struct {
	OverdueScan      string
	PaymentReconcile string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "library-service")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("APP_BASE_URL", "http://localhost:8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SESSION_CACHE_TTL_MINUTES", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("FINE_MULTIPLIER", "2")
	viper.SetDefault("CURRENCY", "usd")
	viper.SetDefault("PROVIDER_BASE_URL", "https://api.stripe.com")
	viper.SetDefault("BOT_BASE_URL", "https://api.telegram.org")
	viper.SetDefault("OVERDUE_SCAN_SCHEDULE", "0 9 * * *")
	viper.SetDefault("PAYMENT_RECONCILE_SCHEDULE", "@every 1m")

	// .env is optional, the environment always wins
	if err := viper.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	viper.AutomaticEnv()

	fineMultiplier, err := decimal.NewFromString(viper.GetString("FINE_MULTIPLIER"))
	if err != nil {
		return nil, fmt.Errorf("invalid FINE_MULTIPLIER: %w", err)
	}
	if !fineMultiplier.IsPositive() {
		return nil, fmt.Errorf("invalid FINE_MULTIPLIER: must be positive, got %s", fineMultiplier)
	}

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
			BaseURL: viper.GetString("APP_BASE_URL"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Addr:            viper.GetString("REDIS_ADDR"),
			Password:        viper.GetString("REDIS_PASSWORD"),
			DB:              viper.GetInt("REDIS_DB"),
			CacheTTLMinutes: viper.GetInt("SESSION_CACHE_TTL_MINUTES"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
		},
		Fee: FeeConfig{
			FineMultiplier: fineMultiplier,
			Currency:       viper.GetString("CURRENCY"),
		},
		Checkout: CheckoutConfig{
			APIKey:  viper.GetString("PROVIDER_API_KEY"),
			BaseURL: viper.GetString("PROVIDER_BASE_URL"),
		},
		Telegram: TelegramConfig{
			BotToken: viper.GetString("BOT_TOKEN"),
			ChatID:   viper.GetString("CHAT_ID"),
			BaseURL:  viper.GetString("BOT_BASE_URL"),
		},
		Scheduler: SchedulerConfig{
			OverdueScan:      viper.GetString("OVERDUE_SCAN_SCHEDULE"),
			PaymentReconcile: viper.GetString("PAYMENT_RECONCILE_SCHEDULE"),
		},
	}

	return config, nil
}
