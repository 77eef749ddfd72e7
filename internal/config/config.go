package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/documents"
	"github.com/Freeeeeet/telemed_bot/internal/lifecycle"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string

	HTTPAddr       string
	WebhookSecret  string
	PublicURL      string
	PaymentURL     string
	MigrationsPath string

	DocumentLinkSecret  string
	DocumentStoreURL    string
	DocumentLinkTTL     time.Duration
	DocumentViewRetries int

	PaymentGracePeriod time.Duration
	CallWindowLead     time.Duration
	NoShowAfter        time.Duration
	SweepInterval      time.Duration
	BookingHorizonDays int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	defaults := lifecycle.DefaultTiming()
	cfg := &Config{
		TelegramToken:      getenv("TELEGRAM_TOKEN"),
		DBDSN:              getenv("DB_DSN"),
		Environment:        env("ENV", "development"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		WebhookSecret:      getenv("WEBHOOK_SECRET"),
		PublicURL:          env("PUBLIC_URL", "http://localhost:8080"),
		PaymentURL:         getenv("PAYMENT_URL"),
		MigrationsPath:     env("MIGRATIONS_PATH", "migrations"),
		DocumentLinkSecret: getenv("DOCUMENT_LINK_SECRET"),
		DocumentStoreURL:   getenv("DOCUMENT_STORE_URL"),
	}

	var err error
	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"PAYMENT_GRACE_PERIOD", defaults.GracePeriod, &cfg.PaymentGracePeriod},
		{"CALL_WINDOW_LEAD", defaults.CallWindowLead, &cfg.CallWindowLead},
		{"NO_SHOW_AFTER", defaults.NoShowAfter, &cfg.NoShowAfter},
		{"DOCUMENT_LINK_TTL", documents.DefaultTTL, &cfg.DocumentLinkTTL},
		{"SWEEP_INTERVAL", time.Minute, &cfg.SweepInterval},
	}
	for _, d := range durations {
		if *d.dest, err = parseDuration(getenv(d.key), d.def); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	if cfg.DocumentViewRetries, err = parseInt(getenv("DOCUMENT_VIEW_RETRIES"), 2); err != nil {
		return nil, fmt.Errorf("DOCUMENT_VIEW_RETRIES: %w", err)
	}
	if cfg.BookingHorizonDays, err = parseInt(getenv("BOOKING_HORIZON_DAYS"), 14); err != nil {
		return nil, fmt.Errorf("BOOKING_HORIZON_DAYS: %w", err)
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.DocumentLinkTTL <= 0 {
		return nil, fmt.Errorf("DOCUMENT_LINK_TTL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.BookingHorizonDays <= 0 {
		return nil, fmt.Errorf("BOOKING_HORIZON_DAYS must be positive")
	}
	if err := cfg.Timing().Validate(); err != nil {
		return nil, err
	}
	if cfg.DocumentLinkSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("DOCUMENT_LINK_SECRET is required in production")
		}
		cfg.DocumentLinkSecret = "dev-document-secret"
	}

	return cfg, nil
}

// Timing длительности жизненного цикла записи
func (c *Config) Timing() lifecycle.Timing {
	return lifecycle.Timing{
		GracePeriod:    c.PaymentGracePeriod,
		CallWindowLead: c.CallWindowLead,
		NoShowAfter:    c.NoShowAfter,
	}
}

// BookingHorizon сколько дней вперёд показываются слоты
func (c *Config) BookingHorizon() time.Duration {
	return time.Duration(c.BookingHorizonDays) * 24 * time.Hour
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}

func parseInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}
