package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE должен работать и в образах без системной tzdata

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	TelegramToken  string        `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN          string        `mapstructure:"DB_DSN"`
	Environment    string        `mapstructure:"ENV"`
	Storage        string        `mapstructure:"STORAGE"`
	Timezone       string        `mapstructure:"TIMEZONE"`
	LockTimeout    time.Duration `mapstructure:"LOCK_TIMEOUT"`
	ReserveRetries uint64        `mapstructure:"RESERVE_RETRIES"`
	MetricsAddr    string        `mapstructure:"METRICS_ADDR"`
	DaysAhead      int           `mapstructure:"DAYS_AHEAD"`

	// Location разобранный Timezone
	Location *time.Location `mapstructure:"-"`
}

// Load читает .env (если есть) и переменные окружения.
// Сообщение о том, откуда взята конфигурация, возвращается вторым значением для логгера.
func Load() (*Config, string, error) {
	source := "Loaded configuration from .env file"
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		source = "No .env file found, using environment variables"
	}

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   getEnv("ENV", "development"),
		Storage:       getEnv("STORAGE", StoragePostgres),
		Timezone:      getEnv("TIMEZONE", "UTC"),
		MetricsAddr:   os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.LockTimeout, err = time.ParseDuration(getEnv("LOCK_TIMEOUT", "3s")); err != nil {
		return nil, "", fmt.Errorf("parse LOCK_TIMEOUT: %w", err)
	}
	if cfg.ReserveRetries, err = strconv.ParseUint(getEnv("RESERVE_RETRIES", "3"), 10, 64); err != nil {
		return nil, "", fmt.Errorf("parse RESERVE_RETRIES: %w", err)
	}
	if cfg.DaysAhead, err = strconv.Atoi(getEnv("DAYS_AHEAD", "7")); err != nil {
		return nil, "", fmt.Errorf("parse DAYS_AHEAD: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, source, nil
}

// Validate проверяет обязательные поля и разбирает часовой пояс
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required but not set")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q, expected %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}

	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if c.DaysAhead <= 0 {
		return fmt.Errorf("DAYS_AHEAD must be positive")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	return nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
