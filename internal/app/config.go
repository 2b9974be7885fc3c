package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Драйверы хранилища, поддерживаемые приложением.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	// HTTPAddr — адрес служебного HTTP-сервера (/metrics, /healthz, /livez, /readyz).
	HTTPAddr string

	// StorageDriver выбирает хранилище: memory или postgres.
	StorageDriver string

	// PostgresDSN обязателен при StorageDriver == postgres.
	PostgresDSN string

	// MigrateOnStart применяет встроенные миграции при запуске (только postgres).
	MigrateOnStart bool

	// KafkaBrokers — список брокеров через запятую; пустой — работа без Kafka.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
}

// DefaultConfig возвращает базовые настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":9090",
		StorageDriver:      StorageDriverMemory,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    50,
		OutboxMaxAttempts:  5,
	}
}

// ConfigFromEnv строит конфигурацию из переменных окружения MARKETPLACE_*
// поверх значений по умолчанию.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("MARKETPLACE_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MARKETPLACE_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("MARKETPLACE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("MARKETPLACE_MIGRATE_ON_START"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MARKETPLACE_MIGRATE_ON_START: %w", err)
		}
		cfg.MigrateOnStart = parsed
	}
	if v := os.Getenv("MARKETPLACE_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("MARKETPLACE_OUTBOX_POLL_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MARKETPLACE_OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = parsed
	}
	if v := os.Getenv("MARKETPLACE_OUTBOX_BATCH_SIZE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MARKETPLACE_OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.OutboxBatchSize = parsed
	}
	if v := os.Getenv("MARKETPLACE_OUTBOX_MAX_ATTEMPTS"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MARKETPLACE_OUTBOX_MAX_ATTEMPTS: %w", err)
		}
		cfg.OutboxMaxAttempts = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("storage driver %q requires MARKETPLACE_POSTGRES_DSN", c.StorageDriver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive, got %s", c.OutboxPollInterval)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive, got %d", c.OutboxBatchSize)
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be positive, got %d", c.OutboxMaxAttempts)
	}
	return nil
}
