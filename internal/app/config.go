package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// StorageDriver выбирает реализацию KV-хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverRedis    StorageDriver = "redis"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver StorageDriver
	// AllowMemoryStore явно разрешает in-memory хранилище (только локальная разработка и тесты).
	AllowMemoryStore    bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	PostgresDSN         string
	PostgresAutoMigrate bool

	JWTSecret      string
	AdminUserIDs   []string
	RequestTimeout time.Duration
	SecureCookies  bool

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIBase       string
	RefundWebhookSecret string

	KafkaBrokers string

	HoldSweepInterval      time.Duration
	ExpiryCleanupInterval  time.Duration
	ExpiryCleanupBatchSize int

	Loyalty domain.AccrualRules
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		GRPCAddr:               ":50051",
		MetricsAddr:            ":9090",
		StorageDriver:          StorageDriverRedis,
		RedisAddr:              "localhost:6379",
		PostgresAutoMigrate:    true,
		RequestTimeout:         15 * time.Second,
		HoldSweepInterval:      time.Minute,
		ExpiryCleanupInterval:  time.Minute,
		ExpiryCleanupBatchSize: 500,
		Loyalty:                domain.DefaultAccrualRules(),
	}
}

// Validate проверяет согласованность настроек хранилища.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
		if !c.AllowMemoryStore {
			return errors.New("memory storage driver requires GLOWUP_ALLOW_MEMORY_STORE=true")
		}
	case StorageDriverRedis:
		if c.RedisAddr == "" {
			return errors.New("redis storage driver requires GLOWUP_REDIS_ADDR")
		}
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres storage driver requires GLOWUP_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	if c.Loyalty.PointValueKES <= 0 {
		return errors.New("loyalty point value must be positive")
	}
	if c.Loyalty.MinimumRedeemPoints < 0 || c.Loyalty.PointsPerKES < 0 {
		return errors.New("loyalty rules must not be negative")
	}
	return nil
}
