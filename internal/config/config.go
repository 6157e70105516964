// Package config reads process configuration from the environment.
// A .env file in the working directory, when present, is loaded first;
// variables already set in the environment win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"stockbook/internal/domain/movements"
)

// Config is the configuration shared by the server, worker and seed binaries.
type Config struct {
	AppEnv   string
	AppPort  string
	LogLevel string

	DatabaseURL        string
	DBMaxConns         int
	DBStatementTimeout time.Duration

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration

	// RedisURL enables the cross-instance product lock when set.
	RedisURL       string
	ProductLockTTL time.Duration

	// PubSubProjectID enables Pub/Sub delivery of outbox events when set.
	PubSubProjectID string
	PubSubTopic     string

	OutboxBatchSize    int
	OutboxPollInterval time.Duration

	AdjustmentPolicy movements.AdjustmentPolicy

	SeedDemoData bool
}

// Load reads configuration. DATABASE_URL is required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		AppPort:  getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 25),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),

		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", false),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		RedisURL:       os.Getenv("REDIS_URL"),
		ProductLockTTL: getEnvDuration("PRODUCT_LOCK_TTL", 30*time.Second),

		PubSubProjectID: os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:     getEnv("PUBSUB_TOPIC", "stockbook-events"),

		OutboxBatchSize:    getEnvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxPollInterval: getEnvDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),

		AdjustmentPolicy: movements.ParseAdjustmentPolicy(getEnv("ADJUSTMENT_POLICY", string(movements.PolicyBatches))),

		SeedDemoData: getEnvBool("SEED_DEMO_DATA", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("required environment variable DATABASE_URL not set")
	}
	return cfg, nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
