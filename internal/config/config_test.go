package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/domain/movements"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockbook")
	t.Setenv("APP_PORT", "")
	t.Setenv("ADJUSTMENT_POLICY", "")
	t.Setenv("IDEMPOTENCY_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, movements.PolicyBatches, cfg.AdjustmentPolicy)
	assert.False(t, cfg.IdempotencyEnabled)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stockbook")
	t.Setenv("ADJUSTMENT_POLICY", "projection")
	t.Setenv("IDEMPOTENCY_ENABLED", "true")
	t.Setenv("DB_STATEMENT_TIMEOUT", "5s")
	t.Setenv("OUTBOX_BATCH_SIZE", "oops")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, movements.PolicyProjection, cfg.AdjustmentPolicy)
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Equal(t, 5*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
}
