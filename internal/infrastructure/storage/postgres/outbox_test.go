package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRetryAt_LinearThenCapped(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(time.Minute), NextRetryAt(now, 0))
	assert.Equal(t, now.Add(4*time.Minute), NextRetryAt(now, 3))
	assert.Equal(t, now.Add(time.Hour), NextRetryAt(now, 500))
}

func TestNewOutboxRelay_DefaultBatch(t *testing.T) {
	r := NewOutboxRelay(nil, 0, nil)
	assert.EqualValues(t, 100, r.batchSize)
}
