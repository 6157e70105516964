// Package entity holds the identity and concurrency fields shared by mutable
// master-data rows. Ledger rows (batches, movements, journal entries) are
// append-only and do not embed it.
package entity

import (
	"time"

	"stockbook/internal/core/id"
)

// BaseEntity is embedded by rows updated under optimistic locking: an UPDATE
// matches only when the stored Version equals the one the caller read.
type BaseEntity struct {
	ID        id.ID     `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity starts a row at version 1.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: id.New(), Version: 1, CreatedAt: now, UpdatedAt: now}
}

// Touch records a successful update. Repositories call it after the
// versioned UPDATE matched.
func (b *BaseEntity) Touch() {
	b.Version++
	b.UpdatedAt = time.Now().UTC()
}
