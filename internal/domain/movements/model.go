// Package movements orchestrates inbound, outbound and adjustment flows across
// the batch ledger, the product totals and the journal engine.
package movements

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/batches"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn     MovementType = "IN"
	MovementOut    MovementType = "OUT"
	MovementAdjust MovementType = "ADJUST"
)

// Movement is the per-product record of a business event.
// For ADJUST movements Quantity is the signed difference.
type Movement struct {
	ID             id.ID          `db:"id" json:"id"`
	ProductID      id.ID          `db:"product_id" json:"productId"`
	Type           MovementType   `db:"movement_type" json:"type"`
	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	Amount         types.Money    `db:"amount" json:"amount"`
	Reference      string         `db:"reference" json:"reference"`
	Counterparty   string         `db:"counterparty" json:"counterparty,omitempty"`
	Notes          string         `db:"notes" json:"notes,omitempty"`
	JournalEntryID *id.ID         `db:"journal_entry_id" json:"journalEntryId,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
}

// MovementView is a movement with the batches it drew from.
type MovementView struct {
	*Movement
	Allocations []batches.AllocationRecord `json:"allocations,omitempty"`
}

// Repository persists stock movements.
type Repository interface {
	Create(ctx context.Context, m *Movement) error

	// ListByProduct returns the product's movements, newest first.
	ListByProduct(ctx context.Context, productID id.ID, limit int) ([]*Movement, error)
}

// Locker serializes work on products across processes. Implementations may be
// best-effort; row locks in the transaction remain the source of truth.
type Locker interface {
	LockProducts(ctx context.Context, productIDs []id.ID) (release func(), err error)
}

// NumberGenerator issues reference numbers for requests that carry none.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// AdjustmentPolicy decides how stock-count differences reach the batch ledger.
type AdjustmentPolicy string

const (
	// PolicyBatches keeps batches in step with the product total: a gain creates a
	// correction batch at standard cost, a loss consumes batches in allocation order.
	PolicyBatches AdjustmentPolicy = "batches"

	// PolicyProjection only overwrites the product total and leaves batches untouched.
	PolicyProjection AdjustmentPolicy = "projection"
)

// ParseAdjustmentPolicy maps a config value to a policy, defaulting to PolicyBatches.
func ParseAdjustmentPolicy(s string) AdjustmentPolicy {
	if AdjustmentPolicy(s) == PolicyProjection {
		return PolicyProjection
	}
	return PolicyBatches
}

// Reference prefixes for generated numbers.
const (
	PrefixReceipt    = "RCV"
	PrefixSale       = "SO"
	PrefixAdjustment = "ADJ"
	PrefixReturn     = "RET"
)

// LowStockPayload is the payload of stock.low events.
type LowStockPayload struct {
	ProductID id.ID          `json:"productId"`
	Code      string         `json:"code"`
	Name      string         `json:"name"`
	Quantity  types.Quantity `json:"quantity"`
	Threshold types.Quantity `json:"threshold"`
	Reference string         `json:"reference"`
}
