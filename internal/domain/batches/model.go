// Package batches implements the batch ledger: cost-bearing stock lots and
// FIFO-with-expiry allocation against them.
package batches

import (
	"fmt"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Batch is a receipt-time lot of one product.
// Invariant: 0 <= CurrentQuantity <= InitialQuantity.
type Batch struct {
	ID              id.ID          `db:"id" json:"id"`
	ProductID       id.ID          `db:"product_id" json:"productId"`
	BatchNumber     string         `db:"batch_number" json:"batchNumber"`
	InitialQuantity types.Quantity `db:"initial_quantity" json:"initialQuantity"`
	CurrentQuantity types.Quantity `db:"current_quantity" json:"currentQuantity"`
	UnitCost        types.Money    `db:"unit_cost" json:"unitCost"`
	ExpiryDate      *time.Time     `db:"expiry_date" json:"expiryDate,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
}

// IsExhausted reports whether nothing remains in the batch.
func (b *Batch) IsExhausted() bool {
	return b.CurrentQuantity <= 0
}

// Value is the remaining quantity at the batch's unit cost.
func (b *Batch) Value() types.Money {
	return b.CurrentQuantity.Cost(b.UnitCost)
}

// BatchNumber derives a batch number from the owning product and creation time:
// BATCH-YYYYMMDD-<productID>-<unixnano>.
func BatchNumber(productID id.ID, createdAt time.Time) string {
	return fmt.Sprintf("BATCH-%s-%s-%d", createdAt.UTC().Format("20060102"), productID, createdAt.UnixNano())
}

// Allocation is the quantity taken from one batch for one outbound request.
type Allocation struct {
	BatchID     id.ID          `json:"batchId"`
	BatchNumber string         `json:"batchNumber"`
	Quantity    types.Quantity `json:"quantity"`
	UnitCost    types.Money    `json:"unitCost"`
}

// Cost is the FIFO cost of the allocated quantity.
func (a Allocation) Cost() types.Money {
	return a.Quantity.Cost(a.UnitCost)
}

// TotalCost sums the cost of allocations.
func TotalCost(allocs []Allocation) types.Money {
	total := types.Zero()
	for _, a := range allocs {
		total = total.Add(a.Cost())
	}
	return total
}

// TotalQuantity sums the quantity of allocations.
func TotalQuantity(allocs []Allocation) types.Quantity {
	var total types.Quantity
	for _, a := range allocs {
		total += a.Quantity
	}
	return total
}

// AllocationRecord links a stock movement to a batch it drew from. Immutable.
type AllocationRecord struct {
	ID         id.ID          `db:"id" json:"id"`
	MovementID id.ID          `db:"movement_id" json:"movementId"`
	BatchID    id.ID          `db:"batch_id" json:"batchId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}
