package batches

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Repository defines batch ledger persistence.
type Repository interface {
	// Create inserts a batch. A duplicate batch number yields a Duplicate error.
	Create(ctx context.Context, b *Batch) error

	// ListAvailableForUpdate returns batches of the product with current_quantity > 0,
	// locked FOR UPDATE and ordered by expiry (nulls last), created_at, id.
	ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*Batch, error)

	// ApplyAllocations decrements current_quantity of each allocated batch.
	// Fails without partial effect if any batch holds less than its allocation.
	ApplyAllocations(ctx context.Context, allocs []Allocation) error

	// SumAvailable returns Σ current_quantity for the product.
	SumAvailable(ctx context.Context, productID id.ID) (types.Quantity, error)

	// SumAvailableByProduct returns Σ current_quantity grouped by product.
	SumAvailableByProduct(ctx context.Context) (map[id.ID]types.Quantity, error)

	// ListByProduct returns every batch of the product, exhausted ones included.
	ListByProduct(ctx context.Context, productID id.ID) ([]*Batch, error)

	SaveAllocationRecords(ctx context.Context, records []AllocationRecord) error

	ListAllocationRecords(ctx context.Context, movementIDs []id.ID) ([]AllocationRecord, error)
}
