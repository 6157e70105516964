package reports

import (
	"context"
)

// Repository defines report data access interface.
type Repository interface {
	// ListOnHandBatches returns batches with current_quantity > 0, oldest first.
	ListOnHandBatches(ctx context.Context, filter OnHandFilter) ([]OnHandBatch, error)
}
