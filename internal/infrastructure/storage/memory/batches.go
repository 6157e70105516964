package memory

import (
	"context"
	"fmt"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/batches"
)

var _ batches.Repository = (*BatchRepo)(nil)

// BatchRepo implements batches.Repository.
type BatchRepo struct{ s *Store }

func (r *BatchRepo) Create(ctx context.Context, b *batches.Batch) error {
	return r.s.do(ctx, func(st *state) error {
		for _, existing := range st.batches {
			if existing.BatchNumber == b.BatchNumber {
				return apperror.NewDuplicate("batch", "batch_number", b.BatchNumber)
			}
		}
		cp := *b
		st.batches[b.ID] = &cp
		return nil
	})
}

func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*batches.Batch, error) {
	var out []*batches.Batch
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.ProductID == productID && b.CurrentQuantity > 0 {
				cp := *b
				out = append(out, &cp)
			}
		}
		return nil
	})
	batches.SortForAllocation(out)
	return out, err
}

func (r *BatchRepo) ApplyAllocations(ctx context.Context, allocs []batches.Allocation) error {
	return r.s.do(ctx, func(st *state) error {
		for _, a := range allocs {
			b, ok := st.batches[a.BatchID]
			if !ok {
				return apperror.NewNotFound("batch", a.BatchID)
			}
			if b.CurrentQuantity < a.Quantity {
				return fmt.Errorf("batch %s holds %s, cannot take %s", b.BatchNumber, b.CurrentQuantity, a.Quantity)
			}
		}
		for _, a := range allocs {
			st.batches[a.BatchID].CurrentQuantity -= a.Quantity
		}
		return nil
	})
}

func (r *BatchRepo) SumAvailable(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.ProductID == productID && b.CurrentQuantity > 0 {
				total += b.CurrentQuantity
			}
		}
		return nil
	})
	return total, err
}

func (r *BatchRepo) SumAvailableByProduct(ctx context.Context) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity)
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.CurrentQuantity > 0 {
				out[b.ProductID] += b.CurrentQuantity
			}
		}
		return nil
	})
	return out, err
}

func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batches.Batch, error) {
	var out []*batches.Batch
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.ProductID == productID {
				cp := *b
				out = append(out, &cp)
			}
		}
		return nil
	})
	batches.SortForAllocation(out)
	return out, err
}

func (r *BatchRepo) SaveAllocationRecords(ctx context.Context, records []batches.AllocationRecord) error {
	return r.s.do(ctx, func(st *state) error {
		st.allocations = append(st.allocations, records...)
		return nil
	})
}

func (r *BatchRepo) ListAllocationRecords(ctx context.Context, movementIDs []id.ID) ([]batches.AllocationRecord, error) {
	want := make(map[id.ID]struct{}, len(movementIDs))
	for _, m := range movementIDs {
		want[m] = struct{}{}
	}
	var out []batches.AllocationRecord
	err := r.s.do(ctx, func(st *state) error {
		for _, rec := range st.allocations {
			if _, ok := want[rec.MovementID]; ok {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}
