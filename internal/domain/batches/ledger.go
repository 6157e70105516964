package batches

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/pkg/logger"
)

// CreateParams describes a new batch.
type CreateParams struct {
	ProductID  id.ID
	Quantity   types.Quantity
	UnitCost   types.Money
	ExpiryDate *time.Time
}

// Ledger owns batch creation and FIFO-with-expiry allocation.
// It never touches the product's denormalized total; that is the caller's job.
type Ledger struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time

	stampMu   sync.Mutex
	lastStamp time.Time
}

// NewLedger creates a batch ledger.
func NewLedger(repo Repository, txManager tx.Manager) *Ledger {
	return &Ledger{
		repo:      repo,
		txManager: txManager,
		now:       time.Now,
	}
}

// WithClock overrides the clock used for creation timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// stamp returns a strictly increasing creation timestamp so that batch numbers
// derived from it stay unique within the process.
func (l *Ledger) stamp() time.Time {
	l.stampMu.Lock()
	defer l.stampMu.Unlock()

	t := l.now().UTC()
	if !t.After(l.lastStamp) {
		t = l.lastStamp.Add(time.Nanosecond)
	}
	l.lastStamp = t
	return t
}

// CreateBatch records a new lot with current = initial = quantity.
func (l *Ledger) CreateBatch(ctx context.Context, p CreateParams) (*Batch, error) {
	if !p.Quantity.IsPositive() {
		return nil, apperror.NewInvalidBatchParameters("batch quantity must be positive").
			WithDetail("quantity", p.Quantity.String())
	}
	if p.UnitCost.IsNegative() {
		return nil, apperror.NewInvalidBatchParameters("batch unit cost cannot be negative").
			WithDetail("unit_cost", p.UnitCost.String())
	}
	if id.IsNil(p.ProductID) {
		return nil, apperror.NewInvalidBatchParameters("product is required")
	}

	createdAt := l.stamp()
	b := &Batch{
		ID:              id.New(),
		ProductID:       p.ProductID,
		BatchNumber:     BatchNumber(p.ProductID, createdAt),
		InitialQuantity: p.Quantity,
		CurrentQuantity: p.Quantity,
		UnitCost:        p.UnitCost,
		ExpiryDate:      p.ExpiryDate,
		CreatedAt:       createdAt,
	}

	if err := l.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	logger.Debug(ctx, "batch created",
		"batch_number", b.BatchNumber,
		"product_id", b.ProductID,
		"quantity", b.InitialQuantity.String(),
		"unit_cost", b.UnitCost.String())
	return b, nil
}

// Allocate consumes needed units of the product from its batches in allocation
// order. Availability is checked against the locked candidate rows in the same
// transaction as the decrement, so either the full quantity is allocated or
// InsufficientStock is returned and nothing changes.
func (l *Ledger) Allocate(ctx context.Context, productID id.ID, needed types.Quantity) ([]Allocation, error) {
	if !needed.IsPositive() {
		return nil, apperror.NewValidation("allocation quantity must be positive").
			WithDetail("quantity", needed.String())
	}

	var allocs []Allocation
	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		candidates, err := l.repo.ListAvailableForUpdate(ctx, productID)
		if err != nil {
			return fmt.Errorf("load batches: %w", err)
		}
		SortForAllocation(candidates)

		available := Available(candidates)
		if available < needed {
			return apperror.NewInsufficientStock(productID.String(), needed.String(), available.String())
		}

		var shortfall types.Quantity
		allocs, shortfall = Plan(candidates, needed)
		if shortfall != 0 {
			return apperror.NewInternal(fmt.Errorf("allocation plan left %s unallocated", shortfall))
		}

		if err := l.repo.ApplyAllocations(ctx, allocs); err != nil {
			return fmt.Errorf("apply allocations: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

// TotalAvailable returns Σ current quantity over the product's batches.
func (l *Ledger) TotalAvailable(ctx context.Context, productID id.ID) (types.Quantity, error) {
	return l.repo.SumAvailable(ctx, productID)
}

// AvailableByProduct returns batch-derived availability for every product with batches.
func (l *Ledger) AvailableByProduct(ctx context.Context) (map[id.ID]types.Quantity, error) {
	return l.repo.SumAvailableByProduct(ctx)
}

// RecordAllocations persists the link between a movement and the batches it drew from.
func (l *Ledger) RecordAllocations(ctx context.Context, movementID id.ID, allocs []Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	now := l.now().UTC()
	records := make([]AllocationRecord, 0, len(allocs))
	for _, a := range allocs {
		records = append(records, AllocationRecord{
			ID:         id.New(),
			MovementID: movementID,
			BatchID:    a.BatchID,
			Quantity:   a.Quantity,
			UnitCost:   a.UnitCost,
			CreatedAt:  now,
		})
	}
	return l.repo.SaveAllocationRecords(ctx, records)
}

// Batches lists every batch of the product, including exhausted ones.
func (l *Ledger) Batches(ctx context.Context, productID id.ID) ([]*Batch, error) {
	return l.repo.ListByProduct(ctx, productID)
}

// AllocationRecords returns allocation records for the given movements.
func (l *Ledger) AllocationRecords(ctx context.Context, movementIDs []id.ID) ([]AllocationRecord, error) {
	if len(movementIDs) == 0 {
		return nil, nil
	}
	return l.repo.ListAllocationRecords(ctx, movementIDs)
}
