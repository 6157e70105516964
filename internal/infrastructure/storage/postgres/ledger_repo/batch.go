// Package ledger_repo provides the PostgreSQL implementation of batches.Repository.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/batches"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	batchesTable     = "batches"
	allocationsTable = "batch_allocations"
)

var allocationColumns = []string{"id", "movement_id", "batch_id", "quantity", "unit_cost", "created_at"}

var _ batches.Repository = (*BatchRepo)(nil)

// BatchRepo implements batches.Repository.
type BatchRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewBatchRepo creates a new batch repository.
func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: postgres.ExtractDBColumns[batches.Batch](),
	}
}

// Create inserts a batch.
func (r *BatchRepo) Create(ctx context.Context, b *batches.Batch) error {
	sql, args, err := r.builder.
		Insert(batchesTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(b), r.selectCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "batches_batch_number_key"):
			return apperror.NewDuplicate("batch", "batch_number", b.BatchNumber)
		case postgres.IsCheckViolation(err):
			return apperror.NewInvalidBatchParameters("batch quantities out of range").WithCause(err)
		case postgres.IsForeignKeyViolation(err):
			return apperror.NewNotFound("product", b.ProductID.String())
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepo) availableQuery(productID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(r.selectCols...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Gt{"current_quantity": 0}).
		OrderBy("expiry_date ASC NULLS LAST", "created_at", "id").
		Suffix("FOR UPDATE")
}

// ListAvailableForUpdate locks and returns batches with remaining stock in allocation order.
func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*batches.Batch, error) {
	sql, args, err := r.availableQuery(productID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*batches.Batch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}
	batches.SortForAllocation(out)
	return out, nil
}

// ApplyAllocations decrements every allocated batch in one round-trip.
// The guard on current_quantity makes an over-allocation affect zero rows.
func (r *BatchRepo) ApplyAllocations(ctx context.Context, allocs []batches.Allocation) error {
	if len(allocs) == 0 {
		return nil
	}
	if r.txManager.GetTx(ctx) == nil {
		return fmt.Errorf("apply allocations requires transaction context")
	}

	queries := make([]postgres.BatchQuery, 0, len(allocs))
	for _, a := range allocs {
		sql, args, err := r.builder.
			Update(batchesTable).
			Set("current_quantity", squirrel.Expr("current_quantity - ?", a.Quantity)).
			Where(squirrel.Eq{"id": a.BatchID}).
			Where(squirrel.GtOrEq{"current_quantity": a.Quantity}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args, ExpectRows: 1})
	}

	if err := postgres.ExecuteBatch(ctx, r.txManager.GetQuerier(ctx), queries); err != nil {
		if errors.Is(err, postgres.ErrUnexpectedRows) {
			return apperror.NewConcurrentModification("batch", "allocation").WithCause(err)
		}
		return fmt.Errorf("apply allocations: %w", err)
	}
	return nil
}

// SumAvailable returns Σ current_quantity for the product.
func (r *BatchRepo) SumAvailable(ctx context.Context, productID id.ID) (types.Quantity, error) {
	sql, args, err := r.builder.
		Select("COALESCE(SUM(current_quantity), 0)").
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum available: %w", err)
	}
	return types.Quantity(total), nil
}

type productTotal struct {
	ProductID id.ID `db:"product_id"`
	Total     int64 `db:"total"`
}

// SumAvailableByProduct returns Σ current_quantity grouped by product.
func (r *BatchRepo) SumAvailableByProduct(ctx context.Context) (map[id.ID]types.Quantity, error) {
	sql, args, err := r.builder.
		Select("product_id", "SUM(current_quantity) AS total").
		From(batchesTable).
		GroupBy("product_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []productTotal
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum available by product: %w", err)
	}

	out := make(map[id.ID]types.Quantity, len(rows))
	for _, row := range rows {
		out[row.ProductID] = types.Quantity(row.Total)
	}
	return out, nil
}

// ListByProduct returns every batch of the product, oldest first.
func (r *BatchRepo) ListByProduct(ctx context.Context, productID id.ID) ([]*batches.Batch, error) {
	sql, args, err := r.builder.
		Select(r.selectCols...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []*batches.Batch{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return out, nil
}

// SaveAllocationRecords writes allocation records, via COPY inside a transaction.
func (r *BatchRepo) SaveAllocationRecords(ctx context.Context, records []batches.AllocationRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.ID, rec.MovementID, rec.BatchID, rec.Quantity, rec.UnitCost, rec.CreatedAt})
	}

	inserter := postgres.NewBatchInserter(r.txManager)
	if _, err := inserter.CopyFromSlice(ctx, allocationsTable, allocationColumns, rows); err != nil {
		return fmt.Errorf("save allocation records: %w", err)
	}
	return nil
}

// ListAllocationRecords returns the records of the given movements.
func (r *BatchRepo) ListAllocationRecords(ctx context.Context, movementIDs []id.ID) ([]batches.AllocationRecord, error) {
	if len(movementIDs) == 0 {
		return nil, nil
	}

	sql, args, err := r.builder.
		Select(allocationColumns...).
		From(allocationsTable).
		Where(squirrel.Eq{"movement_id": movementIDs}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []batches.AllocationRecord
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list allocation records: %w", err)
	}
	return out, nil
}
