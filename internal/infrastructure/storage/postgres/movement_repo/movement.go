// Package movement_repo provides the PostgreSQL implementation of movements.Repository.
package movement_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/movements"
	"stockbook/internal/infrastructure/storage/postgres"
)

const movementsTable = "stock_movements"

var _ movements.Repository = (*MovementRepo)(nil)

// MovementRepo implements movements.Repository.
type MovementRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewMovementRepo creates a new stock movement repository.
func NewMovementRepo(txManager *postgres.TxManager) *MovementRepo {
	return &MovementRepo{
		txManager:  txManager,
		builder:    postgres.Builder(),
		selectCols: postgres.ExtractDBColumns[movements.Movement](),
	}
}

// Create inserts a movement.
func (r *MovementRepo) Create(ctx context.Context, m *movements.Movement) error {
	sql, args, err := r.builder.
		Insert(movementsTable).
		SetMap(postgres.PickColumns(postgres.StructToMap(m), r.selectCols)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) byProductQuery(productID id.ID, limit int) squirrel.SelectBuilder {
	q := r.builder.
		Select(r.selectCols...).
		From(movementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

// ListByProduct returns the product's movements, newest first.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID id.ID, limit int) ([]*movements.Movement, error) {
	sql, args, err := r.byProductQuery(productID, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	out := []*movements.Movement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}
