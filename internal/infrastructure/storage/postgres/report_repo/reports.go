// Package report_repo provides the PostgreSQL implementation of reports.Repository.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/storage/postgres"
)

var _ reports.Repository = (*ReportRepo)(nil)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   postgres.Builder(),
	}
}

func (r *ReportRepo) onHandQuery(filter reports.OnHandFilter) squirrel.SelectBuilder {
	q := r.builder.
		Select(
			"b.id AS batch_id",
			"b.product_id",
			"p.code AS product_code",
			"p.name AS product_name",
			"p.category",
			"b.batch_number",
			"b.current_quantity",
			"b.unit_cost",
			"b.expiry_date",
			"b.created_at",
		).
		From("batches b").
		Join("products p ON p.id = b.product_id").
		Where(squirrel.Gt{"b.current_quantity": 0})

	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"b.product_id": filter.ProductIDs})
	}
	return q.OrderBy("b.created_at", "b.id")
}

// ListOnHandBatches returns batches with remaining stock, oldest first.
func (r *ReportRepo) ListOnHandBatches(ctx context.Context, filter reports.OnHandFilter) ([]reports.OnHandBatch, error) {
	sql, args, err := r.onHandQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []reports.OnHandBatch
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list on-hand batches: %w", err)
	}
	return out, nil
}
