package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-inserts rows with the COPY protocol.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice inserts rows (each matching columns) into table.
// COPY is only used inside a transaction; outside one the rows go through a
// single multi-row INSERT.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if t := b.txManager.GetTx(ctx); t != nil {
		n, err := t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return 0, fmt.Errorf("copy into %s: %w", table, err)
		}
		return n, nil
	}

	q := Builder().Insert(table).Columns(columns...)
	for _, r := range rows {
		q = q.Values(r...)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	tag, err := b.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// BatchQuery is one statement of a pipelined batch.
type BatchQuery struct {
	SQL  string
	Args []any

	// ExpectRows, when positive, is the exact number of rows the statement must affect.
	ExpectRows int64
}

// ExecuteBatch sends queries in one round-trip on the querier bound to ctx.
// It returns ErrUnexpectedRows (wrapped) when a statement's ExpectRows is not met.
func ExecuteBatch(ctx context.Context, q Querier, queries []BatchQuery) error {
	if len(queries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bq := range queries {
		batch.Queue(bq.SQL, bq.Args...)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i, bq := range queries {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("batch query %d failed: %w", i, err)
		}
		if bq.ExpectRows > 0 && tag.RowsAffected() != bq.ExpectRows {
			return fmt.Errorf("batch query %d: %w: affected %d, want %d", i, ErrUnexpectedRows, tag.RowsAffected(), bq.ExpectRows)
		}
	}
	return nil
}
