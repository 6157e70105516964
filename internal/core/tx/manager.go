// Package tx declares the transaction boundary used by the ledger services.
// PostgreSQL and in-memory stores both implement it.
package tx

import (
	"context"
)

// Manager runs fn atomically. A returned error rolls back every stock,
// batch, journal and outbox write made through ctx.
//
// Calls nested inside fn join the outer transaction, which is how a sale
// posts its journal entry in the same commit as its batch consumption.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds snapshot reads for reports and integrity checks.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// Read runs fn in a read-only transaction and returns its result.
func Read[T any](ctx context.Context, m ReadOnlyManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := m.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}
