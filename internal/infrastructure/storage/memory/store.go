// Package memory provides an in-process implementation of every ledger
// repository and of tx.ReadOnlyManager. Transactions serialize on one mutex and
// roll back by restoring a snapshot, which gives the same all-or-nothing
// behaviour as the PostgreSQL store for tests and local runs.
package memory

import (
	"context"
	"sync"

	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
)

var _ tx.ReadOnlyManager = (*Store)(nil)

type state struct {
	products    map[id.ID]*catalog.Product
	batches     map[id.ID]*batches.Batch
	allocations []batches.AllocationRecord
	movements   []*movements.Movement
	accounts    map[string]*accounting.Account
	entries     map[id.ID]*accounting.JournalEntry
	entryOrder  []id.ID
	events      []domain.Event
	sequences   map[string]int64
}

func newState() *state {
	return &state{
		products:  make(map[id.ID]*catalog.Product),
		batches:   make(map[id.ID]*batches.Batch),
		accounts:  make(map[string]*accounting.Account),
		entries:   make(map[id.ID]*accounting.JournalEntry),
		sequences: make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range s.batches {
		b := *v
		c.batches[k] = &b
	}
	c.allocations = append(c.allocations, s.allocations...)
	for _, v := range s.movements {
		m := *v
		c.movements = append(c.movements, &m)
	}
	for k, v := range s.accounts {
		a := *v
		c.accounts[k] = &a
	}
	for k, v := range s.entries {
		c.entries[k] = cloneEntry(v)
	}
	c.entryOrder = append(c.entryOrder, s.entryOrder...)
	c.events = append(c.events, s.events...)
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

// Store holds the whole ledger in memory.
type Store struct {
	mu    sync.Mutex
	state *state
}

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// RunInTransaction implements tx.Manager. Nested calls reuse the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// do runs fn against the current state, taking the store lock unless ctx is
// already inside a transaction.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Products returns the catalog.Repository view of the store.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Batches returns the batches.Repository view of the store.
func (s *Store) Batches() *BatchRepo { return &BatchRepo{s: s} }

// Accounting returns the accounting.Repository view of the store.
func (s *Store) Accounting() *AccountingRepo { return &AccountingRepo{s: s} }

// Movements returns the movements.Repository view of the store.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

// Reports returns the reports.Repository view of the store.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

// Events returns the domain.EventPublisher view of the store.
func (s *Store) Events() *EventLog { return &EventLog{s: s} }

// Numbers returns a reference number generator backed by the store.
func (s *Store) Numbers() *Sequence { return &Sequence{s: s} }
