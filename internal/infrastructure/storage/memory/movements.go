package memory

import (
	"context"
	"sort"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
	"stockbook/internal/domain/movements"
	"stockbook/internal/domain/reports"
	"stockbook/pkg/numerator"
)

var (
	_ movements.Repository      = (*MovementRepo)(nil)
	_ reports.Repository        = (*ReportRepo)(nil)
	_ domain.EventPublisher     = (*EventLog)(nil)
	_ movements.NumberGenerator = (*Sequence)(nil)
)

// MovementRepo implements movements.Repository.
type MovementRepo struct{ s *Store }

func (r *MovementRepo) Create(ctx context.Context, m *movements.Movement) error {
	return r.s.do(ctx, func(st *state) error {
		cp := *m
		st.movements = append(st.movements, &cp)
		return nil
	})
}

func (r *MovementRepo) ListByProduct(ctx context.Context, productID id.ID, limit int) ([]*movements.Movement, error) {
	var out []*movements.Movement
	err := r.s.do(ctx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.ProductID != productID {
				continue
			}
			cp := *m
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// ReportRepo implements reports.Repository.
type ReportRepo struct{ s *Store }

func (r *ReportRepo) ListOnHandBatches(ctx context.Context, filter reports.OnHandFilter) ([]reports.OnHandBatch, error) {
	want := make(map[id.ID]struct{}, len(filter.ProductIDs))
	for _, pid := range filter.ProductIDs {
		want[pid] = struct{}{}
	}

	var out []reports.OnHandBatch
	err := r.s.do(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.CurrentQuantity <= 0 {
				continue
			}
			if len(want) > 0 {
				if _, ok := want[b.ProductID]; !ok {
					continue
				}
			}
			row := reports.OnHandBatch{
				BatchID:     b.ID,
				ProductID:   b.ProductID,
				BatchNumber: b.BatchNumber,
				Quantity:    b.CurrentQuantity,
				UnitCost:    b.UnitCost,
				ExpiryDate:  b.ExpiryDate,
				CreatedAt:   b.CreatedAt,
			}
			if p, ok := st.products[b.ProductID]; ok {
				row.ProductCode = p.Code
				row.ProductName = p.Name
				row.Category = p.Category
			}
			out = append(out, row)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// EventLog implements domain.EventPublisher by keeping events in the store,
// so they roll back with the transaction that produced them.
type EventLog struct{ s *Store }

func (l *EventLog) Publish(ctx context.Context, event domain.Event) error {
	return l.s.do(ctx, func(st *state) error {
		st.events = append(st.events, event)
		return nil
	})
}

// All returns the committed events in publication order.
func (l *EventLog) All() []domain.Event {
	var out []domain.Event
	_ = l.s.do(context.Background(), func(st *state) error {
		out = append(out, st.events...)
		return nil
	})
	return out
}

// OfType returns the committed events with the given type.
func (l *EventLog) OfType(eventType string) []domain.Event {
	var out []domain.Event
	for _, e := range l.All() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Sequence implements movements.NumberGenerator with never-resetting
// per-prefix counters (RCV-00001).
type Sequence struct{ s *Store }

func (q *Sequence) Next(ctx context.Context, prefix string) (string, error) {
	var n int64
	err := q.s.do(ctx, func(st *state) error {
		st.sequences[prefix]++
		n = st.sequences[prefix]
		return nil
	})
	return numerator.Scheme{Prefix: prefix}.Format(time.Time{}, n), err
}
