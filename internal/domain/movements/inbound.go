package movements

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/pkg/logger"
)

// ReceiptLine is one received product.
type ReceiptLine struct {
	ProductID  id.ID
	Quantity   types.Quantity
	UnitCost   types.Money
	ExpiryDate *time.Time
}

// ReceiptRequest receives goods, typically against a purchase order.
type ReceiptRequest struct {
	Reference string
	Supplier  string
	Notes     string
	Lines     []ReceiptLine

	// UpdateStandardCost sets each product's cost to the received unit cost.
	UpdateStandardCost bool
}

// ReceiptResult is the outcome of Receive.
type ReceiptResult struct {
	Reference    string                   `json:"reference"`
	Amount       types.Money              `json:"amount"`
	Batches      []*batches.Batch         `json:"batches"`
	Movements    []*Movement              `json:"movements"`
	JournalEntry *accounting.JournalEntry `json:"journalEntry,omitempty"`
}

// InboundRequest receives a single product.
type InboundRequest struct {
	ProductID          id.ID
	Quantity           types.Quantity
	UnitCost           types.Money
	ExpiryDate         *time.Time
	Supplier           string
	Reference          string
	UpdateStandardCost bool
}

// InboundResult is the outcome of Inbound.
type InboundResult struct {
	Batch        *batches.Batch           `json:"batch"`
	Movement     *Movement                `json:"movement"`
	JournalEntry *accounting.JournalEntry `json:"journalEntry,omitempty"`
}

// Inbound receives one product: a new batch at the received cost, the product
// total raised, and Dr Inventory / Cr Cash for quantity × cost.
func (s *Service) Inbound(ctx context.Context, req InboundRequest) (*InboundResult, error) {
	res, err := s.Receive(ctx, ReceiptRequest{
		Reference:          req.Reference,
		Supplier:           req.Supplier,
		UpdateStandardCost: req.UpdateStandardCost,
		Lines: []ReceiptLine{{
			ProductID:  req.ProductID,
			Quantity:   req.Quantity,
			UnitCost:   req.UnitCost,
			ExpiryDate: req.ExpiryDate,
		}},
	})
	if err != nil {
		return nil, err
	}
	return &InboundResult{
		Batch:        res.Batches[0],
		Movement:     res.Movements[0],
		JournalEntry: res.JournalEntry,
	}, nil
}

// Receive books every line as a new batch and posts one purchase entry for the total.
func (s *Service) Receive(ctx context.Context, req ReceiptRequest) (*ReceiptResult, error) {
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("receipt has no lines")
	}
	ids := make([]id.ID, 0, len(req.Lines))
	for i, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			return nil, apperror.NewInvalidBatchParameters("received quantity must be positive").
				WithDetail("line", i)
		}
		if l.UnitCost.IsNegative() {
			return nil, apperror.NewInvalidBatchParameters("unit cost cannot be negative").
				WithDetail("line", i)
		}
		ids = append(ids, l.ProductID)
	}
	ids = uniqueIDs(ids)

	ctx, span := tracer.Start(ctx, "movements.Receive",
		trace.WithAttributes(attribute.Int("lines", len(req.Lines))))
	defer span.End()

	release, err := s.lock(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &ReceiptResult{Amount: types.Zero()}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ref, err := s.reference(ctx, req.Reference, PrefixReceipt)
		if err != nil {
			return err
		}
		res.Reference = ref

		products, err := s.loadProducts(ctx, ids)
		if err != nil {
			return err
		}

		for _, l := range req.Lines {
			b, err := s.ledger.CreateBatch(ctx, batches.CreateParams{
				ProductID:  l.ProductID,
				Quantity:   l.Quantity,
				UnitCost:   l.UnitCost,
				ExpiryDate: l.ExpiryDate,
			})
			if err != nil {
				return err
			}

			p := products[l.ProductID]
			p.TotalQuantity += l.Quantity
			if req.UpdateStandardCost {
				p.Cost = l.UnitCost
			}

			amount := l.Quantity.Cost(l.UnitCost)
			res.Amount = res.Amount.Add(amount)

			m := s.newMovement(l.ProductID, MovementIn, ref)
			m.Quantity = l.Quantity
			m.Amount = amount
			m.Counterparty = req.Supplier
			m.Notes = fmt.Sprintf("batch %s", b.BatchNumber)
			if req.Notes != "" {
				m.Notes = req.Notes
			}

			res.Batches = append(res.Batches, b)
			res.Movements = append(res.Movements, m)
		}

		if err := s.saveProducts(ctx, products, ids); err != nil {
			return err
		}

		entry, err := s.journal.RecordPurchase(ctx, ref, res.Amount, req.Supplier)
		if err != nil {
			return err
		}
		res.JournalEntry = entry

		if err := s.saveMovements(ctx, res.Movements, res.JournalEntry); err != nil {
			return err
		}

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "receipt",
			AggregateID:   res.Movements[0].ID,
			EventType:     domain.EventStockReceived,
			Payload:       res,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "goods received",
		"reference", res.Reference,
		"lines", len(res.Batches),
		"amount", res.Amount.String())
	return res, nil
}
