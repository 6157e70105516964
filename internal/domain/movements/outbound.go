package movements

import (
	"context"
	"fmt"

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

// SaleLine is one ordered product. UnitPrice defaults to the product's price.
type SaleLine struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitPrice *types.Money
}

// SaleRequest confirms a sales order. GrandTotal, when set, is the revenue
// booked for the order (after discounts and tax); otherwise Σ quantity × price.
type SaleRequest struct {
	Reference  string
	Customer   string
	Notes      string
	Lines      []SaleLine
	GrandTotal *types.Money
}

// SaleLineResult reports the batches one line drew from.
type SaleLineResult struct {
	ProductID   id.ID                `json:"productId"`
	Quantity    types.Quantity       `json:"quantity"`
	Revenue     types.Money          `json:"revenue"`
	COGS        types.Money          `json:"cogs"`
	Allocations []batches.Allocation `json:"allocations"`
	MovementID  id.ID                `json:"movementId"`
}

// SaleResult is the outcome of ConfirmSale.
type SaleResult struct {
	Reference    string                   `json:"reference"`
	Revenue      types.Money              `json:"revenue"`
	COGS         types.Money              `json:"cogs"`
	Lines        []SaleLineResult         `json:"lines"`
	JournalEntry *accounting.JournalEntry `json:"journalEntry,omitempty"`
}

// Shortage describes one product that cannot cover its ordered quantity.
type Shortage struct {
	ProductID id.ID          `json:"productId"`
	Requested types.Quantity `json:"requested"`
	Available types.Quantity `json:"available"`
}

// ConfirmSale ships a whole order. Every line is checked against batch
// availability first; if any line is short, InsufficientStock is returned and
// nothing changes. Otherwise each line is allocated FIFO-with-expiry, product
// totals drop, and one entry books revenue and the FIFO cost of goods sold.
func (s *Service) ConfirmSale(ctx context.Context, req SaleRequest) (*SaleResult, error) {
	if len(req.Lines) == 0 {
		return nil, apperror.NewValidation("sales order has no lines")
	}
	requested := make(map[id.ID]types.Quantity, len(req.Lines))
	ids := make([]id.ID, 0, len(req.Lines))
	for i, l := range req.Lines {
		if !l.Quantity.IsPositive() {
			return nil, apperror.NewValidation("ordered quantity must be positive").WithDetail("line", i)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return nil, apperror.NewValidation("unit price cannot be negative").WithDetail("line", i)
		}
		requested[l.ProductID] += l.Quantity
		ids = append(ids, l.ProductID)
	}
	if req.GrandTotal != nil && req.GrandTotal.IsNegative() {
		return nil, apperror.NewValidation("grand total cannot be negative")
	}
	ids = uniqueIDs(ids)

	ctx, span := tracer.Start(ctx, "movements.ConfirmSale",
		trace.WithAttributes(attribute.Int("lines", len(req.Lines))))
	defer span.End()

	release, err := s.lock(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &SaleResult{Revenue: types.Zero(), COGS: types.Zero()}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		products, err := s.loadProducts(ctx, ids)
		if err != nil {
			return err
		}

		var shortages []Shortage
		for _, pid := range ids {
			available, err := s.ledger.TotalAvailable(ctx, pid)
			if err != nil {
				return fmt.Errorf("check availability: %w", err)
			}
			if available < requested[pid] {
				shortages = append(shortages, Shortage{ProductID: pid, Requested: requested[pid], Available: available})
			}
		}
		if len(shortages) > 0 {
			first := shortages[0]
			return apperror.NewInsufficientStock(first.ProductID.String(), first.Requested.String(), first.Available.String()).
				WithDetail("shortages", shortages)
		}

		ref, err := s.reference(ctx, req.Reference, PrefixSale)
		if err != nil {
			return err
		}
		res.Reference = ref

		before := make(map[id.ID]types.Quantity, len(ids))
		for _, pid := range ids {
			before[pid] = products[pid].TotalQuantity
		}

		var moves []*Movement
		for _, l := range req.Lines {
			p := products[l.ProductID]

			allocs, err := s.ledger.Allocate(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return err
			}
			cogs := batches.TotalCost(allocs)

			price := p.Price
			if l.UnitPrice != nil {
				price = *l.UnitPrice
			}
			revenue := l.Quantity.Cost(price)

			p.TotalQuantity -= l.Quantity
			if p.TotalQuantity.IsNegative() {
				return apperror.NewInternal(fmt.Errorf("product %s total %s is below its batch availability",
					p.ID, (p.TotalQuantity + l.Quantity).String())).
					WithDetail("product_id", p.ID).
					WithDetail("requested", l.Quantity.String())
			}

			m := s.newMovement(l.ProductID, MovementOut, ref)
			m.Quantity = l.Quantity
			m.Amount = cogs
			m.Counterparty = req.Customer
			m.Notes = req.Notes
			moves = append(moves, m)

			res.COGS = res.COGS.Add(cogs)
			res.Revenue = res.Revenue.Add(revenue)
			res.Lines = append(res.Lines, SaleLineResult{
				ProductID:   l.ProductID,
				Quantity:    l.Quantity,
				Revenue:     revenue,
				COGS:        cogs,
				Allocations: allocs,
				MovementID:  m.ID,
			})
		}
		if req.GrandTotal != nil {
			res.Revenue = *req.GrandTotal
		}

		if err := s.saveProducts(ctx, products, ids); err != nil {
			return err
		}

		entry, err := s.journal.RecordSale(ctx, ref, res.Revenue, res.COGS)
		if err != nil {
			return err
		}
		res.JournalEntry = entry

		if err := s.saveMovements(ctx, moves, res.JournalEntry); err != nil {
			return err
		}
		for _, line := range res.Lines {
			if err := s.ledger.RecordAllocations(ctx, line.MovementID, line.Allocations); err != nil {
				return fmt.Errorf("record allocations: %w", err)
			}
		}

		for _, pid := range ids {
			if err := s.notifyLowStock(ctx, products[pid], before[pid], ref); err != nil {
				return fmt.Errorf("publish low stock: %w", err)
			}
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "sale",
			AggregateID:   moves[0].ID,
			EventType:     domain.EventSaleConfirmed,
			Payload:       res,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "sale confirmed",
		"reference", res.Reference,
		"lines", len(res.Lines),
		"revenue", res.Revenue.String(),
		"cogs", res.COGS.String())
	return res, nil
}
