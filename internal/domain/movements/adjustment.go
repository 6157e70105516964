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
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/pkg/logger"
)

// CountLine is the physically counted quantity of one product.
type CountLine struct {
	ProductID        id.ID
	PhysicalQuantity types.Quantity
}

// StockCountRequest applies a stock count (opname).
type StockCountRequest struct {
	Reference string
	Notes     string
	Counts    []CountLine
}

// AdjustmentResult is the per-product outcome of a stock count.
type AdjustmentResult struct {
	ProductID        id.ID                `json:"productId"`
	SystemQuantity   types.Quantity       `json:"systemQuantity"`
	PhysicalQuantity types.Quantity       `json:"physicalQuantity"`
	Difference       types.Quantity       `json:"difference"`
	Amount           types.Money          `json:"amount"`
	IsLoss           bool                 `json:"isLoss"`
	JournalEntryID   *id.ID               `json:"journalEntryId,omitempty"`
	MovementID       *id.ID               `json:"movementId,omitempty"`
	CorrectionBatch  *batches.Batch       `json:"correctionBatch,omitempty"`
	Allocations      []batches.Allocation `json:"allocations,omitempty"`
}

// StockCountResult is the outcome of Adjust. Adjusted counts products whose
// physical quantity differed from the system quantity.
type StockCountResult struct {
	Reference string             `json:"reference"`
	Adjusted  int                `json:"adjusted"`
	Lines     []AdjustmentResult `json:"lines"`
}

// Adjust reconciles system quantities with a physical count. Each differing
// product gets its total set to the counted quantity, an ADJUST movement, and an
// adjustment entry for |diff| × standard cost (a loss when stock went missing).
func (s *Service) Adjust(ctx context.Context, req StockCountRequest) (*StockCountResult, error) {
	if len(req.Counts) == 0 {
		return nil, apperror.NewValidation("stock count has no lines")
	}
	ids := make([]id.ID, 0, len(req.Counts))
	seen := make(map[id.ID]struct{}, len(req.Counts))
	for i, c := range req.Counts {
		if c.PhysicalQuantity.IsNegative() {
			return nil, apperror.NewValidation("physical quantity cannot be negative").WithDetail("line", i)
		}
		if _, dup := seen[c.ProductID]; dup {
			return nil, apperror.NewValidation("product counted twice").
				WithDetail("line", i).
				WithDetail("product_id", c.ProductID)
		}
		seen[c.ProductID] = struct{}{}
		ids = append(ids, c.ProductID)
	}
	ids = uniqueIDs(ids)

	ctx, span := tracer.Start(ctx, "movements.Adjust",
		trace.WithAttributes(attribute.Int("lines", len(req.Counts))))
	defer span.End()

	release, err := s.lock(ctx, ids)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &StockCountResult{}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ref, err := s.reference(ctx, req.Reference, PrefixAdjustment)
		if err != nil {
			return err
		}
		res.Reference = ref

		products, err := s.loadProducts(ctx, ids)
		if err != nil {
			return err
		}

		for _, c := range req.Counts {
			p := products[c.ProductID]
			line, err := s.adjustOne(ctx, p, c.PhysicalQuantity, ref, req.Notes)
			if err != nil {
				return err
			}
			if !line.Difference.IsZero() {
				res.Adjusted++
			}
			res.Lines = append(res.Lines, *line)
		}

		if err := s.saveProducts(ctx, products, ids); err != nil {
			return err
		}
		if res.Adjusted == 0 {
			return nil
		}
		return s.events.Publish(ctx, domain.Event{
			AggregateType: "stock_count",
			AggregateID:   id.New(),
			EventType:     domain.EventStockAdjusted,
			Payload:       res,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "stock count applied",
		"reference", res.Reference,
		"counted", len(res.Lines),
		"adjusted", res.Adjusted)
	return res, nil
}

func (s *Service) adjustOne(ctx context.Context, p *catalog.Product, physical types.Quantity, ref, notes string) (*AdjustmentResult, error) {
	system := p.TotalQuantity
	diff := physical - system
	line := &AdjustmentResult{
		ProductID:        p.ID,
		SystemQuantity:   system,
		PhysicalQuantity: physical,
		Difference:       diff,
		Amount:           types.Zero(),
		IsLoss:           diff.IsNegative(),
	}
	if diff.IsZero() {
		return line, nil
	}

	p.TotalQuantity = physical
	line.Amount = diff.Abs().Cost(p.Cost)

	m := s.newMovement(p.ID, MovementAdjust, ref)
	m.Quantity = diff
	m.Amount = line.Amount
	m.Notes = notes
	line.MovementID = &m.ID

	if s.policy == PolicyBatches {
		if err := s.reconcileBatches(ctx, p, diff, line); err != nil {
			return nil, err
		}
	}

	entry, err := s.journal.RecordAdjustment(ctx, ref, line.Amount, line.IsLoss)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		line.JournalEntryID = &entry.ID
		m.JournalEntryID = &entry.ID
	}

	if err := s.saveMovements(ctx, []*Movement{m}, nil); err != nil {
		return nil, err
	}
	if len(line.Allocations) > 0 {
		if err := s.ledger.RecordAllocations(ctx, m.ID, line.Allocations); err != nil {
			return nil, fmt.Errorf("record allocations: %w", err)
		}
	}

	if err := s.notifyLowStock(ctx, p, system, ref); err != nil {
		return nil, fmt.Errorf("publish low stock: %w", err)
	}
	return line, nil
}

// reconcileBatches mirrors a count difference in the batch ledger: a gain becomes
// a correction batch at standard cost, a loss is drawn from batches in allocation
// order up to what they still hold.
func (s *Service) reconcileBatches(ctx context.Context, p *catalog.Product, diff types.Quantity, line *AdjustmentResult) error {
	if diff.IsPositive() {
		b, err := s.ledger.CreateBatch(ctx, batches.CreateParams{
			ProductID: p.ID,
			Quantity:  diff,
			UnitCost:  p.Cost,
		})
		if err != nil {
			return err
		}
		line.CorrectionBatch = b
		return nil
	}

	available, err := s.ledger.TotalAvailable(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	take := types.MinQuantity(diff.Abs(), available)
	if take < diff.Abs() {
		logger.Warn(ctx, "batches hold less than the counted loss",
			"product_id", p.ID,
			"loss", diff.Abs().String(),
			"available", available.String())
	}
	if !take.IsPositive() {
		return nil
	}
	allocs, err := s.ledger.Allocate(ctx, p.ID, take)
	if err != nil {
		return err
	}
	line.Allocations = allocs
	return nil
}
