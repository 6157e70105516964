package movements

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/pkg/logger"
)

// ReturnRequest refunds a customer for returned goods.
type ReturnRequest struct {
	Reference      string
	OrderReference string
	Reason         string
	Refund         types.Money
}

// ReturnResult is the outcome of ReturnSale.
type ReturnResult struct {
	Reference    string                   `json:"reference"`
	Refund       types.Money              `json:"refund"`
	JournalEntry *accounting.JournalEntry `json:"journalEntry"`
}

// ReturnSale books a refund as Dr Revenue / Cr Cash. Returned goods do not
// re-enter stock here; they come back through a receipt or a stock count.
func (s *Service) ReturnSale(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	if !req.Refund.IsPositive() {
		return nil, apperror.NewValidation("refund amount must be positive")
	}

	ctx, span := tracer.Start(ctx, "movements.ReturnSale")
	defer span.End()

	res := &ReturnResult{Refund: req.Refund}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ref, err := s.reference(ctx, req.Reference, PrefixReturn)
		if err != nil {
			return err
		}
		res.Reference = ref

		entry, err := s.journal.RecordSalesReturn(ctx, ref, req.Refund, req.OrderReference)
		if err != nil {
			return err
		}
		res.JournalEntry = entry

		return s.events.Publish(ctx, domain.Event{
			AggregateType: "sales_return",
			AggregateID:   entry.ID,
			EventType:     domain.EventSaleReturned,
			Payload: map[string]any{
				"reference":      ref,
				"orderReference": req.OrderReference,
				"reason":         req.Reason,
				"refund":         req.Refund,
			},
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info(ctx, "sales return booked",
		"reference", res.Reference,
		"order_reference", req.OrderReference,
		"refund", req.Refund.String())
	return res, nil
}
