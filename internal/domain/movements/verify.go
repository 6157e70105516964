package movements

import (
	"context"
	"fmt"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalog"
)

// StockDiscrepancy is a product whose denormalized total differs from its batches.
type StockDiscrepancy struct {
	ProductID    id.ID          `json:"productId"`
	Code         string         `json:"code"`
	ProductTotal types.Quantity `json:"productTotal"`
	BatchTotal   types.Quantity `json:"batchTotal"`
}

// StockVerification is the result of VerifyStock.
type StockVerification struct {
	CheckedProducts int                `json:"checkedProducts"`
	Discrepancies   []StockDiscrepancy `json:"discrepancies"`
	OK              bool               `json:"ok"`
}

// VerifyStock compares every product's total with the sum of its batches.
// Under PolicyProjection, stock counts are expected to open gaps.
func (s *Service) VerifyStock(ctx context.Context) (*StockVerification, error) {
	available, err := s.ledger.AvailableByProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum batches: %w", err)
	}

	report := &StockVerification{}
	filter := catalog.ListFilter{ListFilter: domain.ListFilter{Limit: domain.MaxPageSize}}
	for {
		page, err := s.products.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		for _, p := range page.Items {
			report.CheckedProducts++
			if batchTotal := available[p.ID]; batchTotal != p.TotalQuantity {
				report.Discrepancies = append(report.Discrepancies, StockDiscrepancy{
					ProductID:    p.ID,
					Code:         p.Code,
					ProductTotal: p.TotalQuantity,
					BatchTotal:   batchTotal,
				})
			}
		}
		if len(page.Items) < filter.Limit {
			break
		}
		filter.Offset += filter.Limit
	}
	report.OK = len(report.Discrepancies) == 0
	return report, nil
}
