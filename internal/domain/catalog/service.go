package catalog

import (
	"context"
	"fmt"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// Service manages product master data.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a new product. Stock is always zero at creation; it enters
// the ledger through receipts.
func (s *Service) Create(ctx context.Context, p *Product) error {
	p.TotalQuantity = 0
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByCode(ctx, p.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return fmt.Errorf("check code: %w", err)
		}
		if existing != nil {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "product_id", p.ID, "code", p.Code)
	return nil
}

// GetByID returns a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products page by page.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	filter.ListFilter = filter.ListFilter.Normalize()
	return s.repo.List(ctx, filter)
}

// LowStock lists products at or below their minimum threshold.
func (s *Service) LowStock(ctx context.Context) ([]*Product, error) {
	res, err := s.repo.List(ctx, ListFilter{
		ListFilter:   domain.ListFilter{Limit: domain.MaxPageSize},
		LowStockOnly: true,
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}
