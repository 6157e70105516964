package catalog

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/domain"
)

// ListFilter narrows product listings.
type ListFilter struct {
	domain.ListFilter

	// LowStockOnly keeps products with total_quantity <= min_stock_threshold
	LowStockOnly bool
}

// Repository defines the interface for Product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error

	GetByID(ctx context.Context, id id.ID) (*Product, error)

	GetByCode(ctx context.Context, code string) (*Product, error)

	// GetForUpdate retrieves products with row locks, acquired in ascending id order.
	// Must be called inside a transaction. Missing ids yield a NotFound error.
	GetForUpdate(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error)

	// Update persists quantity, cost and attribute changes with an optimistic version check.
	// On success p.Version is the new version.
	Update(ctx context.Context, p *Product) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error)
}
