// Package catalog holds the Product master data that the ledger tracks stock for.
package catalog

import (
	"context"
	"strings"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
	"stockbook/internal/core/types"
)

// Product is a stock-keeping unit.
type Product struct {
	entity.BaseEntity

	// Code is the unique SKU
	Code string `db:"code" json:"code"`

	Name     string `db:"name" json:"name"`
	Category string `db:"category" json:"category"`

	// Price is the default selling price
	Price types.Money `db:"price" json:"price"`

	// Cost is the standard cost used for stock-count adjustments.
	// Updated to the last purchase price on receipt when requested.
	Cost types.Money `db:"cost" json:"cost"`

	// TotalQuantity is the denormalized sum of batch quantities,
	// maintained by the movement orchestrator.
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`

	MinStockThreshold types.Quantity `db:"min_stock_threshold" json:"minStockThreshold"`
}

// NewProduct creates a Product with zero stock.
func NewProduct(code, name string, price, cost types.Money) *Product {
	return &Product{
		BaseEntity: entity.NewBaseEntity(),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
		Price:      price,
		Cost:       cost,
	}
}

// Validate checks field invariants without touching storage.
func (p *Product) Validate(_ context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").WithDetail("field", "price")
	}
	if p.Cost.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").WithDetail("field", "cost")
	}
	if p.MinStockThreshold.IsNegative() {
		return apperror.NewValidation("minimum stock threshold cannot be negative").
			WithDetail("field", "minStockThreshold")
	}
	if p.TotalQuantity.IsNegative() {
		return apperror.NewValidation("total quantity cannot be negative").
			WithDetail("field", "totalQuantity")
	}
	return nil
}

// IsLowStock reports whether the product is at or below its minimum threshold.
func (p *Product) IsLowStock() bool {
	return p.TotalQuantity <= p.MinStockThreshold
}

// Valuation returns the product's stock value at standard cost.
func (p *Product) Valuation() types.Money {
	return p.TotalQuantity.Cost(p.Cost)
}
