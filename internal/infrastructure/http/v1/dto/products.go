package dto

import (
	"time"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
)

// CreateProductRequest registers a product. Stock enters through receipts.
type CreateProductRequest struct {
	Code              string         `json:"code" binding:"required,max=64"`
	Name              string         `json:"name" binding:"required,max=255"`
	Category          string         `json:"category" binding:"max=128"`
	Price             types.Money    `json:"price"`
	Cost              types.Money    `json:"cost"`
	MinStockThreshold types.Quantity `json:"minStockThreshold"`
}

// ToEntity converts request to domain entity.
func (r *CreateProductRequest) ToEntity() *catalog.Product {
	p := catalog.NewProduct(r.Code, r.Name, r.Price, r.Cost)
	p.Category = r.Category
	p.MinStockThreshold = r.MinStockThreshold
	return p
}

// ProductListRequest filters GET /products.
type ProductListRequest struct {
	PaginationRequest
	LowStockOnly bool `form:"lowStock"`
}

// ToFilter converts to the catalog filter.
func (r ProductListRequest) ToFilter() catalog.ListFilter {
	return catalog.ListFilter{ListFilter: r.PaginationRequest.ToFilter(), LowStockOnly: r.LowStockOnly}
}

// ProductResponse is the API view of a product.
type ProductResponse struct {
	ID                string         `json:"id"`
	Version           int            `json:"version"`
	Code              string         `json:"code"`
	Name              string         `json:"name"`
	Category          string         `json:"category,omitempty"`
	Price             types.Money    `json:"price"`
	Cost              types.Money    `json:"cost"`
	TotalQuantity     types.Quantity `json:"totalQuantity"`
	MinStockThreshold types.Quantity `json:"minStockThreshold"`
	LowStock          bool           `json:"lowStock"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromProduct creates ProductResponse from the domain entity.
func FromProduct(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID.String(),
		Version:           p.Version,
		Code:              p.Code,
		Name:              p.Name,
		Category:          p.Category,
		Price:             p.Price,
		Cost:              p.Cost,
		TotalQuantity:     p.TotalQuantity,
		MinStockThreshold: p.MinStockThreshold,
		LowStock:          p.IsLowStock(),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// FromProducts maps a slice of products.
func FromProducts(list []*catalog.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, FromProduct(p))
	}
	return out
}

// BatchResponse is the API view of a batch.
type BatchResponse struct {
	*batches.Batch
	Value     types.Money `json:"value"`
	Exhausted bool        `json:"exhausted"`
}

// FromBatches maps batches with their remaining value.
func FromBatches(list []*batches.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(list))
	for _, b := range list {
		out = append(out, BatchResponse{Batch: b, Value: b.Value(), Exhausted: b.IsExhausted()})
	}
	return out
}

// AvailabilityResponse is the ledger total for a product.
type AvailabilityResponse struct {
	ProductID string         `json:"productId"`
	Available types.Quantity `json:"available"`
}
