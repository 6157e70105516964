package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/movements"
)

// --- Receiving ---

// InboundRequest receives one product into a new batch.
type InboundRequest struct {
	ProductID          id.ID          `json:"productId" binding:"required"`
	Quantity           types.Quantity `json:"quantity"`
	UnitCost           types.Money    `json:"unitCost"`
	ExpiryDate         *time.Time     `json:"expiryDate,omitempty"`
	Supplier           string         `json:"supplier,omitempty"`
	Reference          string         `json:"reference,omitempty"`
	UpdateStandardCost bool           `json:"updateStandardCost,omitempty"`
}

// ToDomain converts to the orchestrator request.
func (r *InboundRequest) ToDomain() movements.InboundRequest {
	return movements.InboundRequest{
		ProductID:          r.ProductID,
		Quantity:           r.Quantity,
		UnitCost:           r.UnitCost,
		ExpiryDate:         r.ExpiryDate,
		Supplier:           r.Supplier,
		Reference:          r.Reference,
		UpdateStandardCost: r.UpdateStandardCost,
	}
}

// ReceiptLineRequest is one purchase-order line.
type ReceiptLineRequest struct {
	ProductID  id.ID          `json:"productId" binding:"required"`
	Quantity   types.Quantity `json:"quantity"`
	UnitCost   types.Money    `json:"unitCost"`
	ExpiryDate *time.Time     `json:"expiryDate,omitempty"`
}

// ReceiptRequest receives a multi-line purchase order.
type ReceiptRequest struct {
	Reference          string               `json:"reference,omitempty"`
	Supplier           string               `json:"supplier,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	Lines              []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
	UpdateStandardCost bool                 `json:"updateStandardCost,omitempty"`
}

// ToDomain converts to the orchestrator request.
func (r *ReceiptRequest) ToDomain() movements.ReceiptRequest {
	req := movements.ReceiptRequest{
		Reference:          r.Reference,
		Supplier:           r.Supplier,
		Notes:              r.Notes,
		UpdateStandardCost: r.UpdateStandardCost,
		Lines:              make([]movements.ReceiptLine, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, movements.ReceiptLine{
			ProductID:  l.ProductID,
			Quantity:   l.Quantity,
			UnitCost:   l.UnitCost,
			ExpiryDate: l.ExpiryDate,
		})
	}
	return req
}

// --- Sales ---

// SaleLineRequest is one order line. UnitPrice defaults to the product price.
type SaleLineRequest struct {
	ProductID id.ID          `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity"`
	UnitPrice *types.Money   `json:"unitPrice,omitempty"`
}

// SaleRequest confirms a sales order.
type SaleRequest struct {
	Reference  string            `json:"reference,omitempty"`
	Customer   string            `json:"customer,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Lines      []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	GrandTotal *types.Money      `json:"grandTotal,omitempty"`
}

// ToDomain converts to the orchestrator request.
func (r *SaleRequest) ToDomain() movements.SaleRequest {
	req := movements.SaleRequest{
		Reference:  r.Reference,
		Customer:   r.Customer,
		Notes:      r.Notes,
		GrandTotal: r.GrandTotal,
		Lines:      make([]movements.SaleLine, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, movements.SaleLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return req
}

// --- Stock count ---

// CountLineRequest is the physically counted quantity of one product.
type CountLineRequest struct {
	ProductID        id.ID          `json:"productId" binding:"required"`
	PhysicalQuantity types.Quantity `json:"physicalQuantity"`
}

// StockCountRequest reconciles counted quantities.
type StockCountRequest struct {
	Reference string             `json:"reference,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	Counts    []CountLineRequest `json:"counts" binding:"required,min=1,dive"`
}

// ToDomain converts to the orchestrator request.
func (r *StockCountRequest) ToDomain() movements.StockCountRequest {
	req := movements.StockCountRequest{
		Reference: r.Reference,
		Notes:     r.Notes,
		Counts:    make([]movements.CountLine, 0, len(r.Counts)),
	}
	for _, c := range r.Counts {
		req.Counts = append(req.Counts, movements.CountLine{
			ProductID:        c.ProductID,
			PhysicalQuantity: c.PhysicalQuantity,
		})
	}
	return req
}

// --- Returns ---

// SalesReturnRequest refunds a customer.
type SalesReturnRequest struct {
	Reference      string      `json:"reference,omitempty"`
	OrderReference string      `json:"orderReference,omitempty"`
	Reason         string      `json:"reason,omitempty"`
	Refund         types.Money `json:"refund"`
}

// ToDomain converts to the orchestrator request.
func (r *SalesReturnRequest) ToDomain() movements.ReturnRequest {
	return movements.ReturnRequest{
		Reference:      r.Reference,
		OrderReference: r.OrderReference,
		Reason:         r.Reason,
		Refund:         r.Refund,
	}
}

// HistoryRequest limits GET /products/:id/movements.
type HistoryRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}
