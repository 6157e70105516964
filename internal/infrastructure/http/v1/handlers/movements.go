package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/movements"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// MovementHandler handles stock movement endpoints.
// Every write runs as one unit of work in movements.Service.
type MovementHandler struct {
	*BaseHandler
	service *movements.Service
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service *movements.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// RegisterRoutes registers movement routes.
func (h *MovementHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/inbound", h.Inbound)
	rg.POST("/receipts", h.Receive)
	rg.POST("/sales", h.Sale)
	rg.POST("/stock-counts", h.StockCount)
	rg.POST("/sales-returns", h.SalesReturn)
	rg.GET("/verify", h.Verify)
}

// Inbound handles POST /movements/inbound
func (h *MovementHandler) Inbound(c *gin.Context) {
	var req dto.InboundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Inbound(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Receive handles POST /movements/receipts
func (h *MovementHandler) Receive(c *gin.Context) {
	var req dto.ReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Receive(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Sale handles POST /movements/sales
func (h *MovementHandler) Sale(c *gin.Context) {
	var req dto.SaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ConfirmSale(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// StockCount handles POST /movements/stock-counts
func (h *MovementHandler) StockCount(c *gin.Context) {
	var req dto.StockCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Adjust(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// SalesReturn handles POST /movements/sales-returns
func (h *MovementHandler) SalesReturn(c *gin.Context) {
	var req dto.SalesReturnRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.ReturnSale(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, result)
}

// Verify compares product totals with batch sums.
// GET /movements/verify
func (h *MovementHandler) Verify(c *gin.Context) {
	report, err := h.service.VerifyStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
