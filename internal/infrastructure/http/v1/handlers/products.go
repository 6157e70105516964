package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	catalog   *catalog.Service
	ledger    *batches.Ledger
	movements *movements.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, cat *catalog.Service, ledger *batches.Ledger, mv *movements.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, catalog: cat, ledger: ledger, movements: mv}
}

// RegisterRoutes registers product routes.
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/low-stock", h.LowStock)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/batches", h.Batches)
	rg.GET("/:id/movements", h.Movements)
}

// Create registers a product with zero stock.
// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.catalog.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProduct(p))
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ProductListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.catalog.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result, func(p *catalog.Product) dto.ProductResponse { return dto.FromProduct(p) }))
}

// LowStock lists products at or below their threshold.
// GET /products/low-stock
func (h *ProductHandler) LowStock(c *gin.Context) {
	list, err := h.catalog.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromProducts(list)})
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	pid, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetByID(c.Request.Context(), pid)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// Batches lists every batch of a product, oldest first.
// GET /products/:id/batches
func (h *ProductHandler) Batches(c *gin.Context) {
	pid, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.catalog.GetByID(ctx, pid); err != nil {
		h.Error(c, err)
		return
	}
	list, err := h.ledger.Batches(ctx, pid)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromBatches(list)})
}

// Movements lists a product's movement history with allocations.
// GET /products/:id/movements
func (h *ProductHandler) Movements(c *gin.Context) {
	pid, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.HistoryRequest
	if !h.BindQuery(c, &req) {
		return
	}

	list, err := h.movements.History(c.Request.Context(), pid, req.Limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": list})
}
