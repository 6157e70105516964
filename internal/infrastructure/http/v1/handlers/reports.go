package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ReportHandler handles stock report endpoints.
type ReportHandler struct {
	*BaseHandler
	service *reports.Service
	ledger  *batches.Ledger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, service *reports.Service, ledger *batches.Ledger) *ReportHandler {
	return &ReportHandler{BaseHandler: base, service: service, ledger: ledger}
}

// RegisterRoutes registers report routes.
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/valuation", h.Valuation)
	rg.GET("/ageing", h.Ageing)
	rg.GET("/availability/:productId", h.Availability)
}

// Valuation handles GET /reports/valuation?productId=...
func (h *ReportHandler) Valuation(c *gin.Context) {
	var req dto.ValuationRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.service.GetValuation(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Ageing handles GET /reports/ageing?asOf=YYYY-MM-DD
func (h *ReportHandler) Ageing(c *gin.Context) {
	var req dto.AgeingRequest
	if !h.BindQuery(c, &req) {
		return
	}

	report, err := h.service.GetAgeingReport(c.Request.Context(), req.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Availability returns the sum of remaining batch quantities.
// GET /reports/availability/:productId
func (h *ReportHandler) Availability(c *gin.Context) {
	pid, ok := h.ParamID(c, "productId")
	if !ok {
		return
	}

	qty, err := h.ledger.TotalAvailable(c.Request.Context(), pid)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AvailabilityResponse{ProductID: pid.String(), Available: qty})
}
