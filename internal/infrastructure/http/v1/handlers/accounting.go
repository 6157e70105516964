package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/accounting"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// AccountingHandler exposes the journal engine and financial statements.
type AccountingHandler struct {
	*BaseHandler
	engine *accounting.Engine
}

// NewAccountingHandler creates a new accounting handler.
func NewAccountingHandler(base *BaseHandler, engine *accounting.Engine) *AccountingHandler {
	return &AccountingHandler{BaseHandler: base, engine: engine}
}

// RegisterRoutes registers accounting routes.
func (h *AccountingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/accounts", h.Accounts)

	journal := rg.Group("/journal")
	journal.GET("", h.ListEntries)
	journal.POST("", h.PostEntry)
	journal.GET("/:id", h.GetEntry)
	journal.DELETE("/:id", h.DeleteEntry)

	rg.GET("/trial-balance", h.TrialBalance)
	rg.GET("/balance-sheet", h.BalanceSheet)
	rg.GET("/profit-loss", h.ProfitAndLoss)
	rg.GET("/verify", h.Verify)
}

// Accounts handles GET /accounting/accounts
func (h *AccountingHandler) Accounts(c *gin.Context) {
	list, err := h.engine.Accounts(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": list})
}

// ListEntries handles GET /accounting/journal
func (h *AccountingHandler) ListEntries(c *gin.Context) {
	var req dto.EntryListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.engine.Entries(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetEntry handles GET /accounting/journal/:id
func (h *AccountingHandler) GetEntry(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.engine.Entry(c.Request.Context(), entryID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, entry)
}

// PostEntry posts a manual balanced entry.
// POST /accounting/journal
func (h *AccountingHandler) PostEntry(c *gin.Context) {
	var req dto.PostEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	entry, err := h.engine.Post(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, entry)
}

// DeleteEntry reverses and removes an entry. The reason goes to the audit log.
// DELETE /accounting/journal/:id
func (h *AccountingHandler) DeleteEntry(c *gin.Context) {
	entryID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.DeleteEntryRequest
	if c.Request.ContentLength > 0 {
		if !h.BindJSON(c, &req) {
			return
		}
	} else if !h.BindQuery(c, &req) {
		return
	}

	if err := h.engine.DeleteEntry(c.Request.Context(), entryID, req.Reason); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// TrialBalance handles GET /accounting/trial-balance
func (h *AccountingHandler) TrialBalance(c *gin.Context) {
	tb, err := h.engine.TrialBalance(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, tb)
}

// BalanceSheet handles GET /accounting/balance-sheet
func (h *AccountingHandler) BalanceSheet(c *gin.Context) {
	bs, err := h.engine.BalanceSheet(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, bs)
}

// ProfitAndLoss handles GET /accounting/profit-loss?from=&to=
func (h *AccountingHandler) ProfitAndLoss(c *gin.Context) {
	var req dto.PeriodRequest
	if !h.BindQuery(c, &req) {
		return
	}

	from, to := req.Bounds()
	pl, err := h.engine.ProfitAndLoss(c.Request.Context(), from, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pl)
}

// Verify checks entry balance and stored account balances.
// GET /accounting/verify
func (h *AccountingHandler) Verify(c *gin.Context) {
	report, err := h.engine.Verify(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
