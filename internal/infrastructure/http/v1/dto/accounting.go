package dto

import (
	"time"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/accounting"
)

// JournalLineRequest is one manual journal line.
type JournalLineRequest struct {
	AccountCode string      `json:"accountCode" binding:"required"`
	Debit       types.Money `json:"debit"`
	Credit      types.Money `json:"credit"`
}

// PostEntryRequest posts a manual journal entry.
type PostEntryRequest struct {
	Date        *time.Time           `json:"date,omitempty"`
	Reference   string               `json:"reference,omitempty"`
	Description string               `json:"description" binding:"max=1000"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// ToDomain converts to the engine request.
func (r *PostEntryRequest) ToDomain() accounting.PostRequest {
	req := accounting.PostRequest{
		Reference:   r.Reference,
		Description: r.Description,
		Lines:       make([]accounting.Line, 0, len(r.Lines)),
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, accounting.Line{AccountCode: l.AccountCode, Debit: l.Debit, Credit: l.Credit})
	}
	return req
}

// DeleteEntryRequest carries the reason recorded in the audit log.
type DeleteEntryRequest struct {
	Reason string `json:"reason" form:"reason"`
}

// EntryListRequest filters GET /accounting/journal.
type EntryListRequest struct {
	PaginationRequest
	From      *time.Time `form:"from" time_format:"2006-01-02"`
	To        *time.Time `form:"to" time_format:"2006-01-02"`
	Reference string     `form:"reference"`
}

// ToFilter converts to the engine filter.
func (r EntryListRequest) ToFilter() accounting.EntryFilter {
	return accounting.EntryFilter{
		ListFilter: r.PaginationRequest.ToFilter(),
		From:       r.From,
		To:         endOfDay(r.To),
		Reference:  r.Reference,
	}
}

// PeriodRequest bounds the profit and loss statement.
type PeriodRequest struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// Bounds returns the period with To extended to the end of its day.
func (r PeriodRequest) Bounds() (from, to *time.Time) {
	return r.From, endOfDay(r.To)
}

func endOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	end := t.Add(24*time.Hour - time.Nanosecond)
	return &end
}
