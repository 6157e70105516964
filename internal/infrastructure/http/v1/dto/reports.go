package dto

import (
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/reports"
)

// ValuationRequest filters GET /reports/valuation.
type ValuationRequest struct {
	ProductIDs []string `form:"productId"`
}

// ToFilter converts to the report filter, skipping malformed ids.
func (r ValuationRequest) ToFilter() reports.OnHandFilter {
	var f reports.OnHandFilter
	for _, s := range r.ProductIDs {
		if pid, err := id.Parse(s); err == nil {
			f.ProductIDs = append(f.ProductIDs, pid)
		}
	}
	return f
}

// AgeingRequest sets the ageing report date.
type AgeingRequest struct {
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02"`
}
