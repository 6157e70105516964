// Package dto holds the JSON and query shapes of the ledger API and their
// conversions to domain requests.
package dto

import (
	"stockbook/internal/domain"
)

// PaginationRequest is embedded by list endpoints.
type PaginationRequest struct {
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int    `form:"offset" binding:"omitempty,min=0"`
	Search string `form:"search"`
}

func (p PaginationRequest) ToFilter() domain.ListFilter {
	return domain.ListFilter{Search: p.Search, Limit: p.Limit, Offset: p.Offset}.Normalize()
}

// ListResponse is one page of T.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// FromListResult maps a domain page item by item. Items is never null.
func FromListResult[S, T any](r domain.ListResult[S], mapFn func(S) T) ListResponse[T] {
	items := make([]T, len(r.Items))
	for i, it := range r.Items {
		items[i] = mapFn(it)
	}
	return ListResponse[T]{Items: items, TotalCount: r.TotalCount, Limit: r.Limit, Offset: r.Offset}
}
