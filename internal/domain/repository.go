// Package domain holds the types shared by the ledger domain packages:
// paging and the outbox event contract.
package domain

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ListFilter pages and searches master-data listings.
type ListFilter struct {
	Search string // case-insensitive match on code or name
	Limit  int
	Offset int
}

// Normalize replaces an out-of-range limit with DefaultPageSize and a
// negative offset with zero.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = DefaultPageSize
	}
	f.Offset = max(f.Offset, 0)
	return f
}

// ListResult is one page of T plus the unpaged total.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
