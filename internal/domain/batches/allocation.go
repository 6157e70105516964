package batches

import (
	"bytes"
	"sort"

	"stockbook/internal/core/types"
)

// SortForAllocation orders batches for consumption: earliest expiry first,
// batches without expiry last, then oldest creation, then id.
func SortForAllocation(list []*Batch) {
	sort.SliceStable(list, func(i, j int) bool {
		return allocatesBefore(list[i], list[j])
	})
}

func allocatesBefore(a, b *Batch) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate == nil:
		return true
	case a.ExpiryDate == nil && b.ExpiryDate != nil:
		return false
	case a.ExpiryDate != nil && !a.ExpiryDate.Equal(*b.ExpiryDate):
		return a.ExpiryDate.Before(*b.ExpiryDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Available sums current quantities.
func Available(list []*Batch) types.Quantity {
	var total types.Quantity
	for _, b := range list {
		if b.CurrentQuantity > 0 {
			total += b.CurrentQuantity
		}
	}
	return total
}

// Plan computes a greedy allocation of needed over list, which must already be
// ordered by SortForAllocation. It does not mutate the batches. The returned
// shortfall is the part of needed that the batches could not cover.
func Plan(list []*Batch, needed types.Quantity) (allocs []Allocation, shortfall types.Quantity) {
	remaining := needed
	for _, b := range list {
		if remaining <= 0 {
			break
		}
		if b.CurrentQuantity <= 0 {
			continue
		}
		take := types.MinQuantity(b.CurrentQuantity, remaining)
		allocs = append(allocs, Allocation{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    take,
			UnitCost:    b.UnitCost,
		})
		remaining -= take
	}
	return allocs, remaining
}
