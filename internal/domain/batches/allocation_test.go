package batches

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestSortForAllocation_ExpiryThenCreation(t *testing.T) {
	base := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	march := &Batch{ID: id.New(), BatchNumber: "march", ExpiryDate: date(2024, 3, 1), CreatedAt: base}
	noExpiry := &Batch{ID: id.New(), BatchNumber: "none", CreatedAt: base.Add(-time.Hour)}
	january := &Batch{ID: id.New(), BatchNumber: "january", ExpiryDate: date(2024, 1, 1), CreatedAt: base.Add(time.Hour)}

	orders := [][]*Batch{
		{march, noExpiry, january},
		{noExpiry, january, march},
		{january, march, noExpiry},
	}
	for _, list := range orders {
		SortForAllocation(list)
		got := []string{list[0].BatchNumber, list[1].BatchNumber, list[2].BatchNumber}
		assert.Equal(t, []string{"january", "march", "none"}, got)
	}
}

func TestSortForAllocation_SameExpiryOldestFirst(t *testing.T) {
	exp := date(2024, 6, 1)
	older := &Batch{ID: id.New(), BatchNumber: "older", ExpiryDate: exp, CreatedAt: time.Unix(100, 0)}
	newer := &Batch{ID: id.New(), BatchNumber: "newer", ExpiryDate: exp, CreatedAt: time.Unix(200, 0)}

	list := []*Batch{newer, older}
	SortForAllocation(list)
	assert.Equal(t, "older", list[0].BatchNumber)

	a := &Batch{ID: id.New(), BatchNumber: "a", CreatedAt: time.Unix(100, 0)}
	b := &Batch{ID: id.New(), BatchNumber: "b", CreatedAt: time.Unix(200, 0)}
	list = []*Batch{b, a}
	SortForAllocation(list)
	assert.Equal(t, "a", list[0].BatchNumber)
}

func TestPlan_Greedy(t *testing.T) {
	first := &Batch{ID: id.New(), BatchNumber: "first", CurrentQuantity: types.NewQuantity(30), UnitCost: types.MustMoney("10")}
	empty := &Batch{ID: id.New(), BatchNumber: "empty", CurrentQuantity: 0, UnitCost: types.MustMoney("11")}
	second := &Batch{ID: id.New(), BatchNumber: "second", CurrentQuantity: types.NewQuantity(50), UnitCost: types.MustMoney("12")}
	list := []*Batch{first, empty, second}

	allocs, shortfall := Plan(list, types.NewQuantity(45))
	require.Len(t, allocs, 2)
	assert.Zero(t, shortfall)
	assert.Equal(t, types.NewQuantity(30), allocs[0].Quantity)
	assert.Equal(t, types.NewQuantity(15), allocs[1].Quantity)
	assert.Equal(t, "second", allocs[1].BatchNumber)
	assert.True(t, TotalCost(allocs).Equal(types.MustMoney("480")), TotalCost(allocs).String())
	assert.Equal(t, types.NewQuantity(45), TotalQuantity(allocs))

	// Plan never mutates.
	assert.Equal(t, types.NewQuantity(30), first.CurrentQuantity)
}

func TestPlan_Shortfall(t *testing.T) {
	list := []*Batch{{ID: id.New(), CurrentQuantity: types.NewQuantity(5), UnitCost: types.Zero()}}

	allocs, shortfall := Plan(list, types.NewQuantity(8))
	assert.Len(t, allocs, 1)
	assert.Equal(t, types.NewQuantity(3), shortfall)
	assert.Equal(t, types.NewQuantity(5), Available(list))
}

func TestBatchNumber(t *testing.T) {
	pid := id.MustParse("0190a3c4-0000-7000-8000-000000000001")
	at := time.Date(2026, 10, 16, 8, 30, 0, 42, time.UTC)

	assert.Equal(t,
		"BATCH-20261016-0190a3c4-0000-7000-8000-000000000001-"+"1792139400000000042",
		BatchNumber(pid, at))
}
