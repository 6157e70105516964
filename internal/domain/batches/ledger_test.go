package batches_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/batches"
	"stockbook/internal/infrastructure/storage/memory"
)

func newLedger(t *testing.T) (*batches.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	return batches.NewLedger(store.Batches(), store), store
}

func qty(units int64) types.Quantity { return types.NewQuantity(units) }

func TestCreateBatch_RejectsInvalidParameters(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	pid := id.New()

	cases := map[string]batches.CreateParams{
		"zero quantity":     {ProductID: pid, Quantity: 0, UnitCost: types.MustMoney("1")},
		"negative quantity": {ProductID: pid, Quantity: qty(-3), UnitCost: types.MustMoney("1")},
		"negative cost":     {ProductID: pid, Quantity: qty(3), UnitCost: types.MustMoney("-0.01")},
		"missing product":   {Quantity: qty(3), UnitCost: types.MustMoney("1")},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ledger.CreateBatch(ctx, params)
			require.Error(t, err)
			assert.True(t, apperror.IsInvalidBatchParameters(err), err.Error())
		})
	}
}

func TestCreateBatch_UniqueNumbersUnderFixedClock(t *testing.T) {
	ledger, _ := newLedger(t)
	fixed := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	ledger.WithClock(func() time.Time { return fixed })
	ctx := context.Background()
	pid := id.New()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		b, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(1), UnitCost: types.Zero()})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(b.BatchNumber, "BATCH-20261016-"+pid.String()+"-"), b.BatchNumber)
		assert.False(t, seen[b.BatchNumber], "duplicate batch number %s", b.BatchNumber)
		seen[b.BatchNumber] = true
		assert.Equal(t, b.InitialQuantity, b.CurrentQuantity)
	}
}

func TestAllocate_ConsumesEarliestExpiryFirst(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	pid := id.New()
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	bMar, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(10), UnitCost: types.MustMoney("3"), ExpiryDate: &mar})
	require.NoError(t, err)
	bNone, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(10), UnitCost: types.MustMoney("5")})
	require.NoError(t, err)
	bJan, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(10), UnitCost: types.MustMoney("2"), ExpiryDate: &jan})
	require.NoError(t, err)

	allocs, err := ledger.Allocate(ctx, pid, qty(25))
	require.NoError(t, err)
	require.Len(t, allocs, 3)
	assert.Equal(t, bJan.ID, allocs[0].BatchID)
	assert.Equal(t, bMar.ID, allocs[1].BatchID)
	assert.Equal(t, bNone.ID, allocs[2].BatchID)
	assert.Equal(t, qty(5), allocs[2].Quantity)
	// 10*2 + 10*3 + 5*5
	assert.True(t, batches.TotalCost(allocs).Equal(types.MustMoney("75")))

	left, err := ledger.TotalAvailable(ctx, pid)
	require.NoError(t, err)
	assert.Equal(t, qty(5), left)
}

func TestAllocate_InsufficientLeavesBatchesUntouched(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	pid := id.New()

	_, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(4), UnitCost: types.MustMoney("1")})
	require.NoError(t, err)
	_, err = ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(3), UnitCost: types.MustMoney("1")})
	require.NoError(t, err)

	_, err = ledger.Allocate(ctx, pid, qty(8))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	list, err := ledger.Batches(ctx, pid)
	require.NoError(t, err)
	for _, b := range list {
		assert.Equal(t, b.InitialQuantity, b.CurrentQuantity)
	}

	_, err = ledger.Allocate(ctx, pid, 0)
	assert.True(t, apperror.IsValidation(err))
}

func TestAllocate_ConcurrentCallersNeverOversubscribe(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	pid := id.New()

	_, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(10), UnitCost: types.MustMoney("1")})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Allocate(ctx, pid, qty(1)); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	left, err := ledger.TotalAvailable(ctx, pid)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestRecordAllocations(t *testing.T) {
	ledger, _ := newLedger(t)
	ctx := context.Background()
	pid := id.New()

	_, err := ledger.CreateBatch(ctx, batches.CreateParams{ProductID: pid, Quantity: qty(6), UnitCost: types.MustMoney("2.5")})
	require.NoError(t, err)
	allocs, err := ledger.Allocate(ctx, pid, qty(4))
	require.NoError(t, err)

	movementID := id.New()
	require.NoError(t, ledger.RecordAllocations(ctx, movementID, allocs))
	require.NoError(t, ledger.RecordAllocations(ctx, id.New(), nil))

	records, err := ledger.AllocationRecords(ctx, []id.ID{movementID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, qty(4), records[0].Quantity)
	assert.True(t, records[0].UnitCost.Equal(types.MustMoney("2.5")))
}
