package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/infrastructure/storage/memory"
)

func newService() (*catalog.Service, *memory.Store) {
	store := memory.New()
	return catalog.NewService(store.Products(), store), store
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p := catalog.NewProduct("  SKU-1 ", "Widget", types.MustMoney("9.99"), types.MustMoney("4"))
	p.TotalQuantity = types.NewQuantity(100)
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, "SKU-1", p.Code)

	got, err := svc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalQuantity, "stock only enters through receipts")
	assert.Equal(t, 1, got.Version)
}

func TestCreate_RejectsDuplicateCode(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, catalog.NewProduct("DUP", "First", types.Zero(), types.Zero())))
	err := svc.Create(ctx, catalog.NewProduct("DUP", "Second", types.Zero(), types.Zero()))
	assert.True(t, apperror.IsDuplicate(err))
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := map[string]*catalog.Product{
		"empty code":     catalog.NewProduct("", "Name", types.Zero(), types.Zero()),
		"empty name":     catalog.NewProduct("X", " ", types.Zero(), types.Zero()),
		"negative price": catalog.NewProduct("X", "Name", types.MustMoney("-1"), types.Zero()),
		"negative cost":  catalog.NewProduct("X", "Name", types.Zero(), types.MustMoney("-1")),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			assert.True(t, apperror.IsValidation(svc.Create(ctx, p)))
		})
	}
}

func TestList(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	for _, code := range []string{"B-2", "A-1", "C-3"} {
		require.NoError(t, svc.Create(ctx, catalog.NewProduct(code, "Item "+code, types.Zero(), types.Zero())))
	}

	res, err := svc.List(ctx, catalog.ListFilter{ListFilter: domain.ListFilter{Limit: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.TotalCount)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "A-1", res.Items[0].Code)

	res, err = svc.List(ctx, catalog.ListFilter{ListFilter: domain.ListFilter{Search: "c-3"}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 50, res.Limit)
}

func TestLowStock(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	low := catalog.NewProduct("LOW", "Low", types.Zero(), types.Zero())
	low.MinStockThreshold = types.NewQuantity(5)
	ok := catalog.NewProduct("OK", "Ok", types.Zero(), types.Zero())
	ok.MinStockThreshold = types.NewQuantity(5)
	require.NoError(t, svc.Create(ctx, low))
	require.NoError(t, svc.Create(ctx, ok))

	ok.TotalQuantity = types.NewQuantity(6)
	require.NoError(t, store.Products().Update(ctx, ok))
	assert.Equal(t, 2, ok.Version)

	list, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LOW", list[0].Code)
}

func TestUpdate_VersionConflict(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	p := catalog.NewProduct("V", "Versioned", types.Zero(), types.Zero())
	require.NoError(t, svc.Create(ctx, p))

	stale := *p
	require.NoError(t, store.Products().Update(ctx, p))
	err := store.Products().Update(ctx, &stale)
	assert.True(t, apperror.IsConcurrentModification(err))
}

func TestProduct_Valuation(t *testing.T) {
	p := catalog.NewProduct("VAL", "Valued", types.Zero(), types.MustMoney("2.5"))
	p.TotalQuantity = types.NewQuantity(4)
	assert.True(t, p.Valuation().Equal(types.MustMoney("10")))
	assert.False(t, p.IsLowStock())
}
