package movements_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	catalog  *catalog.Service
	ledger   *batches.Ledger
	journal  *accounting.Engine
	reports  *reports.Service
	svc      *movements.Service
	accounts []*accounting.Account
}

func newFixture(t *testing.T, opts ...func(*fixture, *movements.Config)) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:    store,
		catalog:  catalog.NewService(store.Products(), store),
		ledger:   batches.NewLedger(store.Batches(), store),
		journal:  accounting.NewEngine(store.Accounting(), store),
		reports:  reports.NewService(store.Reports(), store),
		accounts: accounting.DefaultChart(),
	}
	cfg := movements.Config{
		TxManager: store,
		Products:  store.Products(),
		Ledger:    f.ledger,
		Journal:   f.journal,
		Repo:      store.Movements(),
		Events:    store.Events(),
		Numbers:   store.Numbers(),
	}
	for _, opt := range opts {
		opt(f, &cfg)
	}

	for _, a := range f.accounts {
		a.ID = id.New()
		a.Balance = types.Zero()
	}
	_, err := store.Accounting().EnsureAccounts(context.Background(), f.accounts)
	require.NoError(t, err)

	f.svc = movements.NewService(cfg)
	return f
}

func withoutAccount(code string) func(*fixture, *movements.Config) {
	return func(f *fixture, _ *movements.Config) {
		kept := f.accounts[:0]
		for _, a := range f.accounts {
			if a.Code != code {
				kept = append(kept, a)
			}
		}
		f.accounts = kept
	}
}

func withPolicy(p movements.AdjustmentPolicy) func(*fixture, *movements.Config) {
	return func(_ *fixture, cfg *movements.Config) { cfg.Policy = p }
}

func qty(units int64) types.Quantity { return types.NewQuantity(units) }

func money(s string) types.Money { return types.MustMoney(s) }

func assertMoney(t *testing.T, want string, got types.Money, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, money(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func (f *fixture) product(t *testing.T, code string, price, cost string, threshold int64) *catalog.Product {
	t.Helper()
	p := catalog.NewProduct(code, "Product "+code, money(price), money(cost))
	p.MinStockThreshold = qty(threshold)
	require.NoError(t, f.catalog.Create(context.Background(), p))
	return p
}

func (f *fixture) receive(t *testing.T, productID id.ID, units int64, cost string) *movements.InboundResult {
	t.Helper()
	res, err := f.svc.Inbound(context.Background(), movements.InboundRequest{
		ProductID: productID,
		Quantity:  qty(units),
		UnitCost:  money(cost),
		Supplier:  "Acme",
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) total(t *testing.T, productID id.ID) types.Quantity {
	t.Helper()
	p, err := f.catalog.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.TotalQuantity
}

func (f *fixture) balance(t *testing.T, code string) types.Money {
	t.Helper()
	accounts, err := f.journal.Accounts(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Code == code {
			return a.Balance
		}
	}
	t.Fatalf("account %s not found", code)
	return types.Zero()
}

func (f *fixture) valuation(t *testing.T) types.Money {
	t.Helper()
	v, err := f.reports.CalculateValuation(context.Background())
	require.NoError(t, err)
	return v
}

func TestInboundThenSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-1", "150", "100", 0)

	in := f.receive(t, p.ID, 20, "100")
	require.NotNil(t, in.JournalEntry)
	assert.Equal(t, "RCV-00001", in.Movement.Reference)
	assertMoney(t, "2000", f.valuation(t))
	assertMoney(t, "2000", f.balance(t, accounting.CodeInventory))
	assertMoney(t, "-2000", f.balance(t, accounting.CodeCash))

	sale, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Customer: "Walk-in",
		Lines:    []movements.SaleLine{{ProductID: p.ID, Quantity: qty(5)}},
	})
	require.NoError(t, err)
	assertMoney(t, "500", sale.COGS)
	assertMoney(t, "750", sale.Revenue)
	require.NotNil(t, sale.JournalEntry)

	assertMoney(t, "1500", f.valuation(t))
	assertMoney(t, "750", f.balance(t, accounting.CodeSalesRevenue))
	assertMoney(t, "500", f.balance(t, accounting.CodeCOGS))
	assertMoney(t, "1500", f.balance(t, accounting.CodeInventory))

	available, err := f.ledger.TotalAvailable(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(15), available)
	assert.Equal(t, qty(15), f.total(t, p.ID))

	history, err := f.svc.History(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, movements.MovementOut, history[0].Type)
	require.Len(t, history[0].Allocations, 1)
	assert.Equal(t, qty(5), history[0].Allocations[0].Quantity)

	report, err := f.journal.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK)
}

func TestSale_FIFOAcrossBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-FIFO", "20", "10", 0)

	f.receive(t, p.ID, 10, "10")
	f.receive(t, p.ID, 10, "12")

	sale, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(15)}},
	})
	require.NoError(t, err)
	// 10*10 + 5*12
	assertMoney(t, "160", sale.COGS)
	require.Len(t, sale.Lines, 1)
	assert.Len(t, sale.Lines[0].Allocations, 2)
	assertMoney(t, "60", f.valuation(t))
}

func TestSale_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "SKU-A", "10", "5", 0)
	b := f.product(t, "SKU-B", "10", "5", 0)
	f.receive(t, a.ID, 10, "5")
	f.receive(t, b.ID, 2, "5")

	_, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines: []movements.SaleLine{
			{ProductID: a.ID, Quantity: qty(4)},
			{ProductID: b.ID, Quantity: qty(3)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Details, "shortages")

	assert.Equal(t, qty(10), f.total(t, a.ID))
	assert.Equal(t, qty(2), f.total(t, b.ID))
	assertMoney(t, "60", f.valuation(t))
	assert.True(t, f.balance(t, accounting.CodeSalesRevenue).IsZero())
	assert.Empty(t, f.store.Events().OfType(domain.EventSaleConfirmed))
}

func TestSale_MissingCOGSAccountRollsBackStock(t *testing.T) {
	f := newFixture(t, withoutAccount(accounting.CodeCOGS))
	ctx := context.Background()
	p := f.product(t, "SKU-R", "30", "10", 0)
	f.receive(t, p.ID, 10, "10")

	_, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(4)}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsUnknownAccount(err))

	assert.Equal(t, qty(10), f.total(t, p.ID))
	available, err := f.ledger.TotalAvailable(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), available)
	assert.True(t, f.balance(t, accounting.CodeSalesRevenue).IsZero())

	history, err := f.svc.History(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReceive_MissingInventoryAccountRollsBackBatches(t *testing.T) {
	f := newFixture(t, withoutAccount(accounting.CodeInventory))
	ctx := context.Background()
	p := f.product(t, "SKU-RI", "10", "4", 0)

	_, err := f.svc.Receive(ctx, movements.ReceiptRequest{
		Reference: "PO-9",
		Lines:     []movements.ReceiptLine{{ProductID: p.ID, Quantity: qty(6), UnitCost: money("4")}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsUnknownAccount(err))

	assert.True(t, f.total(t, p.ID).IsZero())
	batchList, err := f.ledger.Batches(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, batchList)
	assert.True(t, f.balance(t, accounting.CodeCash).IsZero())

	history, err := f.svc.History(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, f.store.Events().OfType(domain.EventStockReceived))
}

func TestAdjust_MissingCOGSAccountRollsBackCount(t *testing.T) {
	f := newFixture(t, withoutAccount(accounting.CodeCOGS))
	ctx := context.Background()
	p := f.product(t, "SKU-RA", "10", "3", 0)
	f.receive(t, p.ID, 10, "3")

	for _, physical := range []int64{7, 12} {
		_, err := f.svc.Adjust(ctx, movements.StockCountRequest{
			Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(physical)}},
		})
		require.Error(t, err, "physical %d", physical)
		assert.True(t, apperror.IsUnknownAccount(err))

		assert.Equal(t, qty(10), f.total(t, p.ID))
		batchList, err := f.ledger.Batches(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, batchList, 1, "no correction batch survives")
		available, err := f.ledger.TotalAvailable(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, qty(10), available)
		assertMoney(t, "30", f.balance(t, accounting.CodeInventory))
	}

	history, err := f.svc.History(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Empty(t, f.store.Events().OfType(domain.EventStockAdjusted))
}

func TestSale_TotalBelowBatchesIsInternalError(t *testing.T) {
	f := newFixture(t, withPolicy(movements.PolicyProjection))
	ctx := context.Background()
	p := f.product(t, "SKU-DV", "10", "2", 0)
	f.receive(t, p.ID, 10, "2")
	_, err := f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(3)}},
	})
	require.NoError(t, err)

	_, err = f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(5)}},
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInternal))

	assert.Equal(t, qty(3), f.total(t, p.ID))
	available, err := f.ledger.TotalAvailable(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), available)
	assert.Empty(t, f.store.Events().OfType(domain.EventSaleConfirmed))
}

func TestSale_ConcurrentOrdersNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-C", "10", "4", 0)
	f.receive(t, p.ID, 10, "4")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
				Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(3)}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.True(t, apperror.IsInsufficientStock(err), err.Error())
				fail++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, 5, fail)
	assert.Equal(t, qty(1), f.total(t, p.ID))
	assertMoney(t, "4", f.valuation(t))
}

func TestSale_UsesGrandTotalAndExplicitPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-G", "50", "10", 0)
	f.receive(t, p.ID, 10, "10")

	price := money("40")
	sale, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Reference: "SO-CUSTOM",
		Lines:     []movements.SaleLine{{ProductID: p.ID, Quantity: qty(2), UnitPrice: &price}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SO-CUSTOM", sale.Reference)
	assertMoney(t, "80", sale.Revenue)

	grand := money("90")
	sale, err = f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines:      []movements.SaleLine{{ProductID: p.ID, Quantity: qty(2)}},
		GrandTotal: &grand,
	})
	require.NoError(t, err)
	assertMoney(t, "90", sale.Revenue)
	assertMoney(t, "170", f.balance(t, accounting.CodeSalesRevenue))
}

func TestSale_LowStockEventOnCrossing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-L", "10", "5", 5)
	f.receive(t, p.ID, 10, "5")

	sell := func(units int64) {
		_, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
			Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(units)}},
		})
		require.NoError(t, err)
	}

	sell(4)
	assert.Empty(t, f.store.Events().OfType(domain.EventStockLow))

	sell(1)
	events := f.store.Events().OfType(domain.EventStockLow)
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(movements.LowStockPayload)
	require.True(t, ok)
	assert.Equal(t, qty(5), payload.Quantity)

	sell(1)
	assert.Len(t, f.store.Events().OfType(domain.EventStockLow), 1)

	low, err := f.catalog.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, p.ID, low[0].ID)
}

func TestReceive_MultiLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "SKU-M1", "10", "1", 0)
	b := f.product(t, "SKU-M2", "10", "1", 0)
	exp := time.Now().Add(90 * 24 * time.Hour)

	res, err := f.svc.Receive(ctx, movements.ReceiptRequest{
		Reference: "PO-77",
		Supplier:  "Globex",
		Lines: []movements.ReceiptLine{
			{ProductID: a.ID, Quantity: qty(3), UnitCost: money("4"), ExpiryDate: &exp},
			{ProductID: b.ID, Quantity: qty(2), UnitCost: money("6.5")},
		},
		UpdateStandardCost: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-77", res.Reference)
	assertMoney(t, "25", res.Amount)
	assert.Len(t, res.Batches, 2)
	require.NotNil(t, res.JournalEntry)
	assert.Len(t, res.JournalEntry.Items, 2)

	updated, err := f.catalog.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assertMoney(t, "6.5", updated.Cost)
	assert.Equal(t, qty(2), updated.TotalQuantity)
	assert.Len(t, f.store.Events().OfType(domain.EventStockReceived), 1)
}

func TestReceive_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-V", "10", "1", 0)

	_, err := f.svc.Receive(ctx, movements.ReceiptRequest{})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Inbound(ctx, movements.InboundRequest{ProductID: p.ID, Quantity: 0, UnitCost: money("1")})
	assert.True(t, apperror.IsInvalidBatchParameters(err))

	_, err = f.svc.Inbound(ctx, movements.InboundRequest{ProductID: id.New(), Quantity: qty(1), UnitCost: money("1")})
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdjust_LossAndGain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-ADJ", "150", "100", 0)
	f.receive(t, p.ID, 50, "100")

	res, err := f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(45)}},
	})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	line := res.Lines[0]
	assert.Equal(t, 1, res.Adjusted)
	assert.True(t, line.IsLoss)
	assert.Equal(t, qty(-5), line.Difference)
	assertMoney(t, "500", line.Amount)
	require.NotNil(t, line.JournalEntryID)

	assert.Equal(t, qty(45), f.total(t, p.ID))
	assertMoney(t, "500", f.balance(t, accounting.CodeCOGS))
	assertMoney(t, "4500", f.balance(t, accounting.CodeInventory))
	assertMoney(t, "4500", f.valuation(t))

	res, err = f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(47)}},
	})
	require.NoError(t, err)
	assert.False(t, res.Lines[0].IsLoss)
	require.NotNil(t, res.Lines[0].CorrectionBatch)
	assertMoney(t, "300", f.balance(t, accounting.CodeCOGS))
	assert.Equal(t, qty(47), f.total(t, p.ID))

	verify, err := f.svc.VerifyStock(ctx)
	require.NoError(t, err)
	assert.True(t, verify.OK)
	assert.Equal(t, 1, verify.CheckedProducts)
}

func TestAdjust_NoDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-EQ", "10", "2", 0)
	f.receive(t, p.ID, 5, "2")

	res, err := f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(5)}},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Adjusted)
	assert.Nil(t, res.Lines[0].JournalEntryID)
	assert.Empty(t, f.store.Events().OfType(domain.EventStockAdjusted))
}

func TestAdjust_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-AV", "10", "2", 0)

	_, err := f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(-1)}},
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{
			{ProductID: p.ID, PhysicalQuantity: qty(1)},
			{ProductID: p.ID, PhysicalQuantity: qty(2)},
		},
	})
	assert.True(t, apperror.IsValidation(err))
}

func TestAdjust_ProjectionPolicyLeavesBatches(t *testing.T) {
	f := newFixture(t, withPolicy(movements.PolicyProjection))
	ctx := context.Background()
	p := f.product(t, "SKU-P", "10", "2", 0)
	f.receive(t, p.ID, 10, "2")

	_, err := f.svc.Adjust(ctx, movements.StockCountRequest{
		Counts: []movements.CountLine{{ProductID: p.ID, PhysicalQuantity: qty(7)}},
	})
	require.NoError(t, err)

	assert.Equal(t, qty(7), f.total(t, p.ID))
	available, err := f.ledger.TotalAvailable(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(10), available)

	verify, err := f.svc.VerifyStock(ctx)
	require.NoError(t, err)
	assert.False(t, verify.OK)
	require.Len(t, verify.Discrepancies, 1)
	assert.Equal(t, qty(7), verify.Discrepancies[0].ProductTotal)
	assert.Equal(t, qty(10), verify.Discrepancies[0].BatchTotal)
}

func TestReturnSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "SKU-RET", "100", "40", 0)
	f.receive(t, p.ID, 3, "40")

	sale, err := f.svc.ConfirmSale(ctx, movements.SaleRequest{
		Lines: []movements.SaleLine{{ProductID: p.ID, Quantity: qty(2)}},
	})
	require.NoError(t, err)

	ret, err := f.svc.ReturnSale(ctx, movements.ReturnRequest{
		OrderReference: sale.Reference,
		Reason:         "damaged",
		Refund:         money("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "RET-00001", ret.Reference)
	assertMoney(t, "100", f.balance(t, accounting.CodeSalesRevenue))
	assert.Equal(t, qty(1), f.total(t, p.ID))

	_, err = f.svc.ReturnSale(ctx, movements.ReturnRequest{Refund: types.Zero()})
	assert.True(t, apperror.IsValidation(err))
}

func TestParseAdjustmentPolicy(t *testing.T) {
	assert.Equal(t, movements.PolicyProjection, movements.ParseAdjustmentPolicy("projection"))
	assert.Equal(t, movements.PolicyBatches, movements.ParseAdjustmentPolicy("batches"))
	assert.Equal(t, movements.PolicyBatches, movements.ParseAdjustmentPolicy(""))
}
