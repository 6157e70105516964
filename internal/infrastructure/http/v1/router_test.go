package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/domain/reports"
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/storage/memory"
	"stockbook/internal/infrastructure/storage/postgres"
)

// fakeIdempotency keeps completed responses in memory.
type fakeIdempotency struct {
	mu      sync.Mutex
	replays map[string]*postgres.IdempotencyReplay
	hashes  map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{
		replays: make(map[string]*postgres.IdempotencyReplay),
		hashes:  make(map[string]string),
	}
}

func (f *fakeIdempotency) AcquireKey(_ context.Context, key, _, _, requestHash string) (*postgres.IdempotencyReplay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.hashes[key]; ok {
		if h != requestHash {
			return nil, apperror.NewIdempotencyMismatch(key)
		}
		if r := f.replays[key]; r != nil {
			return r, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
	f.hashes[key] = requestHash
	return nil, nil
}

func (f *fakeIdempotency) CompleteKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return f.store(key, statusCode, contentType, response)
}

func (f *fakeIdempotency) FailKey(_ context.Context, key string, statusCode int, contentType string, response any) error {
	return f.store(key, statusCode, contentType, response)
}

func (f *fakeIdempotency) store(key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replays[key] = &postgres.IdempotencyReplay{StatusCode: statusCode, ContentType: contentType, Body: body}
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *fakeIdempotency) {
	t.Helper()
	store := memory.New()
	ledger := batches.NewLedger(store.Batches(), store)
	journal := accounting.NewEngine(store.Accounting(), store)
	_, err := journal.SeedChart(context.Background())
	require.NoError(t, err)

	svc := movements.NewService(movements.Config{
		TxManager: store,
		Products:  store.Products(),
		Ledger:    ledger,
		Journal:   journal,
		Repo:      store.Movements(),
		Events:    store.Events(),
		Numbers:   store.Numbers(),
	})

	idem := newFakeIdempotency()
	router := v1.NewRouter(v1.RouterConfig{
		Catalog:     catalog.NewService(store.Products(), store),
		Ledger:      ledger,
		Journal:     journal,
		Movements:   svc,
		Reports:     reports.NewService(store.Reports(), store),
		Idempotency: idem,
		Mode:        gin.TestMode,
	})
	return router, idem
}

func do(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createProduct(t *testing.T, router *gin.Engine, code string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/v1/products", map[string]any{
		"code": code, "name": "Widget " + code, "price": "12.00", "cost": "5.00", "minStockThreshold": 2,
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestHealthLive(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestInboundThenSale(t *testing.T) {
	router, _ := newTestRouter(t)
	pid := createProduct(t, router, "SKU-1")

	w := do(t, router, http.MethodPost, "/api/v1/movements/inbound", map[string]any{
		"productId": pid, "quantity": 10, "unitCost": "5.00",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/v1/movements/sales", map[string]any{
		"lines": []map[string]any{{"productId": pid, "quantity": 4}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sale := decode(t, w)
	assert.True(t, types.MustMoney("20").Equal(types.MustMoney(sale["cogs"].(string))), "cogs %v", sale["cogs"])

	w = do(t, router, http.MethodGet, "/api/v1/reports/availability/"+pid, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, decode(t, w)["available"])

	w = do(t, router, http.MethodGet, "/api/v1/accounting/trial-balance", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["balanced"])
}

func TestSale_InsufficientStockIs422(t *testing.T) {
	router, _ := newTestRouter(t)
	pid := createProduct(t, router, "SKU-2")

	w := do(t, router, http.MethodPost, "/api/v1/movements/sales", map[string]any{
		"lines": []map[string]any{{"productId": pid, "quantity": 1}},
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeInsufficientStock, decode(t, w)["code"])
}

func TestGetProduct_BadIDIs400(t *testing.T) {
	router, _ := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/products/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateProduct_DuplicateCodeIs409(t *testing.T) {
	router, _ := newTestRouter(t)
	createProduct(t, router, "SKU-3")

	w := do(t, router, http.MethodPost, "/api/v1/products", map[string]any{"code": "SKU-3", "name": "Again"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotentReplay(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{middleware.HeaderIdempotencyKey: "create-sku-4"}
	body := map[string]any{"code": "SKU-4", "name": "Widget"}

	first := do(t, router, http.MethodPost, "/api/v1/products", body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := do(t, router, http.MethodPost, "/api/v1/products", body, headers)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := do(t, router, http.MethodGet, "/api/v1/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalCount"])

	other := do(t, router, http.MethodPost, "/api/v1/products", map[string]any{"code": "SKU-5", "name": "Other"}, headers)
	assert.Equal(t, http.StatusConflict, other.Code)
	assert.Equal(t, apperror.CodeIdempotency, decode(t, other)["code"])
}
