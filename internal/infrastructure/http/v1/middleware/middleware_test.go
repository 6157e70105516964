package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

type recordingStore struct {
	failed    map[string]int
	completed map[string]int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{failed: map[string]int{}, completed: map[string]int{}}
}

func (s *recordingStore) AcquireKey(context.Context, string, string, string, string) (*postgres.IdempotencyReplay, error) {
	return nil, nil
}

func (s *recordingStore) CompleteKey(_ context.Context, key string, status int, _ string, _ any) error {
	s.completed[key] = status
	return nil
}

func (s *recordingStore) FailKey(_ context.Context, key string, status int, _ string, _ any) error {
	s.failed[key] = status
	return nil
}

func newEngine(store IdempotencyStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Trace(), Logger(logger.Nop()), ErrorHandler(), Actor(), Idempotency(store))
	r.POST("/panic", func(*gin.Context) { panic("ledger corrupted") })
	r.POST("/fail", func(c *gin.Context) {
		_ = c.Error(apperror.NewValidation("quantity must be positive"))
	})
	r.POST("/boom", func(c *gin.Context) { _ = c.Error(errors.New("pool closed")) })
	r.POST("/ok", func(c *gin.Context) {
		CompleteIdempotency(c, http.StatusCreated, "application/json", gin.H{"ok": true})
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})
	return r
}

func post(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.Header.Set(HeaderRequestID, "req-1")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRecovery_RendersInternalError(t *testing.T) {
	store := newRecordingStore()
	w := post(newEngine(store), "/panic", "k-panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	b := body(t, w)
	assert.Equal(t, apperror.CodeInternal, b["code"])
	assert.Equal(t, "req-1", b["details"].(map[string]any)["request_id"])
	assert.NotContains(t, w.Body.String(), "ledger corrupted")
	assert.Equal(t, http.StatusInternalServerError, store.failed["k-panic"])
}

func TestErrorHandler_AppError(t *testing.T) {
	store := newRecordingStore()
	w := post(newEngine(store), "/fail", "k-fail")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeValidation, body(t, w)["code"])
	assert.Equal(t, http.StatusBadRequest, store.failed["k-fail"])
}

func TestErrorHandler_HidesPlainErrors(t *testing.T) {
	w := post(newEngine(newRecordingStore()), "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pool closed")
}

func TestTrace_EchoesAndMintsIDs(t *testing.T) {
	store := newRecordingStore()
	w := post(newEngine(store), "/ok", "k-ok")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
	assert.Equal(t, http.StatusCreated, store.completed["k-ok"])
}
