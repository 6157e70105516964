package handlers

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
)

func ready(t *testing.T, deps map[string]Dependency) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ready", NewHealthHandler(deps).Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestReady_AllHealthy(t *testing.T) {
	code, body := ready(t, map[string]Dependency{
		"database": {Pinger: PingFunc(ok)},
		"redis":    {},
	})
	assert.Equal(t, http.StatusOK, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "not configured", checks["redis"])
}

func TestReady_RequiredDown(t *testing.T) {
	code, body := ready(t, map[string]Dependency{"database": {Pinger: PingFunc(down)}})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])
}

func TestReady_OptionalDownIsDegraded(t *testing.T) {
	code, body := ready(t, map[string]Dependency{
		"database": {Pinger: PingFunc(ok)},
		"redis":    {Pinger: PingFunc(down), Optional: true},
	})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body["checks"].(map[string]any)["redis"], "degraded")
}
