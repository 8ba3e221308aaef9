package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/erp/bridge/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newSystemEngine(checks map[string]Pinger) *gin.Engine {
	engine := gin.New()
	router.NewRouter(engine).Register(NewSystemHandler("bridge", "test", checks)).Setup()
	return engine
}

func TestSystemHandler_Info(t *testing.T) {
	w, body := doRequest(newSystemEngine(nil), http.MethodGet, "/api/v1/system/info")

	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "bridge", data["name"])
	assert.Equal(t, "test", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestSystemHandler_Health(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("healthy", func(t *testing.T) {
		w, body := doRequest(newSystemEngine(map[string]Pinger{"database": ok}), http.MethodGet, "/api/v1/system/health")

		assert.Equal(t, http.StatusOK, w.Code)
		data := body["data"].(map[string]any)
		assert.Equal(t, "ok", data["status"])
		assert.Equal(t, "ok", data["checks"].(map[string]any)["database"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		w, body := doRequest(newSystemEngine(map[string]Pinger{"database": ok, "redis": down}), http.MethodGet, "/api/v1/system/health")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, false, body["success"])
		checks := body["data"].(map[string]any)["checks"].(map[string]any)
		assert.Equal(t, "ok", checks["database"])
		assert.Equal(t, "connection refused", checks["redis"])
	})
}
