package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	return sr, tp
}

func newTracedRouter(tp *sdktrace.TracerProvider) *gin.Engine {
	router := gin.New()
	router.Use(Tracing("erp-bridge", tp)...)
	router.Use(logger.GinMiddleware(zap.NewNop()))
	router.POST("/sync/:kind/:direction/:key", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.POST("/schedule/:name/trigger", func(c *gin.Context) {
		c.String(http.StatusServiceUnavailable, "down")
	})
	router.GET("/fail", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "boom")
	})
	return router
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestTracing(t *testing.T) {
	t.Run("server span carries the sync route parameters", func(t *testing.T) {
		sr, tp := setupTestTracer(t)
		router := newTracedRouter(tp)

		req := httptest.NewRequest(http.MethodPost, "/sync/customer/to/10001", nil)
		req.Header.Set(logger.RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, "POST /sync/:kind/:direction/:key", spans[0].Name())
		attrs := attrMap(spans[0])
		assert.Equal(t, "customer", attrs["sync.kind"])
		assert.Equal(t, "to", attrs["sync.direction"])
		assert.Equal(t, "10001", attrs["sync.key"])
		assert.Equal(t, "req-42", attrs["request_id"])
	})

	t.Run("generated request id is recorded", func(t *testing.T) {
		sr, tp := setupTestTracer(t)
		router := newTracedRouter(tp)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/schedule/product-to/trigger", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		attrs := attrMap(spans[0])
		assert.Equal(t, "product-to", attrs["sync.job"])
		assert.Equal(t, w.Header().Get(logger.RequestIDHeader), attrs["request_id"])
		assert.NotEmpty(t, attrs["request_id"])
	})

	t.Run("server errors mark the span", func(t *testing.T) {
		sr, tp := setupTestTracer(t)
		router := newTracedRouter(tp)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status().Code)
	})

	t.Run("oversized request id is truncated", func(t *testing.T) {
		sr, tp := setupTestTracer(t)
		router := newTracedRouter(tp)

		long := make([]byte, MaxRequestIDLength*2)
		for i := range long {
			long[i] = 'a'
		}
		req := httptest.NewRequest(http.MethodPost, "/sync/tax/to/1", nil)
		req.Header.Set(logger.RequestIDHeader, string(long))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		assert.Len(t, attrMap(spans[0])["request_id"], MaxRequestIDLength)
	})
}
