package middleware

import (
	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps the request id copied into span attributes
const MaxRequestIDLength = 128

// Tracing returns the otelgin middleware followed by a handler that tags the
// server span with the request id and the sync route parameters. Register
// both with engine.Use(Tracing(...)...).
func Tracing(serviceName string, tp trace.TracerProvider) gin.HandlersChain {
	return gin.HandlersChain{
		otelgin.Middleware(serviceName, otelgin.WithTracerProvider(tp)),
		enrichSpan,
	}
}

// enrichSpan runs inside the otelgin span, so the span is still recording
// after the handlers return.
func enrichSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		c.Next()
		return
	}
	params := []struct{ param, key string }{
		{"kind", "sync.kind"},
		{"direction", "sync.direction"},
		{"key", "sync.key"},
		{"name", "sync.job"},
	}
	for _, p := range params {
		if v := c.Param(p.param); v != "" {
			span.SetAttributes(attribute.String(p.key, v))
		}
	}

	c.Next()

	if requestID := requestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if subject := c.GetString("token_subject"); subject != "" {
		span.SetAttributes(attribute.String("auth.subject", subject))
	}
}

// requestID prefers the id the request logger assigned over the raw header
func requestID(c *gin.Context) string {
	id := logger.GetRequestID(c.Request.Context())
	if id == "" {
		id = c.GetHeader(logger.RequestIDHeader)
	}
	if len(id) > MaxRequestIDLength {
		return id[:MaxRequestIDLength]
	}
	return id
}
