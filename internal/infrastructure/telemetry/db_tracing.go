package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled       bool
	LogFullSQL    bool // include bound variables in db.statement
	SlowThreshold time.Duration
}

// callbackRegistrar is what gorm's callback builders expose
type callbackRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// RegisterDBTracing installs the otelgorm plugin on db, so every bridge
// repository call becomes a client span under the current sync span. Queries
// slower than cfg.SlowThreshold are flagged on their span.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, tp trace.TracerProvider, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []otelgorm.Option{otelgorm.WithTracerProvider(tp), otelgorm.WithoutMetrics()}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	threshold := cfg.SlowThreshold
	slow := func(tx *gorm.DB) { flagSlowQuery(tx, threshold) }

	// the slow query hooks run before otelgorm ends the span
	cb := db.Callback()
	hooks := []struct {
		before, after callbackRegistrar
		name          string
	}{
		{cb.Create().Before("gorm:create"), cb.Create().After("gorm:create").Before("otel:after:create"), "create"},
		{cb.Query().Before("gorm:query"), cb.Query().After("gorm:query").Before("otel:after:select"), "query"},
		{cb.Update().Before("gorm:update"), cb.Update().After("gorm:update").Before("otel:after:update"), "update"},
		{cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete").Before("otel:after:delete"), "delete"},
		{cb.Row().Before("gorm:row"), cb.Row().After("gorm:row").Before("otel:after:row"), "row"},
		{cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw").Before("otel:after:raw"), "raw"},
	}
	var errs []error
	for _, h := range hooks {
		errs = append(errs,
			h.before.Register("telemetry:before:"+h.name, markQueryStart),
			h.after.Register("telemetry:slow:"+h.name, slow),
		)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", threshold))
	return nil
}

// TraceDatabase registers database tracing on db with the provider's tracer.
// It is a no-op while telemetry is disabled.
func (p *Provider) TraceDatabase(db *gorm.DB) error {
	if !p.Enabled() {
		return nil
	}
	return RegisterDBTracing(db, p.config.DB, p.TracerProvider(), p.logger)
}

func markQueryStart(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

// flagSlowQuery runs while the otelgorm span is still recording
func flagSlowQuery(tx *gorm.DB, threshold time.Duration) {
	span := trace.SpanFromContext(tx.Statement.Context)
	if !span.IsRecording() {
		return
	}
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Float64("db.query_duration_ms", float64(elapsed.Microseconds())/1000))
	if threshold > 0 && elapsed >= threshold {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.String("threshold", threshold.String()),
			attribute.String("elapsed", elapsed.String()),
		))
	}
}
