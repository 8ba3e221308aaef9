package telemetry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID    uint `gorm:"primaryKey"`
	ErpNr string
}

func newTracedDB(t *testing.T, cfg DBTracingConfig) (*gorm.DB, *tracetest.SpanRecorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	require.NoError(t, RegisterDBTracing(db, cfg, tp, nil))
	return db, sr
}

func findSpan(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestRegisterDBTracing(t *testing.T) {
	t.Run("disabled leaves the connection alone", func(t *testing.T) {
		db, sr := newTracedDB(t, DBTracingConfig{})
		require.NoError(t, db.WithContext(t.Context()).Create(&tracedRow{ErpNr: "10001"}).Error)
		assert.Empty(t, sr.Ended())
	})

	t.Run("every query becomes a span without bound values", func(t *testing.T) {
		db, sr := newTracedDB(t, DBTracingConfig{Enabled: true, SlowThreshold: time.Hour})
		ctx := t.Context()
		require.NoError(t, db.WithContext(ctx).Create(&tracedRow{ErpNr: "10001"}).Error)
		var rows []tracedRow
		require.NoError(t, db.WithContext(ctx).Where("erp_nr = ?", "10001").Find(&rows).Error)
		require.Len(t, rows, 1)

		create := findSpan(sr.Ended(), "gorm.Create")
		require.NotNil(t, create)
		query := findSpan(sr.Ended(), "gorm.Query")
		require.NotNil(t, query)

		stmt, ok := attrValue(query, "db.statement")
		require.True(t, ok)
		assert.False(t, strings.Contains(stmt.AsString(), "10001"), "query variables are masked")
		_, ok = attrValue(query, "db.query_duration_ms")
		assert.True(t, ok)
		_, slow := attrValue(query, "db.slow_query")
		assert.False(t, slow)
	})

	t.Run("full sql keeps bound values", func(t *testing.T) {
		db, sr := newTracedDB(t, DBTracingConfig{Enabled: true, LogFullSQL: true})
		var rows []tracedRow
		require.NoError(t, db.WithContext(t.Context()).Where("erp_nr = ?", "10002").Find(&rows).Error)

		query := findSpan(sr.Ended(), "gorm.Query")
		require.NotNil(t, query)
		stmt, _ := attrValue(query, "db.statement")
		assert.Contains(t, stmt.AsString(), "10002")
	})

	t.Run("queries over the threshold are flagged", func(t *testing.T) {
		db, sr := newTracedDB(t, DBTracingConfig{Enabled: true, SlowThreshold: time.Nanosecond})
		require.NoError(t, db.WithContext(t.Context()).Create(&tracedRow{ErpNr: "10003"}).Error)

		create := findSpan(sr.Ended(), "gorm.Create")
		require.NotNil(t, create)
		slow, ok := attrValue(create, "db.slow_query")
		require.True(t, ok)
		assert.True(t, slow.AsBool())
		require.NotEmpty(t, create.Events())
		assert.Equal(t, "slow_query_warning", create.Events()[0].Name)
	})
}

func TestProvider_TraceDatabaseDisabled(t *testing.T) {
	p, err := New(t.Context(), Config{DB: DBTracingConfig{Enabled: true}}, nil)
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, p.TraceDatabase(db))
	_, registered := db.Config.Plugins["otelgorm"]
	assert.False(t, registered, "no plugin while telemetry is off")
}
