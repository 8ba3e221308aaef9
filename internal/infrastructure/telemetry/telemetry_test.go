package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(t.Context(), Config{ServiceName: "erp-bridge"}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Equal(t, otel.GetTracerProvider(), p.TracerProvider())
	assert.Equal(t, otel.GetMeterProvider(), p.MeterProvider())
	assert.NoError(t, p.Shutdown(t.Context()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := sampler(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased{root:"+tt.want)
	}
}

// memoryLogExporter keeps exported log records
type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestProvider_WithZap(t *testing.T) {
	t.Run("returns the logger unchanged without log export", func(t *testing.T) {
		p := &Provider{logger: zap.NewNop()}
		log := zap.NewNop()
		assert.Same(t, log, p.WithZap(log))
	})

	t.Run("tees entries at the logger level into the exporter", func(t *testing.T) {
		exporter := &memoryLogExporter{}
		p := &Provider{
			logger: zap.NewNop(),
			config: Config{ServiceName: "erp-bridge"},
			logs:   sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter))),
		}
		core, logs := observer.New(zapcore.InfoLevel)
		log := p.WithZap(zap.New(core))

		log.Debug("Below the level")
		log.Info("Sync run started", zap.String("kind", "product"))
		log.Warn("Failed to release run lock")

		assert.Equal(t, 2, logs.Len(), "original core still receives entries")
		assert.Equal(t, []string{"Sync run started", "Failed to release run lock"}, exporter.bodies())
	})
}

func TestLevelFilterCore(t *testing.T) {
	inner, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	child := core.With([]zapcore.Field{zap.String("run_id", "r-1")})
	require.IsType(t, &levelFilterCore{}, child)
	assert.False(t, child.Enabled(zapcore.InfoLevel))
}

func TestMinLevel(t *testing.T) {
	assert.Equal(t, zapcore.InfoLevel, minLevel(zapcore.InfoLevel))
	assert.Equal(t, zapcore.DebugLevel, minLevel(zapcore.DebugLevel))
	assert.Equal(t, zapcore.ErrorLevel, minLevel(zap.NewAtomicLevelAt(zapcore.ErrorLevel)))
}

func TestProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zap.NewNop())
	require.NoError(t, err)

	tp := otel.GetTracerProvider()
	assert.Equal(t, tp, p.WrapTracerProvider(tp))
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_RequiresAddress(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "erp-bridge"}, zap.NewNop())
	assert.Error(t, err)
}
