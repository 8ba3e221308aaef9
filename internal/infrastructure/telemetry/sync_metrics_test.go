package telemetry

import (
	"testing"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestSyncMetrics_RecordRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)

	report := &syncer.Report{
		Kind:      syncer.KindProduct,
		Direction: syncer.ToBridge,
		Status:    syncer.StatusPartial,
		Total:     5,
		Succeeded: 3,
		Failed:    2,
	}
	metrics.RecordRun(t.Context(), report, 1500*time.Millisecond)
	metrics.RecordRun(t.Context(), nil, time.Second)

	got := collect(t, reader)

	records, ok := got["bridge.sync.records"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byOutcome := make(map[string]int64)
	for _, dp := range records.DataPoints {
		outcome, _ := dp.Attributes.Value("outcome")
		kind, _ := dp.Attributes.Value("sync.kind")
		assert.Equal(t, "product", kind.AsString())
		byOutcome[outcome.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"succeeded": 3, "failed": 2}, byOutcome, "zero outcomes are not recorded")

	runs, ok := got["bridge.sync.runs"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 1)
	assert.Equal(t, int64(1), runs.DataPoints[0].Value)
	status, _ := runs.DataPoints[0].Attributes.Value(attribute.Key("status"))
	assert.Equal(t, "PARTIAL", status.AsString())

	duration, ok := got["bridge.sync.run.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(1), duration.DataPoints[0].Count)
	assert.InDelta(t, 1.5, duration.DataPoints[0].Sum, 0.001)
}
