package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/erp/bridge/sync"

// SyncMetrics records the outcome of every batch run as OTel metrics
type SyncMetrics struct {
	records  metric.Int64Counter
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewSyncMetrics creates the sync instruments on mp
func NewSyncMetrics(mp metric.MeterProvider) (*SyncMetrics, error) {
	meter := mp.Meter(meterName)

	records, err := meter.Int64Counter("bridge.sync.records",
		metric.WithDescription("Records processed by sync runs"),
		metric.WithUnit("{record}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create records counter: %w", err)
	}
	runs, err := meter.Int64Counter("bridge.sync.runs",
		metric.WithDescription("Finished sync runs"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}
	duration, err := meter.Float64Histogram("bridge.sync.run.duration",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	return &SyncMetrics{records: records, runs: runs, duration: duration}, nil
}

// RecordRun implements syncer.RunRecorder
func (m *SyncMetrics) RecordRun(ctx context.Context, report *syncer.Report, elapsed time.Duration) {
	if report == nil {
		return
	}
	base := []attribute.KeyValue{
		attribute.String("sync.kind", string(report.Kind)),
		attribute.String("sync.direction", string(report.Direction)),
	}
	outcomes := []struct {
		name  string
		count int
	}{
		{"succeeded", report.Succeeded},
		{"failed", report.Failed},
		{"skipped", report.Skipped},
	}
	for _, o := range outcomes {
		if o.count == 0 {
			continue
		}
		m.records.Add(ctx, int64(o.count), metric.WithAttributes(append(base, attribute.String("outcome", o.name))...))
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(append(base, attribute.String("status", string(report.Status)))...))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(base...))
}
