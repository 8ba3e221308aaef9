package syncer_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/infrastructure/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestService(t *testing.T) (*testEnv, *syncer.Service, *lock.InMemoryRunLock) {
	t.Helper()
	env := newTestEnv(t)
	runLock := lock.NewInMemoryRunLock()
	svc := syncer.NewService(syncer.NewDefaultRegistry(env.deps), env.scope,
		syncer.WithRunLock(runLock),
		syncer.WithLockTTL(time.Minute))
	return env, svc, runLock
}

func TestService_Run(t *testing.T) {
	env, svc, runLock := newTestService(t)

	t.Run("runs a kind and releases the lock", func(t *testing.T) {
		report, err := svc.Run(env.ctx, syncer.KindTax, syncer.ToBridge, false)
		require.NoError(t, err)
		assert.Equal(t, syncer.KindTax, report.Kind)
		assert.Equal(t, 2, report.Succeeded)
		assert.False(t, runLock.Held("tax:to"))
	})

	t.Run("overlapping run is rejected", func(t *testing.T) {
		release, acquired, err := runLock.TryAcquire(env.ctx, "tax:to", time.Minute)
		require.NoError(t, err)
		require.True(t, acquired)
		defer func() { _ = release(env.ctx) }()

		_, err = svc.Run(env.ctx, syncer.KindTax, syncer.ToBridge, false)
		assert.ErrorIs(t, err, syncer.ErrRunInProgress)

		_, err = svc.Run(env.ctx, syncer.KindTax, syncer.FromBridge, false)
		assert.NoError(t, err, "other direction is not blocked")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.Run(env.ctx, syncer.EntityKind("stock"), syncer.ToBridge, false)
		assert.ErrorIs(t, err, syncer.ErrUnknownKind)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := svc.Run(env.ctx, syncer.KindTax, syncer.Direction("sideways"), false)
		assert.ErrorIs(t, err, syncer.ErrInvalidDirection)
		assert.False(t, runLock.Held("tax:sideways"))
	})

	t.Run("changed run records the marker", func(t *testing.T) {
		_, err := svc.Run(env.ctx, syncer.KindCategory, syncer.ToBridge, true)
		require.NoError(t, err)
		_, err = env.repos.SyncMarkers().Get(env.ctx, "category", "to")
		assert.NoError(t, err)
	})
}

func TestService_RunOne(t *testing.T) {
	env, svc, runLock := newTestService(t)

	release, acquired, err := runLock.TryAcquire(env.ctx, "tax:to", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = release(env.ctx) }()

	res, err := svc.RunOne(env.ctx, syncer.KindTax, syncer.ToBridge, "1")
	require.NoError(t, err, "single records ignore the run lock")
	assert.True(t, res.Success)

	_, err = svc.RunOne(env.ctx, syncer.KindTax, syncer.ToBridge, "")
	assert.Error(t, err)
	_, err = svc.RunOne(env.ctx, syncer.KindTax, syncer.Direction("up"), "1")
	assert.ErrorIs(t, err, syncer.ErrInvalidDirection)
}

func TestService_RunAll(t *testing.T) {
	env, svc, _ := newTestService(t)

	reports, err := svc.RunAll(env.ctx, syncer.ToBridge, false)
	require.NoError(t, err)
	require.Len(t, reports, len(syncer.AllKinds))
	for i, kind := range syncer.AllKinds {
		assert.Equal(t, kind, reports[i].Kind)
	}

	p, err := env.repos.Products().FindByErpNr(env.ctx, "204116")
	require.NoError(t, err)
	assert.Len(t, p.CategoryIDs, 1, "categories ran before products")
	assert.Len(t, p.Media, 1, "media ran before products")
}

func TestService_Purge(t *testing.T) {
	env, svc, _ := newTestService(t)
	_, err := svc.Run(env.ctx, syncer.KindTax, syncer.ToBridge, false)
	require.NoError(t, err)

	n, err := svc.Purge(env.ctx, syncer.KindTax)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	taxes, err := env.repos.Taxes().FindAll(env.ctx)
	require.NoError(t, err)
	assert.Empty(t, taxes)

	_, err = svc.Purge(env.ctx, syncer.KindPrice)
	assert.ErrorIs(t, err, syncer.ErrNotPurgeable)
	_, err = svc.Purge(env.ctx, syncer.KindMarketplace)
	assert.ErrorIs(t, err, syncer.ErrNotPurgeable)
}

type recordedRun struct {
	report  *syncer.Report
	elapsed time.Duration
}

type fakeRunRecorder struct {
	runs []recordedRun
}

func (r *fakeRunRecorder) RecordRun(_ context.Context, report *syncer.Report, elapsed time.Duration) {
	r.runs = append(r.runs, recordedRun{report: report, elapsed: elapsed})
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

func TestService_Tracing(t *testing.T) {
	env := newTestEnv(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	recorder := &fakeRunRecorder{}
	svc := syncer.NewService(syncer.NewDefaultRegistry(env.deps), env.scope,
		syncer.WithTracerProvider(tp),
		syncer.WithRunRecorder(recorder))

	t.Run("batch run gets a span with kind, direction and run id", func(t *testing.T) {
		report, err := svc.Run(env.ctx, syncer.KindTax, syncer.ToBridge, false)
		require.NoError(t, err)

		spans := sr.Ended()
		require.Len(t, spans, 1)
		span := spans[0]
		assert.Equal(t, "sync to tax", span.Name())
		attrs := spanAttrs(span)
		assert.Equal(t, "tax", attrs["sync.kind"].AsString())
		assert.Equal(t, "to", attrs["sync.direction"].AsString())
		assert.False(t, attrs["sync.changed"].AsBool())
		assert.NotEmpty(t, attrs["sync.run_id"].AsString())
		assert.Equal(t, string(syncer.StatusSuccess), attrs["sync.status"].AsString())
		assert.Equal(t, int64(2), attrs["sync.succeeded"].AsInt64())
		assert.Equal(t, codes.Unset, span.Status().Code)

		require.Len(t, recorder.runs, 1)
		assert.Same(t, report, recorder.runs[0].report)
	})

	t.Run("every run has its own run id", func(t *testing.T) {
		before := len(sr.Ended())
		_, err := svc.Run(env.ctx, syncer.KindTax, syncer.ToBridge, true)
		require.NoError(t, err)

		spans := sr.Ended()
		require.Len(t, spans, before+1)
		first := spanAttrs(spans[0])["sync.run_id"].AsString()
		last := spanAttrs(spans[before])["sync.run_id"].AsString()
		assert.NotEqual(t, first, last)
		assert.True(t, spanAttrs(spans[before])["sync.changed"].AsBool())
	})

	t.Run("single record gets a span with its key", func(t *testing.T) {
		before := len(sr.Ended())
		_, err := svc.RunOne(env.ctx, syncer.KindTax, syncer.ToBridge, "1")
		require.NoError(t, err)

		spans := sr.Ended()
		require.Len(t, spans, before+1)
		span := spans[before]
		assert.Equal(t, "sync to tax one", span.Name())
		assert.Equal(t, "1", spanAttrs(span)["sync.key"].AsString())
		assert.NotEmpty(t, spanAttrs(span)["sync.run_id"].AsString())
	})

	t.Run("rejected runs start no span", func(t *testing.T) {
		before := len(sr.Ended())
		_, err := svc.Run(env.ctx, syncer.EntityKind("stock"), syncer.ToBridge, false)
		require.Error(t, err)
		assert.Len(t, sr.Ended(), before)
	})
}
