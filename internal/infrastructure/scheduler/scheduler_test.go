package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type runCall struct {
	kind      syncer.EntityKind
	direction syncer.Direction
	changed   bool
	deadline  bool
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []runCall
	report *syncer.Report
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, kind syncer.EntityKind, direction syncer.Direction, changed bool) (*syncer.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, hasDeadline := ctx.Deadline()
	f.calls = append(f.calls, runCall{kind: kind, direction: direction, changed: changed, deadline: hasDeadline})
	return f.report, f.err
}

func testConfig(jobs ...Job) Config {
	return Config{Enabled: true, JobTimeout: time.Minute, Jobs: jobs}
}

func TestNew(t *testing.T) {
	t.Run("rejects invalid cron spec", func(t *testing.T) {
		_, err := New(testConfig(Job{Kind: syncer.KindTax, Direction: syncer.ToBridge, Spec: "every hour"}), &fakeRunner{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects duplicate jobs", func(t *testing.T) {
		job := Job{Kind: syncer.KindTax, Direction: syncer.ToBridge, Spec: "@every 1h"}
		_, err := New(testConfig(job, job), &fakeRunner{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("names jobs by kind and direction", func(t *testing.T) {
		s, err := New(testConfig(
			Job{Kind: syncer.KindProduct, Direction: syncer.ToBridge, Spec: "*/15 * * * *"},
			Job{Kind: syncer.KindProduct, Direction: syncer.FromBridge, Spec: "@every 30m"},
		), &fakeRunner{}, nil)
		require.NoError(t, err)

		jobs := s.Jobs()
		require.Len(t, jobs, 2)
		assert.Equal(t, "product:to", jobs[0].Name)
		assert.Equal(t, "product:from", jobs[1].Name)
		assert.Equal(t, JobStatusPending, jobs[0].Status)
		assert.Nil(t, jobs[0].NextRunAt)
	})
}

func TestConfigFromSettings(t *testing.T) {
	cfg, err := ConfigFromSettings(config.SchedulerConfig{
		Enabled:    true,
		JobTimeout: time.Hour,
		Jobs:       []config.JobConfig{{Kind: "Web-Customer", Direction: "to", Spec: "@hourly"}},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Jobs, 1)
	assert.Equal(t, syncer.KindWebCustomer, cfg.Jobs[0].Kind)
	assert.Equal(t, time.Hour, cfg.JobTimeout)

	_, err = ConfigFromSettings(config.SchedulerConfig{
		Jobs: []config.JobConfig{{Kind: "stock", Direction: "to", Spec: "@hourly"}},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, syncer.ErrUnknownKind)
}

func TestScheduler_Trigger(t *testing.T) {
	job := Job{Kind: syncer.KindOrder, Direction: syncer.ToBridge, Spec: "@every 5m"}

	t.Run("runs changed records with a timeout", func(t *testing.T) {
		report := syncer.NewReport(syncer.KindOrder, syncer.ToBridge)
		report.Total, report.Succeeded = 3, 2
		report.Failed = 1
		runner := &fakeRunner{report: report.Finish()}
		s, err := New(testConfig(job), runner, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Trigger("order:to"))

		require.Len(t, runner.calls, 1)
		assert.Equal(t, runCall{kind: syncer.KindOrder, direction: syncer.ToBridge, changed: true, deadline: true}, runner.calls[0])
		state := s.Jobs()[0]
		assert.Equal(t, JobStatusPartial, state.Status)
		assert.NotNil(t, state.StartedAt)
		assert.NotNil(t, state.CompletedAt)
	})

	t.Run("overlapping run is skipped", func(t *testing.T) {
		runner := &fakeRunner{err: syncer.ErrRunInProgress}
		s, err := New(testConfig(job), runner, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Trigger("order:to"))
		assert.Equal(t, JobStatusSkipped, s.Jobs()[0].Status)
		assert.Empty(t, s.Jobs()[0].Error)
	})

	t.Run("failure is recorded", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("erp unreachable")}
		s, err := New(testConfig(job), runner, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, s.Trigger("order:to"))
		assert.Equal(t, JobStatusFailed, s.Jobs()[0].Status)
		assert.Equal(t, "erp unreachable", s.Jobs()[0].Error)
	})

	t.Run("unknown job", func(t *testing.T) {
		s, err := New(testConfig(job), &fakeRunner{}, zap.NewNop())
		require.NoError(t, err)
		assert.ErrorIs(t, s.Trigger("tax:to"), ErrJobNotFound)
	})
}

func TestScheduler_StartStop(t *testing.T) {
	s, err := New(testConfig(Job{Kind: syncer.KindTax, Direction: syncer.ToBridge, Spec: "@every 1h"}), &fakeRunner{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())
	next := s.Jobs()[0].NextRunAt
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestScheduler_Disabled(t *testing.T) {
	cfg := testConfig(Job{Kind: syncer.KindTax, Direction: syncer.ToBridge, Spec: "@every 1h"})
	cfg.Enabled = false
	s, err := New(cfg, &fakeRunner{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}
