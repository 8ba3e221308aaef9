package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/infrastructure/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/erp/bridge/internal/application/syncer"

// defaultLockTTL bounds a run lock left behind by a crashed process
const defaultLockTTL = 30 * time.Minute

// ErrNotPurgeable is returned for kinds whose bridge rows cannot be purged
var ErrNotPurgeable = errors.New("syncer: kind cannot be purged")

// RunRecorder receives the report of every finished batch run
type RunRecorder interface {
	RecordRun(ctx context.Context, report *Report, elapsed time.Duration)
}

// Service is the entry point of the CLI, the HTTP API and the scheduler. It
// dispatches on the kind, guards batch runs with the run lock and tags every
// run with a run id.
type Service struct {
	registry *Registry
	scope    TransactionScope
	lock     RunLock
	lockTTL  time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
	recorder RunRecorder
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRunLock guards batch runs with lock
func WithRunLock(lock RunLock) ServiceOption {
	return func(s *Service) {
		s.lock = lock
	}
}

// WithLockTTL sets how long a run lock is held at most
func WithLockTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithServiceLogger sets the logger
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracerProvider traces runs with tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) ServiceOption {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRunRecorder reports every finished batch run to recorder
func WithRunRecorder(recorder RunRecorder) ServiceOption {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// NewService creates a Service over the synchronizers of registry
func NewService(registry *Registry, scope TransactionScope, opts ...ServiceOption) *Service {
	s := &Service{
		registry: registry,
		scope:    scope,
		lockTTL:  defaultLockTTL,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("sync")
	return s
}

// Run syncs every record of kind in direction, or only the changed ones
func (s *Service) Run(ctx context.Context, kind EntityKind, direction Direction, changed bool) (*Report, error) {
	sync, err := s.registry.Get(kind)
	if err != nil {
		return nil, err
	}
	op, err := batchOperation(sync, direction, changed)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, kind, direction)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, log := logger.WithRunID(ctx, s.logger)
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("sync %s %s", direction, kind),
		trace.WithAttributes(
			attribute.String("sync.kind", string(kind)),
			attribute.String("sync.direction", string(direction)),
			attribute.Bool("sync.changed", changed),
			attribute.String("sync.run_id", logger.GetRunID(ctx)),
		))
	defer span.End()

	log.Info("Sync run started",
		zap.String("kind", string(kind)),
		zap.String("direction", string(direction)),
		zap.Bool("changed", changed))
	start := time.Now()
	report, err := op(ctx)
	s.finishRun(ctx, span, report, err, time.Since(start))
	return report, err
}

// finishRun records the outcome of a batch run on its span and the recorder
func (s *Service) finishRun(ctx context.Context, span trace.Span, report *Report, err error, elapsed time.Duration) {
	if report != nil {
		span.SetAttributes(
			attribute.String("sync.status", string(report.Status)),
			attribute.Int("sync.total", report.Total),
			attribute.Int("sync.succeeded", report.Succeeded),
			attribute.Int("sync.failed", report.Failed),
			attribute.Int("sync.skipped", report.Skipped),
		)
		if s.recorder != nil {
			s.recorder.RecordRun(ctx, report, elapsed)
		}
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case report != nil && report.Status == StatusFailed:
		span.SetStatus(codes.Error, report.Message)
	}
}

// RunOne syncs the record with key. Single records are not guarded by the
// run lock.
func (s *Service) RunOne(ctx context.Context, kind EntityKind, direction Direction, key string) (*Result, error) {
	if key == "" {
		return nil, errors.New("sync key is required")
	}
	sync, err := s.registry.Get(kind)
	if err != nil {
		return nil, err
	}

	ctx, log := logger.WithRunID(ctx, s.logger)
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("sync %s %s one", direction, kind),
		trace.WithAttributes(
			attribute.String("sync.kind", string(kind)),
			attribute.String("sync.direction", string(direction)),
			attribute.String("sync.key", key),
			attribute.String("sync.run_id", logger.GetRunID(ctx)),
		))
	defer span.End()

	log.Info("Sync of single record started",
		zap.String("kind", string(kind)),
		zap.String("direction", string(direction)),
		zap.String("key", key))
	var result *Result
	switch direction {
	case ToBridge:
		result, err = sync.SyncOneToBridge(ctx, key)
	case FromBridge:
		result, err = sync.SyncOneFromBridge(ctx, key)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case result != nil && !result.Success && !result.Skipped:
		span.SetStatus(codes.Error, result.Message)
	}
	return result, err
}

// RunAll runs every registered kind in dependency order. A kind that fails
// to run does not stop the others; the errors are joined.
func (s *Service) RunAll(ctx context.Context, direction Direction, changed bool) ([]*Report, error) {
	var (
		reports []*Report
		errs    []error
	)
	for _, kind := range s.registry.Kinds() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.Run(ctx, kind, direction, changed)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	return reports, errors.Join(errs...)
}

// Purge deletes every bridge row of kind and returns the number of rows
func (s *Service) Purge(ctx context.Context, kind EntityKind) (int64, error) {
	var n int64
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		switch kind {
		case KindProduct:
			n, err = repos.Products().Purge(ctx)
		case KindCategory:
			n, err = repos.Categories().Purge(ctx)
		case KindTax:
			n, err = repos.Taxes().Purge(ctx)
		case KindMedia:
			n, err = repos.Media().Purge(ctx)
		case KindCustomer, KindWebCustomer:
			n, err = repos.Customers().Purge(ctx)
		case KindOrder:
			n, err = repos.Orders().Purge(ctx)
		default:
			err = fmt.Errorf("%w: %s", ErrNotPurgeable, kind)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Bridge purged", zap.String("kind", string(kind)), zap.Int64("rows", n))
	return n, nil
}

func batchOperation(sync Synchronizer, direction Direction, changed bool) (func(context.Context) (*Report, error), error) {
	switch {
	case direction == ToBridge && changed:
		return sync.SyncChangedToBridge, nil
	case direction == ToBridge:
		return sync.SyncAllToBridge, nil
	case direction == FromBridge && changed:
		return sync.SyncChangedFromBridge, nil
	case direction == FromBridge:
		return sync.SyncAllFromBridge, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
}

// acquire takes the run lock of kind and direction. The returned release
// never fails the run; release errors are logged.
func (s *Service) acquire(ctx context.Context, kind EntityKind, direction Direction) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}
	name := fmt.Sprintf("%s:%s", kind, direction)
	release, acquired, err := s.lock.TryAcquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", name, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, name)
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release run lock", zap.String("lock", name), zap.Error(err))
		}
	}, nil
}
