// Package syncer reconciles entities between the ERP, the bridge database and
// the e-commerce platform. Every entity kind has a Synchronizer implementing
// the same six operations; a Registry dispatches on the kind.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/erp/bridge/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Synchronizer moves one entity kind into and out of the bridge.
//
// To-bridge keys are source-native: ERP numbers, platform ids or media file
// names. From-bridge keys are bridge natural keys: ERP numbers, e-mail
// addresses or platform ids.
type Synchronizer interface {
	SyncAllToBridge(ctx context.Context) (*Report, error)
	SyncOneToBridge(ctx context.Context, key string) (*Result, error)
	SyncChangedToBridge(ctx context.Context) (*Report, error)
	SyncAllFromBridge(ctx context.Context) (*Report, error)
	SyncOneFromBridge(ctx context.Context, key string) (*Result, error)
	SyncChangedFromBridge(ctx context.Context) (*Report, error)
}

// Dependencies are the collaborators shared by all synchronizers
type Dependencies struct {
	Scope TransactionScope
	ERP   ERPSession
	// Platform is nil when no platform is configured; platform operations
	// then fail with platform.ErrNotConfigured.
	Platform platform.Client
	// Media is nil when no media source is configured
	Media   MediaStore
	Options mapping.Options
	// Numbers is the ERP customer number range
	Numbers bridge.ErpNumberRange
	// SalesChannelIDs restricts platform reads to these sales channels. Empty means all.
	SalesChannelIDs []string
	// CustomerPacing is the minimum interval between platform customer syncs
	CustomerPacing time.Duration
	// ChangedLookback is the window of the first changed run of a kind
	ChangedLookback time.Duration
	// PageSize is the platform search page size
	PageSize int
	Logger   *zap.Logger
	Now      func() time.Time
}

func (d *Dependencies) applyDefaults() {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.PageSize <= 0 {
		d.PageSize = 100
	}
	if d.ChangedLookback <= 0 {
		d.ChangedLookback = 24 * time.Hour
	}
	if d.Options.Language == "" {
		d.Options = mapping.DefaultOptions()
	}
	if d.Numbers.Max == 0 {
		d.Numbers = bridge.ErpNumberRange{Min: 10000, Max: 69999}
	}
}

// base carries the dependencies and helpers every synchronizer needs
type base struct {
	kind    EntityKind
	deps    Dependencies
	logger  *zap.Logger
	markers *markers
}

func newBase(kind EntityKind, deps Dependencies) base {
	deps.applyDefaults()
	return base{
		kind:    kind,
		deps:    deps,
		logger:  deps.Logger.Named("syncer").With(zap.String("kind", string(kind))),
		markers: newMarkers(deps.Scope, deps.ChangedLookback, deps.Now),
	}
}

// recordLogger returns the logger for one record, carrying the run id of ctx when present
func (b *base) recordLogger(ctx context.Context, direction Direction, key string) *zap.Logger {
	l := b.deps.Logger
	if runID := logger.GetRunID(ctx); runID != "" {
		l = l.With(zap.String("run_id", runID))
	}
	return logger.ForRecord(l.Named("syncer"), string(b.kind), string(direction), key)
}

// platform returns the platform client or ErrNotConfigured
func (b *base) platform() (platform.Client, error) {
	if b.deps.Platform == nil {
		return nil, platform.ErrNotConfigured
	}
	return b.deps.Platform, nil
}

// finish logs the outcome of a record and adds it to report
func (b *base) finish(ctx context.Context, report *Report, res *Result) {
	b.logResult(ctx, report.Direction, res)
	report.Add(res)
}

// logResult logs the outcome of a record
func (b *base) logResult(ctx context.Context, direction Direction, res *Result) {
	l := b.recordLogger(ctx, direction, res.Key)
	switch {
	case res.Success:
		l.Debug(res.Message, zap.Stringer("id", res.ID), zap.Bool("created", res.Created))
	case res.Skipped:
		l.Warn(res.Message)
	default:
		l.Error(res.Message)
	}
}

// logged logs the result of a single-record operation and returns it
func (b *base) logged(ctx context.Context, direction Direction, res *Result) *Result {
	b.logResult(ctx, direction, res)
	return res
}

// done finishes report and logs the summary
func (b *base) done(report *Report) *Report {
	report.Finish()
	b.logger.Info("Sync run finished",
		zap.String("direction", string(report.Direction)),
		zap.String("status", string(report.Status)),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report
}

// abort fails report because the source could not be read
func (b *base) abort(report *Report, err error) *Report {
	b.logger.Error("Sync run aborted", zap.String("direction", string(report.Direction)), zap.Error(err))
	return report.Fail(err)
}

// changed runs fn with the time of the last successful run in direction and
// advances the marker when the run did not fail.
func (b *base) changed(ctx context.Context, direction Direction, fn func(since time.Time) (*Report, error)) (*Report, error) {
	startedAt := b.deps.Now()
	since, err := b.markers.since(ctx, b.kind, direction)
	if err != nil {
		return nil, err
	}
	report, err := fn(since)
	if err != nil || report.Status == StatusFailed {
		return report, err
	}
	if err := b.markers.mark(ctx, b.kind, direction, startedAt); err != nil {
		return report, err
	}
	return report, nil
}

// ---------------------------------------------------------------------------
// Unsupported operations
// ---------------------------------------------------------------------------

// unsupportedTo is embedded by kinds that cannot be synced into the bridge
type unsupportedTo struct {
	kind EntityKind
}

func (u unsupportedTo) SyncAllToBridge(context.Context) (*Report, error) {
	return SkippedReport(u.kind, ToBridge), nil
}

func (u unsupportedTo) SyncOneToBridge(_ context.Context, key string) (*Result, error) {
	return skipped(key, fmt.Sprintf("%s cannot be synced to the bridge", u.kind)), nil
}

func (u unsupportedTo) SyncChangedToBridge(context.Context) (*Report, error) {
	return SkippedReport(u.kind, ToBridge), nil
}

// unsupportedFrom is embedded by kinds that cannot be synced out of the bridge
type unsupportedFrom struct {
	kind EntityKind
}

func (u unsupportedFrom) SyncAllFromBridge(context.Context) (*Report, error) {
	return SkippedReport(u.kind, FromBridge), nil
}

func (u unsupportedFrom) SyncOneFromBridge(_ context.Context, key string) (*Result, error) {
	return skipped(key, fmt.Sprintf("%s cannot be synced from the bridge", u.kind)), nil
}

func (u unsupportedFrom) SyncChangedFromBridge(context.Context) (*Report, error) {
	return SkippedReport(u.kind, FromBridge), nil
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry maps entity kinds to their synchronizers
type Registry struct {
	mu            sync.RWMutex
	synchronizers map[EntityKind]Synchronizer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{synchronizers: make(map[EntityKind]Synchronizer)}
}

// NewDefaultRegistry registers the synchronizer of every kind
func NewDefaultRegistry(deps Dependencies) *Registry {
	r := NewRegistry()
	r.Register(KindTax, NewTaxSynchronizer(deps))
	r.Register(KindMarketplace, NewMarketplaceSynchronizer(deps))
	r.Register(KindMedia, NewMediaSynchronizer(deps))
	r.Register(KindCategory, NewCategorySynchronizer(deps))
	r.Register(KindProduct, NewProductSynchronizer(deps))
	r.Register(KindCustomer, NewCustomerSynchronizer(deps))
	r.Register(KindWebCustomer, NewWebCustomerSynchronizer(deps))
	r.Register(KindOrder, NewOrderSynchronizer(deps))
	r.Register(KindPrice, NewPriceSynchronizer(deps))
	return r
}

// Register sets the synchronizer of kind, replacing any previous one
func (r *Registry) Register(kind EntityKind, s Synchronizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synchronizers[kind] = s
}

// Get returns the synchronizer of kind
func (r *Registry) Get(kind EntityKind) (Synchronizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.synchronizers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds returns the registered kinds in dependency order
func (r *Registry) Kinds() []EntityKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]EntityKind, 0, len(r.synchronizers))
	for _, k := range AllKinds {
		if _, ok := r.synchronizers[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
