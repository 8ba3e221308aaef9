package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
)

// OrderSynchronizer reads platform orders with their lines into the bridge.
// Orders are never written back. Keys are platform order ids.
type OrderSynchronizer struct {
	base
	unsupportedFrom
	binder binder
}

// NewOrderSynchronizer creates an OrderSynchronizer
func NewOrderSynchronizer(deps Dependencies) *OrderSynchronizer {
	b := newBase(KindOrder, deps)
	return &OrderSynchronizer{
		base:            b,
		unsupportedFrom: unsupportedFrom{kind: KindOrder},
		binder:          binder{deps: b.deps},
	}
}

var _ Synchronizer = (*OrderSynchronizer)(nil)

func orderAssociations(c *platform.Criteria) *platform.Criteria {
	return c.WithAssociation("lineItems").
		WithAssociation("deliveries").
		WithAssociation("transactions").
		WithAssociation("orderCustomer")
}

// SyncAllToBridge upserts every order of the configured sales channels
func (s *OrderSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, orderAssociations(s.salesChannelCriteria("salesChannelId")))
}

// SyncOneToBridge upserts the order with platform id key
func (s *OrderSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	rec, err := s.onePlatform(ctx, platform.EntityOrder, orderAssociations(platform.ByID(key)))
	if errors.Is(err, platform.ErrNotFound) {
		return s.logged(ctx, ToBridge, failed(key, err)), nil
	}
	if err != nil {
		return nil, err
	}
	return s.logged(ctx, ToBridge, s.upsertRecord(ctx, rec)), nil
}

// SyncChangedToBridge upserts orders updated since the last run
func (s *OrderSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, updatedSince(orderAssociations(s.salesChannelCriteria("salesChannelId")), since))
	})
}

func (s *OrderSynchronizer) syncToBridge(ctx context.Context, criteria *platform.Criteria) (*Report, error) {
	report := NewReport(KindOrder, ToBridge)
	err := s.eachPlatform(ctx, platform.EntityOrder, criteria.WithSort("orderDateTime"), func(rec platform.Record) error {
		s.finish(ctx, report, s.upsertRecord(ctx, rec))
		return nil
	})
	if err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

func (s *OrderSynchronizer) upsertRecord(ctx context.Context, rec platform.Record) *Result {
	key := rec.ID()
	candidate, refs, err := mapping.OrderFromPlatform(rec)
	if err != nil {
		return unmapped(key, err)
	}
	log := s.recordLogger(ctx, ToBridge, key)
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Order]{
		Find: orderByPlatformID(candidate.PlatformID),
		Save: saveOrder,
		Bind: func(ctx context.Context, repos Repositories, o *bridge.Order) error {
			return s.binder.bindOrder(ctx, repos, o, refs, log)
		},
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}
