package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
)

// MarketplaceSynchronizer reads platform sales channels into the bridge.
// Marketplaces are never written back.
type MarketplaceSynchronizer struct {
	base
	unsupportedFrom
}

// NewMarketplaceSynchronizer creates a MarketplaceSynchronizer
func NewMarketplaceSynchronizer(deps Dependencies) *MarketplaceSynchronizer {
	return &MarketplaceSynchronizer{
		base:            newBase(KindMarketplace, deps),
		unsupportedFrom: unsupportedFrom{kind: KindMarketplace},
	}
}

var _ Synchronizer = (*MarketplaceSynchronizer)(nil)

func salesChannelAssociations(c *platform.Criteria) *platform.Criteria {
	return c.WithAssociation("domains").WithAssociation("currency")
}

// SyncAllToBridge upserts every configured sales channel
func (s *MarketplaceSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, salesChannelAssociations(s.salesChannelCriteria("id")))
}

// SyncOneToBridge upserts the sales channel with platform id key
func (s *MarketplaceSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	rec, err := s.onePlatform(ctx, platform.EntitySalesChannel, salesChannelAssociations(platform.ByID(key)))
	if errors.Is(err, platform.ErrNotFound) {
		return s.logged(ctx, ToBridge, failed(key, err)), nil
	}
	if err != nil {
		return nil, err
	}
	return s.logged(ctx, ToBridge, s.upsertRecord(ctx, rec)), nil
}

// SyncChangedToBridge upserts sales channels updated since the last run
func (s *MarketplaceSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, updatedSince(salesChannelAssociations(s.salesChannelCriteria("id")), since))
	})
}

func (s *MarketplaceSynchronizer) syncToBridge(ctx context.Context, criteria *platform.Criteria) (*Report, error) {
	report := NewReport(KindMarketplace, ToBridge)
	err := s.eachPlatform(ctx, platform.EntitySalesChannel, criteria, func(rec platform.Record) error {
		s.finish(ctx, report, s.upsertRecord(ctx, rec))
		return nil
	})
	if err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

func (s *MarketplaceSynchronizer) upsertRecord(ctx context.Context, rec platform.Record) *Result {
	key := rec.ID()
	candidate, err := mapping.MarketplaceFromPlatform(rec)
	if err != nil {
		return unmapped(key, err)
	}
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Marketplace]{
		Find: marketplaceByPlatformID(candidate.PlatformID),
		Save: saveMarketplace,
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}
