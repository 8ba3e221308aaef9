package syncer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/google/uuid"
)

// ProductSynchronizer syncs ERP articles into the bridge and the bridge
// products to the platform. Keys are ERP article numbers.
type ProductSynchronizer struct {
	base
	binder binder
}

// NewProductSynchronizer creates a ProductSynchronizer
func NewProductSynchronizer(deps Dependencies) *ProductSynchronizer {
	b := newBase(KindProduct, deps)
	return &ProductSynchronizer{base: b, binder: binder{deps: b.deps}}
}

var _ Synchronizer = (*ProductSynchronizer)(nil)

// SyncAllToBridge upserts every ERP article
func (s *ProductSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, nil)
}

// SyncOneToBridge upserts the article with number key
func (s *ProductSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	return s.oneERP(ctx, erp.TableArticles, erp.IndexArtNr, key, s.upsertRecord)
}

// SyncChangedToBridge upserts articles modified since the last run
func (s *ProductSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, modifiedSince(erp.IndexArtModified, since))
	})
}

func (s *ProductSynchronizer) syncToBridge(ctx context.Context, narrow func(erp.Dataset) error) (*Report, error) {
	report := NewReport(KindProduct, ToBridge)
	if err := s.eachERP(ctx, report, erp.TableArticles, narrow, s.upsertRecord); err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

func (s *ProductSynchronizer) upsertRecord(ctx context.Context, conn erp.Connection, rec *erp.Record) *Result {
	key := strings.TrimSpace(rec.String(erp.ArtNr))
	candidate, refs, err := mapping.ProductFromERP(rec, s.deps.Options)
	if err != nil {
		return unmapped(key, err)
	}
	log := s.recordLogger(ctx, ToBridge, key)
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Product]{
		Find: productByErpNr(candidate.ErpNr),
		Save: saveProduct,
		Bind: func(ctx context.Context, repos Repositories, p *bridge.Product) error {
			return s.binder.bindProduct(ctx, repos, conn, p, refs, log)
		},
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}

// SyncAllFromBridge pushes every bridge product
func (s *ProductSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Product, error) {
		return repos.Products().FindAll(ctx)
	})
}

// SyncOneFromBridge pushes the product with ERP number key
func (s *ProductSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	p, miss, err := load(ctx, s.deps.Scope, key, productByErpNr(key))
	if err != nil || miss != nil {
		return miss, err
	}
	return s.logged(ctx, FromBridge, s.downsertProduct(ctx, p)), nil
}

// SyncChangedFromBridge pushes products updated since the last run
func (s *ProductSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Product, error) {
			return repos.Products().FindUpdatedSince(ctx, since)
		})
	})
}

func (s *ProductSynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Product, error)) (*Report, error) {
	report := NewReport(KindProduct, FromBridge)
	rows, err := loadAll(ctx, s.deps.Scope, find)
	if err != nil {
		return s.abort(report, err), err
	}
	for _, p := range rows {
		if err := ctx.Err(); err != nil {
			return s.abort(report, err), err
		}
		s.finish(ctx, report, s.downsertProduct(ctx, p))
	}
	return s.done(report), nil
}

func (s *ProductSynchronizer) downsertProduct(ctx context.Context, p *bridge.Product) *Result {
	client, err := s.platform()
	if err != nil {
		return failed(p.ErpNr, err)
	}
	var links mapping.ProductLinks
	err = s.deps.Scope.Execute(ctx, func(repos Repositories) error {
		links, err = productLinks(ctx, repos, p)
		return err
	})
	if err != nil {
		return failed(p.ErpNr, err)
	}

	payload := mapping.ProductPayload(p, links, s.deps.Now(), s.deps.Options)
	created, err := downsert(ctx, client, platform.EntityProduct, p.PlatformID, payload, "coverId")
	if err != nil {
		return failed(p.ErpNr, err)
	}
	return succeeded(p.ErpNr, p.ID, created)
}

// productLinks loads the rows p is linked to. Links to deleted rows are dropped.
func productLinks(ctx context.Context, repos Repositories, p *bridge.Product) (mapping.ProductLinks, error) {
	var links mapping.ProductLinks
	if p.TaxID != nil {
		t, err := repos.Taxes().FindByID(ctx, *p.TaxID)
		found, err := resolved(err)
		if err != nil {
			return links, fmt.Errorf("tax: %w", err)
		}
		if found {
			links.Tax = t
		}
	}

	if len(p.CategoryIDs) > 0 {
		categories, err := repos.Categories().FindByIDs(ctx, p.CategoryIDs)
		if err != nil {
			return links, fmt.Errorf("categories: %w", err)
		}
		links.Categories = categories
	}

	if len(p.Media) > 0 {
		order := make(map[uuid.UUID]int, len(p.Media))
		ids := make([]uuid.UUID, 0, len(p.Media))
		for _, l := range p.Media {
			order[l.MediaID] = l.SortOrder
			ids = append(ids, l.MediaID)
		}
		media, err := repos.Media().FindByIDs(ctx, ids)
		if err != nil {
			return links, fmt.Errorf("media: %w", err)
		}
		for _, m := range media {
			links.Media = append(links.Media, mapping.MediaRef{Media: m, SortOrder: order[m.ID]})
		}
		sort.SliceStable(links.Media, func(i, j int) bool { return links.Media[i].SortOrder < links.Media[j].SortOrder })
	}

	for _, mp := range p.MarketplacePrices {
		m, err := repos.Marketplaces().FindByID(ctx, mp.MarketplaceID)
		found, err := resolved(err)
		if err != nil {
			return links, fmt.Errorf("marketplace: %w", err)
		}
		if found {
			links.Marketplaces = append(links.Marketplaces, mapping.MarketplaceRef{Marketplace: m, Price: mp})
		}
	}
	return links, nil
}
