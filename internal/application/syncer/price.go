package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"github.com/google/uuid"
)

// PriceSynchronizer publishes the marketplace prices of bridge products as
// advanced price rows. Prices come from the ERP through the product kind, so
// there is nothing to sync into the bridge. Keys are ERP article numbers.
type PriceSynchronizer struct {
	base
	unsupportedTo
}

// NewPriceSynchronizer creates a PriceSynchronizer
func NewPriceSynchronizer(deps Dependencies) *PriceSynchronizer {
	return &PriceSynchronizer{
		base:          newBase(KindPrice, deps),
		unsupportedTo: unsupportedTo{kind: KindPrice},
	}
}

var _ Synchronizer = (*PriceSynchronizer)(nil)

// priceBatch are the rows of one marketplace, one entry per product
type priceBatch struct {
	marketplace *bridge.Marketplace
	products    []*bridge.Product
	payloads    [][]platform.Payload
}

// SyncAllFromBridge pushes the prices of every product
func (s *PriceSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Product, error) {
		return repos.Products().FindAll(ctx)
	})
}

// SyncOneFromBridge pushes the prices of the product with ERP number key in
// one bulk request.
func (s *PriceSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	batches, err := s.prepare(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Product, error) {
		p, err := repos.Products().FindByErpNr(ctx, key)
		if err != nil {
			return nil, err
		}
		return []*bridge.Product{p}, nil
	})
	if errors.Is(err, bridge.ErrNotFound) {
		return s.logged(ctx, FromBridge, failed(key, fmt.Errorf("%s not in bridge: %w", key, err))), nil
	}
	if err != nil {
		return nil, err
	}

	var (
		rows []platform.Payload
		id   uuid.UUID
	)
	for _, b := range batches {
		for i, p := range b.products {
			id = p.ID
			rows = append(rows, b.payloads[i]...)
		}
	}
	if len(rows) == 0 {
		return s.logged(ctx, FromBridge, skipped(key, "no marketplace price")), nil
	}
	client, err := s.platform()
	if err != nil {
		return s.logged(ctx, FromBridge, failed(key, err)), nil
	}
	if err := client.Upsert(ctx, platform.EntityProductPrice, rows); err != nil {
		return s.logged(ctx, FromBridge, failed(key, fmt.Errorf("%w: upsert prices: %w", ErrCrossSystemWrite, err))), nil
	}
	return s.logged(ctx, FromBridge, succeeded(key, id, false)), nil
}

// SyncChangedFromBridge pushes the prices of products updated since the last run
func (s *PriceSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Product, error) {
			return repos.Products().FindUpdatedSince(ctx, since)
		})
	})
}

// syncFromBridge sends one bulk request per marketplace. A failed request
// fails every product of that marketplace.
func (s *PriceSynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Product, error)) (*Report, error) {
	report := NewReport(KindPrice, FromBridge)
	batches, err := s.prepare(ctx, find)
	if err != nil {
		return s.abort(report, err), err
	}
	client, err := s.platform()
	if err != nil {
		return s.abort(report, err), err
	}

	for _, b := range batches {
		var rows []platform.Payload
		for i, p := range b.products {
			if len(b.payloads[i]) == 0 {
				s.finish(ctx, report, skipped(priceKey(p, b.marketplace), "no price rule or price"))
				continue
			}
			rows = append(rows, b.payloads[i]...)
		}
		if len(rows) == 0 {
			continue
		}

		err := client.Upsert(ctx, platform.EntityProductPrice, rows)
		for i, p := range b.products {
			if len(b.payloads[i]) == 0 {
				continue
			}
			if err != nil {
				s.finish(ctx, report, failed(priceKey(p, b.marketplace), fmt.Errorf("%w: upsert prices: %w", ErrCrossSystemWrite, err)))
				continue
			}
			s.finish(ctx, report, succeeded(priceKey(p, b.marketplace), p.ID, false))
		}
	}
	return s.done(report), nil
}

// prepare loads the products and marketplaces, ensures a price association
// per marketplace and builds the price rows. New associations are saved so
// their platform ids stay stable.
func (s *PriceSynchronizer) prepare(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Product, error)) ([]priceBatch, error) {
	var batches []priceBatch
	now := s.deps.Now()
	err := s.deps.Scope.Execute(ctx, func(repos Repositories) error {
		products, err := find(ctx, repos)
		if err != nil {
			return err
		}
		marketplaces, err := repos.Marketplaces().FindAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load marketplaces: %w", err)
		}

		for _, p := range products {
			ensured := false
			for _, m := range marketplaces {
				if _, created := p.EnsureMarketplacePrice(m.ID); created {
					ensured = true
				}
			}
			if ensured {
				if err := repos.Products().Save(ctx, p); err != nil {
					return fmt.Errorf("failed to save price associations of %s: %w", p.ErpNr, err)
				}
			}
		}

		linksOf := make(map[uuid.UUID]mapping.ProductLinks, len(products))
		for _, p := range products {
			links, err := productLinks(ctx, repos, p)
			if err != nil {
				return fmt.Errorf("product %s: %w", p.ErpNr, err)
			}
			linksOf[p.ID] = links
		}

		for _, m := range marketplaces {
			b := priceBatch{marketplace: m}
			for _, p := range products {
				mp, ok := p.MarketplacePrice(m.ID)
				if !ok {
					continue
				}
				ref := mapping.MarketplaceRef{Marketplace: m, Price: mp}
				rate := linksOf[p.ID].TaxRate(s.deps.Options)
				b.products = append(b.products, p)
				b.payloads = append(b.payloads, mapping.PricePayloads(p, ref, rate, now, s.deps.Options))
			}
			batches = append(batches, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func priceKey(p *bridge.Product, m *bridge.Marketplace) string {
	return p.ErpNr + "@" + m.PlatformID
}
