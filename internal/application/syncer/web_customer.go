package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"golang.org/x/time/rate"
)

// preservedCustomerKeys are platform customer fields maintained on the
// platform that a push must not reset
var preservedCustomerKeys = []string{"groupId", "defaultPaymentMethodId", "salutationId"}

// WebCustomerSynchronizer syncs platform customers with their addresses into
// the bridge and pushes bridge customers to every marketplace they are
// linked to. To-bridge keys are platform customer ids, from-bridge keys are
// e-mail addresses.
type WebCustomerSynchronizer struct {
	base
	binder binder
}

// NewWebCustomerSynchronizer creates a WebCustomerSynchronizer
func NewWebCustomerSynchronizer(deps Dependencies) *WebCustomerSynchronizer {
	b := newBase(KindWebCustomer, deps)
	return &WebCustomerSynchronizer{base: b, binder: binder{deps: b.deps}}
}

var _ Synchronizer = (*WebCustomerSynchronizer)(nil)

// SyncAllToBridge upserts every customer of the configured sales channels
func (s *WebCustomerSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, customerCriteria(s.salesChannelCriteria("salesChannelId")))
}

// SyncOneToBridge upserts the platform customer with id key
func (s *WebCustomerSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	rec, err := s.onePlatform(ctx, platform.EntityCustomer, customerCriteria(platform.ByID(key)))
	if errors.Is(err, platform.ErrNotFound) {
		return s.logged(ctx, ToBridge, failed(key, err)), nil
	}
	if err != nil {
		return nil, err
	}
	return s.logged(ctx, ToBridge, s.upsertRecord(ctx, rec)), nil
}

// SyncChangedToBridge upserts platform customers updated since the last run
func (s *WebCustomerSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, updatedSince(customerCriteria(s.salesChannelCriteria("salesChannelId")), since))
	})
}

// syncToBridge paces the customers so a large run does not starve the
// platform API.
func (s *WebCustomerSynchronizer) syncToBridge(ctx context.Context, criteria *platform.Criteria) (*Report, error) {
	report := NewReport(KindWebCustomer, ToBridge)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.deps.CustomerPacing > 0 {
		limiter = rate.NewLimiter(rate.Every(s.deps.CustomerPacing), 1)
	}
	err := s.eachPlatform(ctx, platform.EntityCustomer, criteria, func(rec platform.Record) error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		s.finish(ctx, report, s.upsertRecord(ctx, rec))
		return nil
	})
	if err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

func (s *WebCustomerSynchronizer) upsertRecord(ctx context.Context, rec platform.Record) *Result {
	key := rec.ID()
	candidate, refs, err := mapping.CustomerFromPlatform(rec)
	if err != nil {
		return unmapped(key, err)
	}
	// Numbers outside the ERP range were assigned by the platform
	if state, err := s.deps.Numbers.Classify(candidate.ErpNr); err != nil || state != bridge.ErpNrAssigned {
		candidate.ErpNr = ""
	}

	log := s.recordLogger(ctx, ToBridge, key)
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Customer]{
		Find: customerByEmail(candidate.Email),
		Save: saveCustomer,
		Bind: func(ctx context.Context, repos Repositories, c *bridge.Customer) error {
			return s.binder.bindPlatformCustomer(ctx, repos, c, refs, log)
		},
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}

// SyncAllFromBridge pushes every customer linked to a marketplace
func (s *WebCustomerSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Customer, error) {
		return repos.Customers().FindAll(ctx)
	})
}

// SyncOneFromBridge pushes the customer with e-mail key
func (s *WebCustomerSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	c, miss, err := load(ctx, s.deps.Scope, key, customerByEmail(key))
	if err != nil || miss != nil {
		return miss, err
	}
	return s.logged(ctx, FromBridge, s.downsertCustomer(ctx, c)), nil
}

// SyncChangedFromBridge pushes customers updated since the last run
func (s *WebCustomerSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Customer, error) {
			return repos.Customers().FindUpdatedSince(ctx, since)
		})
	})
}

func (s *WebCustomerSynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Customer, error)) (*Report, error) {
	report := NewReport(KindWebCustomer, FromBridge)
	rows, err := loadAll(ctx, s.deps.Scope, find)
	if err != nil {
		return s.abort(report, err), err
	}
	for _, c := range rows {
		if err := ctx.Err(); err != nil {
			return s.abort(report, err), err
		}
		s.finish(ctx, report, s.downsertCustomer(ctx, c))
	}
	return s.done(report), nil
}

// downsertCustomer writes c to every marketplace it is linked to. Customers
// without a platform account are skipped.
func (s *WebCustomerSynchronizer) downsertCustomer(ctx context.Context, c *bridge.Customer) *Result {
	key := c.Email
	client, err := s.platform()
	if err != nil {
		return failed(key, err)
	}

	type target struct {
		link        bridge.CustomerMarketplace
		marketplace *bridge.Marketplace
	}
	var targets []target
	err = s.deps.Scope.Execute(ctx, func(repos Repositories) error {
		for _, link := range c.Marketplaces {
			if link.PlatformCustomerID == "" {
				continue
			}
			m, err := repos.Marketplaces().FindByID(ctx, link.MarketplaceID)
			if err != nil {
				return fmt.Errorf("marketplace %s: %w", link.MarketplaceID, err)
			}
			targets = append(targets, target{link: link, marketplace: m})
		}
		return nil
	})
	if err != nil {
		return failed(key, err)
	}
	if len(targets) == 0 {
		return skipped(key, "not linked to a platform customer")
	}

	created := false
	for _, t := range targets {
		payload := mapping.CustomerPayload(c, t.link, t.marketplace)
		ok, err := downsert(ctx, client, platform.EntityCustomer, t.link.PlatformCustomerID, payload, preservedCustomerKeys...)
		if err != nil {
			return failed(key, err)
		}
		created = created || ok
	}
	return succeeded(key, c.ID, created)
}
