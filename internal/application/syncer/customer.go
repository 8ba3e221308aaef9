package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/platform"
	"go.uber.org/zap"
)

// CustomerSynchronizer syncs ERP customers with their Anschriften into the
// bridge and writes bridge customers back into the ERP. To-bridge keys are
// ERP address numbers, from-bridge keys are e-mail addresses.
type CustomerSynchronizer struct {
	base
	binder binder
}

// NewCustomerSynchronizer creates a CustomerSynchronizer
func NewCustomerSynchronizer(deps Dependencies) *CustomerSynchronizer {
	b := newBase(KindCustomer, deps)
	return &CustomerSynchronizer{base: b, binder: binder{deps: b.deps}}
}

var _ Synchronizer = (*CustomerSynchronizer)(nil)

// SyncAllToBridge upserts every ERP customer
func (s *CustomerSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, nil)
}

// SyncOneToBridge upserts the ERP customer with address number key
func (s *CustomerSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	return s.oneERP(ctx, erp.TableAddresses, erp.IndexNr, key, s.upsertRecord)
}

// SyncChangedToBridge upserts ERP customers modified since the last run
func (s *CustomerSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, modifiedSince(erp.IndexAdrModified, since))
	})
}

func (s *CustomerSynchronizer) syncToBridge(ctx context.Context, narrow func(erp.Dataset) error) (*Report, error) {
	report := NewReport(KindCustomer, ToBridge)
	if err := s.eachERP(ctx, report, erp.TableAddresses, narrow, s.upsertRecord); err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

func (s *CustomerSynchronizer) upsertRecord(ctx context.Context, conn erp.Connection, rec *erp.Record) *Result {
	key := strings.TrimSpace(rec.String(erp.AdrNr))
	candidate, err := mapping.CustomerFromERP(rec)
	if err != nil {
		return unmapped(key, err)
	}
	log := s.recordLogger(ctx, ToBridge, key)
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Customer]{
		Find: customerByEmail(candidate.Email),
		Save: saveCustomer,
		Bind: func(ctx context.Context, _ Repositories, c *bridge.Customer) error {
			return s.binder.bindAnschriften(ctx, conn, c, candidate.ErpNr, log)
		},
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}

// SyncAllFromBridge writes every bridge customer into the ERP
func (s *CustomerSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Customer, error) {
		return repos.Customers().FindAll(ctx)
	})
}

// SyncChangedFromBridge writes customers updated since the last run
func (s *CustomerSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Customer, error) {
			return repos.Customers().FindUpdatedSince(ctx, since)
		})
	})
}

func (s *CustomerSynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Customer, error)) (*Report, error) {
	report := NewReport(KindCustomer, FromBridge)
	rows, err := loadAll(ctx, s.deps.Scope, find)
	if err != nil {
		return s.abort(report, err), err
	}
	for _, c := range rows {
		if err := ctx.Err(); err != nil {
			return s.abort(report, err), err
		}
		res, err := s.writeCustomer(ctx, c)
		if err != nil {
			return s.abort(report, err), err
		}
		s.finish(ctx, report, res)
	}
	return s.done(report), nil
}

// SyncOneFromBridge writes the customer with e-mail key into the ERP
func (s *CustomerSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	c, miss, err := load(ctx, s.deps.Scope, key, customerByEmail(key))
	if err != nil || miss != nil {
		return miss, err
	}
	res, err := s.writeCustomer(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.logged(ctx, FromBridge, res), nil
}

// writeCustomer propagates c to the ERP:
//
//  1. the customer number decides between creating and updating the
//     Adressen record; numbers below the range fail the customer
//  2. billing, then shipping address are written as Anschrift with contact
//     and their combined ids are rewritten
//  3. the standard flags are reset so exactly one Anschrift is standard
//     billing and one standard shipping address
//  4. the bridge customer is saved with the ERP number
//  5. the number is published to every linked platform customer
//
// Steps 1 to 3 run in one ERP transaction. A bridge save failure after the
// ERP commit is returned as error; the ERP rows are not compensated.
func (s *CustomerSynchronizer) writeCustomer(ctx context.Context, c *bridge.Customer) (*Result, error) {
	key := c.Email
	log := s.recordLogger(ctx, FromBridge, key)

	state, err := s.deps.Numbers.Classify(c.ErpNr)
	if err != nil {
		return failed(key, err), nil
	}

	var (
		adrNr  string
		writes []roleWrite
	)
	err = s.deps.ERP.Transaction(ctx, func(conn erp.Connection) error {
		w := &erpCustomerWriter{conn: conn, now: s.deps.Now()}
		var err error
		adrNr, writes, err = w.write(ctx, c, state)
		return err
	})
	if err != nil {
		if errors.Is(err, erp.ErrNotConnected) {
			return nil, err
		}
		return failed(key, fmt.Errorf("%w: %w", ErrCrossSystemWrite, err)), nil
	}

	numberChanged := c.ErpNr != adrNr
	c.ErpNr = adrNr
	for _, w := range writes {
		if w.shipping {
			w.address.SetShippingCombinedID(w.combined)
		} else {
			w.address.SetCombinedID(w.combined)
		}
	}
	c.Touch()
	if err := s.deps.Scope.Execute(ctx, func(repos Repositories) error {
		return repos.Customers().Save(ctx, c)
	}); err != nil {
		return nil, fmt.Errorf("failed to save customer %s after erp write: %w", key, err)
	}

	if numberChanged {
		s.publishNumber(ctx, c, log)
	}
	return succeeded(key, c.ID, state == bridge.ErpNrUnassigned), nil
}

// publishNumber sets the ERP number on every linked platform customer.
// Failures are logged only.
func (s *CustomerSynchronizer) publishNumber(ctx context.Context, c *bridge.Customer, log *zap.Logger) {
	client, err := s.platform()
	if err != nil {
		log.Debug("Platform not configured, customer number not published")
		return
	}
	for _, link := range c.Marketplaces {
		if link.PlatformCustomerID == "" {
			continue
		}
		payload := platform.Payload{"customerNumber": c.ErpNr}
		if err := client.Update(ctx, platform.EntityCustomer, link.PlatformCustomerID, payload); err != nil {
			log.Warn("Failed to publish customer number",
				zap.String("platform_customer_id", link.PlatformCustomerID),
				zap.Error(err))
		}
	}
}
