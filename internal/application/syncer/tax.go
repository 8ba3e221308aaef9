package syncer

import (
	"context"
	"strings"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/platform"
)

// TaxSynchronizer syncs ERP tax classes into the bridge and the bridge tax
// classes to the platform. Keys are ERP tax numbers in both directions.
type TaxSynchronizer struct {
	base
}

// NewTaxSynchronizer creates a TaxSynchronizer
func NewTaxSynchronizer(deps Dependencies) *TaxSynchronizer {
	return &TaxSynchronizer{base: newBase(KindTax, deps)}
}

var _ Synchronizer = (*TaxSynchronizer)(nil)

// SyncAllToBridge upserts every ERP tax class
func (s *TaxSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	report := NewReport(KindTax, ToBridge)
	if err := s.eachERP(ctx, report, erp.TableTaxes, nil, s.upsertRecord); err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

// SyncOneToBridge upserts the ERP tax class with number key
func (s *TaxSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	return s.oneERP(ctx, erp.TableTaxes, erp.IndexNr, key, s.upsertRecord)
}

// SyncChangedToBridge syncs all tax classes. The ERP tax table carries no
// modification date.
func (s *TaxSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.SyncAllToBridge(ctx)
}

func (s *TaxSynchronizer) upsertRecord(ctx context.Context, _ erp.Connection, rec *erp.Record) *Result {
	key := strings.TrimSpace(rec.String(erp.TaxNr))
	candidate, err := mapping.TaxFromERP(rec)
	if err != nil {
		return unmapped(key, err)
	}
	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Tax]{
		Find: taxByErpNr(candidate.ErpNr),
		Save: saveTax,
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}

// SyncAllFromBridge pushes every bridge tax class to the platform
func (s *TaxSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	report := NewReport(KindTax, FromBridge)
	taxes, err := loadAll(ctx, s.deps.Scope, func(ctx context.Context, repos Repositories) ([]*bridge.Tax, error) {
		return repos.Taxes().FindAll(ctx)
	})
	if err != nil {
		return s.abort(report, err), err
	}
	for _, t := range taxes {
		s.finish(ctx, report, s.downsertTax(ctx, t))
	}
	return s.done(report), nil
}

// SyncOneFromBridge pushes the bridge tax class with ERP number key
func (s *TaxSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	tax, miss, err := load(ctx, s.deps.Scope, key, taxByErpNr(key))
	if err != nil || miss != nil {
		return miss, err
	}
	return s.logged(ctx, FromBridge, s.downsertTax(ctx, tax)), nil
}

// SyncChangedFromBridge pushes all tax classes. The bridge keeps no change
// history for them and the set is small.
func (s *TaxSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(time.Time) (*Report, error) {
		return s.SyncAllFromBridge(ctx)
	})
}

func (s *TaxSynchronizer) downsertTax(ctx context.Context, t *bridge.Tax) *Result {
	client, err := s.platform()
	if err != nil {
		return failed(t.ErpNr, err)
	}
	created, err := downsert(ctx, client, platform.EntityTax, t.PlatformID, mapping.TaxPayload(t))
	if err != nil {
		return failed(t.ErpNr, err)
	}
	return succeeded(t.ErpNr, t.ID, created)
}
