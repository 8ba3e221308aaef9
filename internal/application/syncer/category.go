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
)

// CategorySynchronizer syncs ERP product groups into the bridge and the
// category tree to the platform. Keys are ERP group numbers.
type CategorySynchronizer struct {
	base
	binder binder
}

// NewCategorySynchronizer creates a CategorySynchronizer
func NewCategorySynchronizer(deps Dependencies) *CategorySynchronizer {
	b := newBase(KindCategory, deps)
	return &CategorySynchronizer{base: b, binder: binder{deps: b.deps}}
}

var _ Synchronizer = (*CategorySynchronizer)(nil)

// SyncAllToBridge upserts every ERP product group
func (s *CategorySynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, nil)
}

// SyncOneToBridge upserts the product group with number key
func (s *CategorySynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	parentOf, err := s.parents(ctx)
	if err != nil {
		return nil, err
	}
	return s.oneERP(ctx, erp.TableGroups, erp.IndexNr, key, s.upsertRecord(parentOf))
}

// SyncChangedToBridge upserts product groups modified since the last run
func (s *CategorySynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, modifiedSince(erp.IndexWgrModified, since))
	})
}

func (s *CategorySynchronizer) syncToBridge(ctx context.Context, narrow func(erp.Dataset) error) (*Report, error) {
	report := NewReport(KindCategory, ToBridge)
	parentOf, err := s.parents(ctx)
	if err != nil {
		return s.abort(report, err), err
	}
	if err := s.eachERP(ctx, report, erp.TableGroups, narrow, s.upsertRecord(parentOf)); err != nil {
		return s.abort(report, err), err
	}
	return s.done(report), nil
}

// parents reads the parent number of every product group. The tree path of
// a group depends on groups outside a changed range.
func (s *CategorySynchronizer) parents(ctx context.Context) (map[string]string, error) {
	parentOf := make(map[string]string)
	err := s.deps.ERP.Do(ctx, func(conn erp.Connection) error {
		return erp.WithDataset(ctx, conn, erp.TableGroups, func(ds erp.Dataset) error {
			return erp.ForEach(ds, func(rec *erp.Record) error {
				nr := strings.TrimSpace(rec.String(erp.WgrNr))
				parent := strings.TrimSpace(rec.String(erp.WgrParentNr))
				if err := rec.Err(); err != nil {
					return err
				}
				if parent == nr || parent == "0" {
					parent = ""
				}
				parentOf[nr] = parent
				return nil
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read product group tree: %w", err)
	}
	return parentOf, nil
}

func (s *CategorySynchronizer) upsertRecord(parentOf map[string]string) erpRecordFunc {
	return func(ctx context.Context, _ erp.Connection, rec *erp.Record) *Result {
		key := strings.TrimSpace(rec.String(erp.WgrNr))
		candidate, refs, err := mapping.CategoryFromERP(rec, parentOf, s.deps.Options)
		if err != nil {
			return unmapped(key, err)
		}
		log := s.recordLogger(ctx, ToBridge, key)
		row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Category]{
			Find: categoryByErpNr(candidate.ErpNr),
			Save: saveCategory,
			Bind: func(ctx context.Context, repos Repositories, c *bridge.Category) error {
				return s.binder.bindCategory(ctx, repos, c, refs, log)
			},
		})
		if err != nil {
			return failed(key, err)
		}
		return succeeded(key, row.ID, created)
	}
}

// SyncAllFromBridge pushes the whole category tree, parents first
func (s *CategorySynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Category, error) {
		return repos.Categories().FindAll(ctx)
	})
}

// SyncOneFromBridge pushes the category with ERP number key
func (s *CategorySynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	c, miss, err := load(ctx, s.deps.Scope, key, categoryByErpNr(key))
	if err != nil || miss != nil {
		return miss, err
	}
	return s.logged(ctx, FromBridge, s.downsertCategory(ctx, c)), nil
}

// SyncChangedFromBridge pushes categories updated since the last run
func (s *CategorySynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Category, error) {
			return repos.Categories().FindUpdatedSince(ctx, since)
		})
	})
}

func (s *CategorySynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Category, error)) (*Report, error) {
	report := NewReport(KindCategory, FromBridge)
	rows, err := loadAll(ctx, s.deps.Scope, find)
	if err != nil {
		return s.abort(report, err), err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Depth() < rows[j].Depth() })
	for _, c := range rows {
		s.finish(ctx, report, s.downsertCategory(ctx, c))
	}
	return s.done(report), nil
}

// downsertCategory resolves the parent and cover image of c and writes it.
// A parent missing from the bridge fails the category.
func (s *CategorySynchronizer) downsertCategory(ctx context.Context, c *bridge.Category) *Result {
	client, err := s.platform()
	if err != nil {
		return failed(c.ErpNr, err)
	}

	var parent *bridge.Category
	var cover *bridge.Media
	err = s.deps.Scope.Execute(ctx, func(repos Repositories) error {
		if !c.IsRoot() {
			p, err := repos.Categories().FindByErpNr(ctx, c.ErpParentNr)
			if err != nil {
				return fmt.Errorf("parent category %s: %w", c.ErpParentNr, err)
			}
			parent = p
		}
		if id, ok := c.CoverMediaID(); ok {
			m, err := repos.Media().FindByID(ctx, id)
			found, err := resolved(err)
			if err != nil {
				return err
			}
			if found {
				cover = m
			}
		}
		return nil
	})
	if err != nil {
		return failed(c.ErpNr, err)
	}

	payload := mapping.CategoryPayload(c, parent, cover, s.deps.Options)
	created, err := downsert(ctx, client, platform.EntityCategory, c.PlatformID, payload, "active")
	if err != nil {
		return failed(c.ErpNr, err)
	}
	return succeeded(c.ErpNr, c.ID, created)
}
