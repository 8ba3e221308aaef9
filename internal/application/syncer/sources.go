package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/erp"
	"github.com/erp/bridge/internal/domain/platform"
)

// ---------------------------------------------------------------------------
// ERP
// ---------------------------------------------------------------------------

// erpRecordFunc handles one ERP record. conn is the open session, for
// nested reads of related tables.
type erpRecordFunc func(ctx context.Context, conn erp.Connection, rec *erp.Record) *Result

// eachERP calls fn for every record of table, in index order. narrow, when
// set, positions the cursor first, e.g. with a range.
func (b *base) eachERP(ctx context.Context, report *Report, table string, narrow func(ds erp.Dataset) error, fn erpRecordFunc) error {
	return b.deps.ERP.Do(ctx, func(conn erp.Connection) error {
		return erp.WithDataset(ctx, conn, table, func(ds erp.Dataset) error {
			if narrow != nil {
				if err := narrow(ds); err != nil {
					return err
				}
			}
			return erp.ForEach(ds, func(rec *erp.Record) error {
				b.finish(ctx, report, fn(ctx, conn, rec))
				return ctx.Err()
			})
		})
	})
}

// oneERP locates the record of table with key and calls fn. A missing
// record is a failed result, not an error.
func (b *base) oneERP(ctx context.Context, table, index, key string, fn erpRecordFunc) (*Result, error) {
	var res *Result
	err := b.deps.ERP.Do(ctx, func(conn erp.Connection) error {
		return erp.WithDataset(ctx, conn, table, func(ds erp.Dataset) error {
			rec, err := erp.Locate(ds, index, key)
			if errors.Is(err, erp.ErrRecordNotFound) {
				res = failed(key, fmt.Errorf("%s %s: %w", table, key, err))
				return nil
			}
			if err != nil {
				return err
			}
			res = fn(ctx, conn, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	b.logResult(ctx, ToBridge, res)
	return res, nil
}

// modifiedSince narrows a dataset to records modified at or after since
func modifiedSince(index string, since time.Time) func(ds erp.Dataset) error {
	return func(ds erp.Dataset) error {
		return ds.SetRange(index, []any{since}, nil)
	}
}

// ---------------------------------------------------------------------------
// Bridge
// ---------------------------------------------------------------------------

// load reads one bridge row by natural key. A missing row is returned as a
// failed result, store errors as error.
func load[T any](ctx context.Context, scope TransactionScope, key string, find func(context.Context, Repositories) (T, error)) (T, *Result, error) {
	var row T
	err := scope.Execute(ctx, func(repos Repositories) error {
		var err error
		row, err = find(ctx, repos)
		return err
	})
	if errors.Is(err, bridge.ErrNotFound) {
		return row, failed(key, fmt.Errorf("%s not in bridge: %w", key, err)), nil
	}
	return row, nil, err
}

// loadAll reads a list of bridge rows
func loadAll[T any](ctx context.Context, scope TransactionScope, find func(context.Context, Repositories) ([]T, error)) ([]T, error) {
	var rows []T
	err := scope.Execute(ctx, func(repos Repositories) error {
		var err error
		rows, err = find(ctx, repos)
		return err
	})
	return rows, err
}

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

// eachPlatform pages through the search hits of entity and calls fn for each
func (b *base) eachPlatform(ctx context.Context, entity platform.Entity, criteria *platform.Criteria, fn func(rec platform.Record) error) error {
	client, err := b.platform()
	if err != nil {
		return err
	}
	if criteria == nil {
		criteria = platform.NewCriteria()
	}
	size := b.deps.PageSize
	for page := 1; ; page++ {
		c := *criteria
		c.Limit, c.Page = size, page
		res, err := client.Search(ctx, entity, &c)
		if err != nil {
			return fmt.Errorf("failed to search %s page %d: %w", entity, page, err)
		}
		for _, rec := range res.Data {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(res.Data) < size || (res.Total > 0 && page*size >= res.Total) {
			return nil
		}
	}
}

// onePlatform fetches one entity by id through the search endpoint so that
// associations are loaded. A missing entity is platform.ErrNotFound.
func (b *base) onePlatform(ctx context.Context, entity platform.Entity, criteria *platform.Criteria) (platform.Record, error) {
	client, err := b.platform()
	if err != nil {
		return nil, err
	}
	res, err := client.Search(ctx, entity, criteria)
	if err != nil {
		return nil, err
	}
	rec, ok := res.First()
	if !ok {
		return nil, platform.ErrNotFound
	}
	return rec, nil
}

// salesChannelCriteria restricts a search to the configured sales channels
func (b *base) salesChannelCriteria(field string) *platform.Criteria {
	c := platform.NewCriteria()
	if len(b.deps.SalesChannelIDs) > 0 {
		c.Filters = append(c.Filters, platform.EqualsAny(field, b.deps.SalesChannelIDs...))
	}
	return c
}

// updatedSince adds a modification filter to criteria
func updatedSince(c *platform.Criteria, since time.Time) *platform.Criteria {
	c.Filters = append(c.Filters, platform.GreaterThanOrEqual("updatedAt", since.UTC().Format(time.RFC3339)))
	return c
}
