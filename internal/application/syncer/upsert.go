package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/google/uuid"
)

// bridgeEntity is a bridge row that can absorb a freshly mapped candidate
type bridgeEntity[T any] interface {
	GetID() uuid.UUID
	Update(candidate T)
}

// upsertSpec describes the to-bridge write of one mapped record
type upsertSpec[T bridgeEntity[T]] struct {
	// Find resolves the natural key of the candidate. It returns
	// bridge.ErrNotFound when no row matches.
	Find func(ctx context.Context, repos Repositories) (T, error)
	// Save writes the row
	Save func(ctx context.Context, repos Repositories, row T) error
	// Bind attaches relations once the row is persisted. Optional.
	Bind func(ctx context.Context, repos Repositories, row T) error
}

// upsert writes candidate into the bridge inside one transaction: resolve,
// update or insert, flush, bind relations, save again. Any error rolls the
// whole record back. It returns the persisted row and whether it was created.
func upsert[T bridgeEntity[T]](ctx context.Context, scope TransactionScope, candidate T, spec upsertSpec[T]) (T, bool, error) {
	var (
		row     T
		created bool
	)
	err := scope.Execute(ctx, func(repos Repositories) error {
		existing, err := spec.Find(ctx, repos)
		found, err := resolved(err)
		if err != nil {
			return err
		}

		row, created = candidate, !found
		if found {
			existing.Update(candidate)
			row = existing
		}
		if err := spec.Save(ctx, repos, row); err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
		if spec.Bind == nil {
			return nil
		}
		if err := spec.Bind(ctx, repos, row); err != nil {
			return err
		}
		if err := spec.Save(ctx, repos, row); err != nil {
			return fmt.Errorf("failed to save relations: %w", err)
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return row, created, nil
}

// resolved turns a natural-key lookup error into a found flag. Ambiguous
// matches and store failures stay errors.
func resolved(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bridge.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
