package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/domain/bridge"
)

// markers reads and advances the last successful run per kind and direction
type markers struct {
	scope    TransactionScope
	lookback time.Duration
	now      func() time.Time
}

func newMarkers(scope TransactionScope, lookback time.Duration, now func() time.Time) *markers {
	return &markers{scope: scope, lookback: lookback, now: now}
}

// since returns the start of the last successful run, or now minus the
// lookback window when the kind never ran.
func (m *markers) since(ctx context.Context, kind EntityKind, direction Direction) (time.Time, error) {
	var since time.Time
	err := m.scope.Execute(ctx, func(repos Repositories) error {
		marker, err := repos.SyncMarkers().Get(ctx, string(kind), string(direction))
		found, err := resolved(err)
		if err != nil {
			return err
		}
		if found {
			since = marker.SyncedAt
		} else {
			since = m.now().Add(-m.lookback)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync marker: %w", err)
	}
	return since, nil
}

// mark records startedAt as the last successful run
func (m *markers) mark(ctx context.Context, kind EntityKind, direction Direction, startedAt time.Time) error {
	err := m.scope.Execute(ctx, func(repos Repositories) error {
		return repos.SyncMarkers().Save(ctx, &bridge.SyncMarker{
			Kind:      string(kind),
			Direction: string(direction),
			SyncedAt:  startedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to save sync marker: %w", err)
	}
	return nil
}
