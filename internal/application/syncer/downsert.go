package syncer

import (
	"context"
	"fmt"

	"github.com/erp/bridge/internal/domain/platform"
)

// downsert pushes payload to the platform entity with the given id: it
// searches by id, patches an existing entity after carrying over the
// preserved keys, or creates a missing one with the full payload. It reports
// whether the entity was created.
func downsert(ctx context.Context, client platform.Client, entity platform.Entity, id string, payload platform.Payload, preserve ...string) (bool, error) {
	res, err := client.Search(ctx, entity, platform.ByID(id))
	if err != nil {
		return false, fmt.Errorf("%w: search %s %s: %w", ErrCrossSystemWrite, entity, id, err)
	}

	existing, found := res.First()
	if !found {
		if err := client.Create(ctx, entity, payload); err != nil {
			return false, fmt.Errorf("%w: create %s %s: %w", ErrCrossSystemWrite, entity, id, err)
		}
		return true, nil
	}

	update := mergePayload(existing, payload, preserve).Without("id")
	if err := client.Update(ctx, entity, id, update); err != nil {
		return false, fmt.Errorf("%w: update %s %s: %w", ErrCrossSystemWrite, entity, id, err)
	}
	return false, nil
}

// mergePayload returns payload with the preserved keys taken from existing
// where the platform already holds a value for them.
func mergePayload(existing platform.Record, payload platform.Payload, preserve []string) platform.Payload {
	base := make(platform.Payload, len(preserve))
	for _, key := range preserve {
		if _, ok := payload[key]; !ok {
			continue
		}
		if v, ok := existing[key]; ok && v != nil {
			base[key] = v
		}
	}
	return base.Merge(payload, preserve...)
}
