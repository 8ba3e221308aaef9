package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/bridge/internal/application/mapping"
	"github.com/erp/bridge/internal/domain/bridge"
	"github.com/erp/bridge/internal/domain/platform"
	"go.uber.org/zap"
)

// errNoMediaStore is reported when media runs without a configured store
var errNoMediaStore = errors.New("no media store configured")

// MediaSynchronizer registers media files of the media store in the bridge
// and publishes them on the platform. Keys are file names in both directions.
type MediaSynchronizer struct {
	base
}

// NewMediaSynchronizer creates a MediaSynchronizer
func NewMediaSynchronizer(deps Dependencies) *MediaSynchronizer {
	return &MediaSynchronizer{base: newBase(KindMedia, deps)}
}

var _ Synchronizer = (*MediaSynchronizer)(nil)

// SyncAllToBridge registers every file of the store
func (s *MediaSynchronizer) SyncAllToBridge(ctx context.Context) (*Report, error) {
	return s.syncToBridge(ctx, time.Time{})
}

// SyncOneToBridge registers the file named key
func (s *MediaSynchronizer) SyncOneToBridge(ctx context.Context, key string) (*Result, error) {
	if s.deps.Media == nil {
		return nil, errNoMediaStore
	}
	return s.logged(ctx, ToBridge, s.upsertObject(ctx, MediaObject{Name: key})), nil
}

// SyncChangedToBridge registers files modified since the last run
func (s *MediaSynchronizer) SyncChangedToBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, ToBridge, func(since time.Time) (*Report, error) {
		return s.syncToBridge(ctx, since)
	})
}

func (s *MediaSynchronizer) syncToBridge(ctx context.Context, since time.Time) (*Report, error) {
	report := NewReport(KindMedia, ToBridge)
	if s.deps.Media == nil {
		return s.abort(report, errNoMediaStore), errNoMediaStore
	}
	objects, err := s.deps.Media.List(ctx)
	if err != nil {
		return s.abort(report, err), err
	}
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return s.abort(report, err), err
		}
		if !since.IsZero() && obj.ModifiedAt.Before(since) {
			continue
		}
		s.finish(ctx, report, s.upsertObject(ctx, obj))
	}
	return s.done(report), nil
}

// upsertObject stats obj and registers it. A file that cannot be stat'ed is
// registered with what the listing knows and no size.
func (s *MediaSynchronizer) upsertObject(ctx context.Context, obj MediaObject) *Result {
	key := obj.Name
	stat, err := s.deps.Media.Stat(ctx, key)
	switch {
	case errors.Is(err, ErrMediaNotFound):
		return failed(key, err)
	case err != nil:
		s.recordLogger(ctx, ToBridge, key).Warn("Failed to stat media file", zap.Error(err))
		stat = &MediaObject{Name: key, ContentType: obj.ContentType}
	}

	candidate, err := bridge.NewMedia(key)
	if err != nil {
		return unmapped(key, err)
	}
	candidate.FileType = stat.ContentType
	candidate.FileSize = stat.Size

	row, created, err := upsert(ctx, s.deps.Scope, candidate, upsertSpec[*bridge.Media]{
		Find: mediaByFileName(key),
		Save: saveMedia,
	})
	if err != nil {
		return failed(key, err)
	}
	return succeeded(key, row.ID, created)
}

// SyncAllFromBridge publishes every bridge media file
func (s *MediaSynchronizer) SyncAllFromBridge(ctx context.Context) (*Report, error) {
	return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Media, error) {
		return repos.Media().FindAll(ctx)
	})
}

// SyncOneFromBridge publishes the bridge media file named key
func (s *MediaSynchronizer) SyncOneFromBridge(ctx context.Context, key string) (*Result, error) {
	m, miss, err := load(ctx, s.deps.Scope, key, mediaByFileName(key))
	if err != nil || miss != nil {
		return miss, err
	}
	return s.logged(ctx, FromBridge, s.downsertMedia(ctx, m)), nil
}

// SyncChangedFromBridge publishes media updated since the last run
func (s *MediaSynchronizer) SyncChangedFromBridge(ctx context.Context) (*Report, error) {
	return s.changed(ctx, FromBridge, func(since time.Time) (*Report, error) {
		return s.syncFromBridge(ctx, func(ctx context.Context, repos Repositories) ([]*bridge.Media, error) {
			return repos.Media().FindUpdatedSince(ctx, since)
		})
	})
}

func (s *MediaSynchronizer) syncFromBridge(ctx context.Context, find func(context.Context, Repositories) ([]*bridge.Media, error)) (*Report, error) {
	report := NewReport(KindMedia, FromBridge)
	rows, err := loadAll(ctx, s.deps.Scope, find)
	if err != nil {
		return s.abort(report, err), err
	}
	for _, m := range rows {
		s.finish(ctx, report, s.downsertMedia(ctx, m))
	}
	return s.done(report), nil
}

// downsertMedia writes the media entity and uploads the file content when
// the client supports uploads and a store is configured.
func (s *MediaSynchronizer) downsertMedia(ctx context.Context, m *bridge.Media) *Result {
	client, err := s.platform()
	if err != nil {
		return failed(m.FileName, err)
	}
	created, err := downsert(ctx, client, platform.EntityMedia, m.PlatformID, mapping.MediaPayload(m, s.deps.Options), "mediaFolderId")
	if err != nil {
		return failed(m.FileName, err)
	}

	uploader, ok := client.(platform.MediaUploader)
	if !ok || s.deps.Media == nil {
		return succeeded(m.FileName, m.ID, created)
	}
	if err := s.upload(ctx, uploader, m); err != nil {
		return failed(m.FileName, err)
	}
	return succeeded(m.FileName, m.ID, created)
}

func (s *MediaSynchronizer) upload(ctx context.Context, uploader platform.MediaUploader, m *bridge.Media) error {
	content, err := s.deps.Media.Open(ctx, m.FileName)
	if err != nil {
		return err
	}
	defer content.Close()
	if err := uploader.UploadMedia(ctx, m.PlatformID, m.FileName, m.FileType, content); err != nil {
		return fmt.Errorf("%w: upload media %s: %w", ErrCrossSystemWrite, m.FileName, err)
	}
	return nil
}
