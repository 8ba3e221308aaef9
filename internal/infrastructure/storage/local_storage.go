package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/erp/bridge/internal/application/syncer"
)

// Ensure LocalMediaStore implements MediaStore
var _ syncer.MediaStore = (*LocalMediaStore)(nil)

// LocalMediaStore reads media files from a directory tree. File names are
// slash-separated paths relative to the root.
type LocalMediaStore struct {
	root string
}

// NewLocalMediaStore creates a store over root, which must be a directory
func NewLocalMediaStore(root string) (*LocalMediaStore, error) {
	if root == "" {
		return nil, errors.New("storage local path is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open media directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media path %s is not a directory", root)
	}
	return &LocalMediaStore{root: root}, nil
}

// List walks the directory and returns every regular file, sorted by name
func (s *LocalMediaStore) List(ctx context.Context) ([]syncer.MediaObject, error) {
	var objects []syncer.MediaObject
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		size := info.Size()
		objects = append(objects, syncer.MediaObject{
			Name:       filepath.ToSlash(rel),
			Size:       &size,
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media directory: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects, nil
}

// Stat resolves size and sniffs the content type of a file
func (s *LocalMediaStore) Stat(ctx context.Context, name string) (*syncer.MediaObject, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat media file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", syncer.ErrMediaNotFound, name)
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()
	head, err := io.ReadAll(io.LimitReader(f, sniffLength))
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}

	size := info.Size()
	return &syncer.MediaObject{
		Name:        name,
		Size:        &size,
		ContentType: DetectContentType(name, head),
		ModifiedAt:  info.ModTime(),
	}, nil
}

// Open returns the file content. The caller closes the reader.
func (s *LocalMediaStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
		}
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	return f, nil
}

// path maps a media name to a file below root. Names escaping root are rejected.
func (s *LocalMediaStore) path(name string) (string, error) {
	if name == "" {
		return "", errors.New("media name is required")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
	}
	return filepath.Join(s.root, clean), nil
}
