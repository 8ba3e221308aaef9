package syncer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/erp/bridge/internal/domain/platform"
)

// fakePlatform keeps platform entities in memory. Search filters are not
// evaluated; ids and paging are.
type fakePlatform struct {
	mu       sync.Mutex
	records  map[platform.Entity]map[string]platform.Record
	order    map[platform.Entity][]string
	calls    []string
	upserts  map[platform.Entity][][]platform.Record
	uploads  map[string]string
	failures map[string]error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		records:  make(map[platform.Entity]map[string]platform.Record),
		order:    make(map[platform.Entity][]string),
		upserts:  make(map[platform.Entity][][]platform.Record),
		uploads:  make(map[string]string),
		failures: make(map[string]error),
	}
}

var (
	_ platform.Client        = (*fakePlatform)(nil)
	_ platform.MediaUploader = (*fakePlatform)(nil)
)

// seed stores rec as if it had been created on the platform
func (f *fakePlatform) seed(entity platform.Entity, rec map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store(entity, normalize(rec))
}

// failOn makes the next calls of op ("create", "update", ...) on entity fail
func (f *fakePlatform) failOn(op string, entity platform.Entity, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+string(entity)] = err
}

func (f *fakePlatform) get(entity platform.Entity, id string) (platform.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[entity][id]
	return rec, ok
}

// callsOf returns the recorded calls starting with prefix, e.g. "create category"
func (f *fakePlatform) callsOf(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePlatform) Search(_ context.Context, entity platform.Entity, c *platform.Criteria) (*platform.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("search %s", entity))
	if err := f.failures["search:"+string(entity)]; err != nil {
		return nil, err
	}

	var hits []platform.Record
	if len(c.IDs) > 0 {
		for _, id := range c.IDs {
			if rec, ok := f.records[entity][id]; ok {
				hits = append(hits, rec)
			}
		}
	} else {
		for _, id := range f.order[entity] {
			hits = append(hits, f.records[entity][id])
		}
	}

	total := len(hits)
	if c.Limit > 0 {
		start := (max(c.Page, 1) - 1) * c.Limit
		start = min(start, total)
		end := min(start+c.Limit, total)
		hits = hits[start:end]
	}
	return &platform.SearchResult{Total: total, Data: hits}, nil
}

func (f *fakePlatform) Get(_ context.Context, entity platform.Entity, id string) (platform.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("get %s %s", entity, id))
	rec, ok := f.records[entity][id]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return rec, nil
}

func (f *fakePlatform) Create(_ context.Context, entity platform.Entity, payload platform.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := normalize(payload)
	f.calls = append(f.calls, fmt.Sprintf("create %s %s", entity, rec.ID()))
	if err := f.failures["create:"+string(entity)]; err != nil {
		return err
	}
	if _, exists := f.records[entity][rec.ID()]; exists {
		return fmt.Errorf("%w: duplicate %s %s", platform.ErrRequestFailed, entity, rec.ID())
	}
	f.store(entity, rec)
	return nil
}

func (f *fakePlatform) Update(_ context.Context, entity platform.Entity, id string, payload platform.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("update %s %s", entity, id))
	if err := f.failures["update:"+string(entity)]; err != nil {
		return err
	}
	existing, ok := f.records[entity][id]
	if !ok {
		return platform.ErrNotFound
	}
	for k, v := range normalize(payload) {
		existing[k] = v
	}
	return nil
}

func (f *fakePlatform) Delete(_ context.Context, entity platform.Entity, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("delete %s %s", entity, id))
	delete(f.records[entity], id)
	return nil
}

func (f *fakePlatform) Upsert(_ context.Context, entity platform.Entity, payloads []platform.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("upsert %s %d", entity, len(payloads)))
	if err := f.failures["upsert:"+string(entity)]; err != nil {
		return err
	}
	batch := make([]platform.Record, 0, len(payloads))
	for _, p := range payloads {
		rec := normalize(p)
		batch = append(batch, rec)
		if existing, ok := f.records[entity][rec.ID()]; ok {
			for k, v := range rec {
				existing[k] = v
			}
			continue
		}
		f.store(entity, rec)
	}
	f.upserts[entity] = append(f.upserts[entity], batch)
	return nil
}

func (f *fakePlatform) UploadMedia(_ context.Context, mediaID, _, _ string, content io.Reader) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("upload media %s", mediaID))
	if err := f.failures["upload:"+string(platform.EntityMedia)]; err != nil {
		return err
	}
	f.uploads[mediaID] = string(data)
	return nil
}

func (f *fakePlatform) store(entity platform.Entity, rec platform.Record) {
	if f.records[entity] == nil {
		f.records[entity] = make(map[string]platform.Record)
	}
	if _, exists := f.records[entity][rec.ID()]; !exists {
		f.order[entity] = append(f.order[entity], rec.ID())
	}
	f.records[entity][rec.ID()] = rec
}

// normalize round-trips v through JSON so records look like API responses
func normalize(v any) platform.Record {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var rec platform.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		panic(err)
	}
	return rec
}

// fakeMediaStore serves media files from memory
type fakeMediaStore struct {
	files map[string]fakeFile
}

type fakeFile struct {
	content     string
	contentType string
	modifiedAt  time.Time
}

var _ syncer.MediaStore = (*fakeMediaStore)(nil)

func (s *fakeMediaStore) List(context.Context) ([]syncer.MediaObject, error) {
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	objects := make([]syncer.MediaObject, 0, len(names))
	for _, name := range names {
		objects = append(objects, syncer.MediaObject{Name: name, ModifiedAt: s.files[name].modifiedAt})
	}
	return objects, nil
}

func (s *fakeMediaStore) Stat(_ context.Context, name string) (*syncer.MediaObject, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
	}
	size := int64(len(f.content))
	return &syncer.MediaObject{Name: name, Size: &size, ContentType: f.contentType, ModifiedAt: f.modifiedAt}, nil
}

func (s *fakeMediaStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}
