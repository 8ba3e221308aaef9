package lock

import (
	"context"
	"sync"
	"time"

	"github.com/erp/bridge/internal/application/syncer"
)

// InMemoryRunLock implements RunLock with a map guarded by a mutex.
// It only serializes runs inside a single process.
type InMemoryRunLock struct {
	mu      sync.Mutex
	holders map[string]holder
	next    uint64
	now     func() time.Time
}

type holder struct {
	generation uint64
	expiresAt  time.Time
}

// NewInMemoryRunLock creates an in-memory run lock
func NewInMemoryRunLock() *InMemoryRunLock {
	return &InMemoryRunLock{
		holders: make(map[string]holder),
		now:     time.Now,
	}
}

// TryAcquire takes the lock unless a holder exists and has not expired.
// A non-positive ttl never expires.
func (l *InMemoryRunLock) TryAcquire(_ context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if h, exists := l.holders[name]; exists {
		if h.expiresAt.IsZero() || now.Before(h.expiresAt) {
			return nil, false, nil
		}
	}

	l.next++
	h := holder{generation: l.next}
	if ttl > 0 {
		h.expiresAt = now.Add(ttl)
	}
	l.holders[name] = h

	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.holders[name]; ok && current.generation == h.generation {
			delete(l.holders, name)
		}
		return nil
	}
	return release, true, nil
}

// Held reports whether name is currently locked
func (l *InMemoryRunLock) Held(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holders[name]
	return ok && (h.expiresAt.IsZero() || l.now().Before(h.expiresAt))
}

// Ensure InMemoryRunLock implements RunLock
var _ syncer.RunLock = (*InMemoryRunLock)(nil)
