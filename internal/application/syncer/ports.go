package syncer

import (
	"context"
	"io"
	"time"

	"github.com/erp/bridge/internal/domain/erp"
)

// ERPSession serializes access to the process-wide ERP connection
type ERPSession interface {
	// Do runs fn with the connection, connecting on first use
	Do(ctx context.Context, fn func(conn erp.Connection) error) error
	// Transaction runs fn inside an ERP transaction. An error rolls back.
	Transaction(ctx context.Context, fn func(conn erp.Connection) error) error
}

// MediaObject describes a media file in the store
type MediaObject struct {
	Name        string
	Size        *int64
	ContentType string
	ModifiedAt  time.Time
}

// MediaStore is the source of media files. Unknown names return ErrMediaNotFound.
type MediaStore interface {
	// List returns every file in the store
	List(ctx context.Context) ([]MediaObject, error)
	// Stat resolves size and content type of a file
	Stat(ctx context.Context, name string) (*MediaObject, error)
	// Open returns the content of a file
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// RunLock guards a run so that scheduled and triggered runs of the same kind
// and direction never overlap.
type RunLock interface {
	// TryAcquire takes the lock for name. acquired is false when another run
	// holds it.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
