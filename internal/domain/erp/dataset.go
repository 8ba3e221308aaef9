package erp

import (
	"context"
	"errors"
	"strings"
)

// IndexFields splits an index name into its field names
func IndexFields(index string) []string {
	parts := strings.Split(index, ListSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ForEach calls fn for every record from the cursor's first position until EOF
func ForEach(ds Dataset, fn func(*Record) error) error {
	if err := ds.First(); err != nil {
		return err
	}
	for !ds.EOF() {
		if err := fn(NewRecord(ds)); err != nil {
			return err
		}
		if err := ds.Next(); err != nil {
			return err
		}
	}
	return nil
}

// WithDataset opens table on conn, runs fn and closes the dataset
func WithDataset(ctx context.Context, conn Connection, table string, fn func(Dataset) error) (err error) {
	ds, err := conn.Dataset(ctx, table)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, ds.Close())
	}()
	return fn(ds)
}

// Locate positions ds on the record with the given key and wraps it.
// A missing record is ErrRecordNotFound.
func Locate(ds Dataset, index string, key ...any) (*Record, error) {
	found, err := ds.FindKey(index, key...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRecordNotFound
	}
	return NewRecord(ds), nil
}
