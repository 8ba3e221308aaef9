// Package erp describes the field-level automation interface of the ERP.
//
// A Dataset is a cursor over one ERP table. Values are read and written by field
// name; the ERP reports a FieldType per field and Record converts values through
// a cast table keyed by that type.
package erp

import (
	"context"
	"errors"
)

// ERP errors
var (
	ErrRecordNotFound  = errors.New("erp: record not found")
	ErrUnknownTable    = errors.New("erp: unknown table")
	ErrUnknownField    = errors.New("erp: unknown field")
	ErrUnknownIndex    = errors.New("erp: unknown index")
	ErrNotEditing      = errors.New("erp: dataset is not in edit or append mode")
	ErrAlreadyEditing  = errors.New("erp: dataset is already in edit or append mode")
	ErrEOF             = errors.New("erp: cursor is past the last record")
	ErrNoTransaction   = errors.New("erp: no transaction in progress")
	ErrInTransaction   = errors.New("erp: transaction already in progress")
	ErrNotConnected    = errors.New("erp: not connected")
	ErrTypeConversion  = errors.New("erp: value cannot be converted to field type")
	ErrUnsupportedType = errors.New("erp: unsupported field type")
)

// Dataset is a cursor over an ERP table
type Dataset interface {
	// Name returns the table name
	Name() string
	// FieldType reports the ERP type of a field
	FieldType(field string) (FieldType, error)
	// Value returns the raw value of a field of the current record
	Value(field string) (any, error)
	// SetValue sets a field of the record being edited or appended
	SetValue(field string, value any) error

	// FindKey positions the cursor on the first record whose index fields equal
	// key. It reports whether a record was found.
	FindKey(index string, key ...any) (bool, error)
	// SetRange restricts the cursor to records whose index fields lie between
	// from and to (inclusive). A nil bound is open.
	SetRange(index string, from, to []any) error
	// CancelRange removes a range set by SetRange
	CancelRange() error
	First() error
	Next() error
	EOF() bool

	Edit() error
	Append() error
	Post() error
	Cancel() error

	Close() error
}

// Connection is an open session with the ERP
type Connection interface {
	Dataset(ctx context.Context, table string) (Dataset, error)
	StartTransaction(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close() error
}
