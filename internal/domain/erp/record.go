package erp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Record reads and writes the current record of a dataset through the cast
// table. Read errors are collected so mappers can read many fields and check
// Err once.
type Record struct {
	ds  Dataset
	err error
}

// NewRecord wraps a dataset positioned on a record
func NewRecord(ds Dataset) *Record {
	return &Record{ds: ds}
}

// Dataset returns the underlying dataset
func (r *Record) Dataset() Dataset {
	return r.ds
}

// Err returns the first read error
func (r *Record) Err() error {
	return r.err
}

// Get returns the value of field converted according to its ERP type
func (r *Record) Get(field string) (any, error) {
	ft, err := r.ds.FieldType(field)
	if err != nil {
		return nil, err
	}
	raw, err := r.ds.Value(field)
	if err != nil {
		return nil, err
	}
	v, err := Convert(ft, raw)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", r.ds.Name(), field, err)
	}
	return v, nil
}

func (r *Record) get(field string) any {
	if r.err != nil {
		return nil
	}
	v, err := r.Get(field)
	if err != nil {
		r.err = err
		return nil
	}
	return v
}

// String reads a field as text. Blob fields are decoded.
func (r *Record) String(field string) string {
	v, err := Convert(FieldString, r.get(field))
	if err != nil {
		r.fail(field, err)
		return ""
	}
	return v.(string)
}

// Int reads a field as integer
func (r *Record) Int(field string) int {
	v, err := Convert(FieldInteger, r.get(field))
	if err != nil {
		r.fail(field, err)
		return 0
	}
	return int(v.(int64))
}

// Float reads a field as float
func (r *Record) Float(field string) float64 {
	v, err := Convert(FieldFloat, r.get(field))
	if err != nil {
		r.fail(field, err)
		return 0
	}
	return v.(float64)
}

// Decimal reads a numeric field as decimal
func (r *Record) Decimal(field string) decimal.Decimal {
	return decimal.NewFromFloat(r.Float(field))
}

// Bool reads a field as boolean
func (r *Record) Bool(field string) bool {
	v, err := Convert(FieldBoolean, r.get(field))
	if err != nil {
		r.fail(field, err)
		return false
	}
	return v.(bool)
}

// Time reads a date field. Empty dates are the zero time.
func (r *Record) Time(field string) time.Time {
	v, err := Convert(FieldDate, r.get(field))
	if err != nil {
		r.fail(field, err)
		return time.Time{}
	}
	return v.(time.Time)
}

// Set converts value to the field's ERP type and writes it. Text written to
// blob fields is encoded for the ERP.
func (r *Record) Set(field string, value any) error {
	ft, err := r.ds.FieldType(field)
	if err != nil {
		return err
	}
	var out any
	if ft == FieldBlob {
		s, err := Convert(FieldString, value)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", r.ds.Name(), field, err)
		}
		if out, err = EncodeText(s.(string)); err != nil {
			return fmt.Errorf("%s.%s: %w", r.ds.Name(), field, err)
		}
	} else if out, err = Convert(ft, value); err != nil {
		return fmt.Errorf("%s.%s: %w", r.ds.Name(), field, err)
	}
	return r.ds.SetValue(field, out)
}

// SetAll writes fields in order and stops at the first error
func (r *Record) SetAll(values []FieldValue) error {
	for _, fv := range values {
		if err := r.Set(fv.Field, fv.Value); err != nil {
			return err
		}
	}
	return nil
}

// FieldValue is a field name with the value to write
type FieldValue struct {
	Field string
	Value any
}

func (r *Record) fail(field string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s: %w", r.ds.Name(), field, err)
	}
}
