package erp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDataset is a single-record dataset
type stubDataset struct {
	types  map[string]FieldType
	values map[string]any
}

func (s *stubDataset) Name() string { return "Stub" }
func (s *stubDataset) FieldType(field string) (FieldType, error) {
	t, ok := s.types[field]
	if !ok {
		return 0, ErrUnknownField
	}
	return t, nil
}
func (s *stubDataset) Value(field string) (any, error) {
	if _, ok := s.types[field]; !ok {
		return nil, ErrUnknownField
	}
	return s.values[field], nil
}
func (s *stubDataset) SetValue(field string, value any) error {
	s.values[field] = value
	return nil
}
func (s *stubDataset) FindKey(string, ...any) (bool, error) { return true, nil }
func (s *stubDataset) SetRange(string, []any, []any) error { return nil }
func (s *stubDataset) CancelRange() error { return nil }
func (s *stubDataset) First() error { return nil }
func (s *stubDataset) Next() error { return nil }
func (s *stubDataset) EOF() bool { return false }
func (s *stubDataset) Edit() error { return nil }
func (s *stubDataset) Append() error { return nil }
func (s *stubDataset) Post() error { return nil }
func (s *stubDataset) Cancel() error { return nil }
func (s *stubDataset) Close() error { return nil }

func newStub() *stubDataset {
	return &stubDataset{
		types: map[string]FieldType{
			"Name":   FieldString,
			"Price":  FieldFloat,
			"Stock":  FieldInteger,
			"Active": FieldBoolean,
			"Date":   FieldDate,
			"Memo":   FieldBlob,
		},
		values: map[string]any{},
	}
}

func TestRecord_Get(t *testing.T) {
	ds := newStub()
	ds.values["Name"] = "Schraube   "
	ds.values["Price"] = "19,99"
	ds.values["Stock"] = "10"
	ds.values["Active"] = "J"
	ds.values["Date"] = "24.12.2023"
	ds.values["Memo"] = []byte{'G', 'r', 0xfc, 0xdf, 'e', '\r', '\n', 'x'}

	r := NewRecord(ds)
	assert.Equal(t, "Schraube", r.String("Name"))
	assert.InDelta(t, 19.99, r.Float("Price"), 0.0001)
	assert.True(t, decimal.RequireFromString("19.99").Equal(r.Decimal("Price")))
	assert.Equal(t, 10, r.Int("Stock"))
	assert.True(t, r.Bool("Active"))
	assert.True(t, time.Date(2023, 12, 24, 0, 0, 0, 0, time.Local).Equal(r.Time("Date")))
	assert.Equal(t, "Grüße\nx", r.String("Memo"))
	assert.NoError(t, r.Err())
}

func TestRecord_ErrIsSticky(t *testing.T) {
	ds := newStub()
	ds.values["Stock"] = "many"

	r := NewRecord(ds)
	assert.Equal(t, 0, r.Int("Stock"))
	assert.Equal(t, "", r.String("Missing"))
	require.Error(t, r.Err())
	assert.ErrorIs(t, r.Err(), ErrTypeConversion)
}

func TestRecord_Set(t *testing.T) {
	ds := newStub()
	r := NewRecord(ds)

	require.NoError(t, r.Set("Stock", "7"))
	assert.Equal(t, int64(7), ds.values["Stock"])

	require.NoError(t, r.Set("Memo", "Grüße\nx"))
	assert.Equal(t, []byte{'G', 'r', 0xfc, 0xdf, 'e', '\r', '\n', 'x'}, ds.values["Memo"])

	require.NoError(t, r.SetAll([]FieldValue{{"Active", true}, {"Price", 1.5}}))
	assert.Equal(t, true, ds.values["Active"])
	assert.Equal(t, 1.5, ds.values["Price"])

	assert.ErrorIs(t, r.Set("Missing", 1), ErrUnknownField)
	assert.ErrorIs(t, r.Set("Stock", "x"), ErrTypeConversion)
}

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("Integer")
	require.NoError(t, err)
	assert.Equal(t, FieldInteger, ft)
	assert.Equal(t, "integer", ft.String())

	_, err = ParseFieldType("currency")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
