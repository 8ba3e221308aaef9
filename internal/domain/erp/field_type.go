package erp

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// FieldType is the type the ERP reports for a field
type FieldType int

// Field types
const (
	FieldString FieldType = iota
	FieldFloat
	FieldInteger
	FieldBoolean
	FieldDate
	FieldBlob
)

var fieldTypeNames = map[FieldType]string{
	FieldString:  "string",
	FieldFloat:   "float",
	FieldInteger: "integer",
	FieldBoolean: "boolean",
	FieldDate:    "date",
	FieldBlob:    "blob",
}

// String returns the type name
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// ParseFieldType parses a type name
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// caster converts a value into the Go representation of a field type
type caster func(v any) (any, error)

// dateLayouts are the textual date formats the ERP emits
var dateLayouts = []string{"02.01.2006 15:04:05", "02.01.2006", time.RFC3339, "2006-01-02"}

var castTable = map[FieldType]caster{
	FieldString: func(v any) (any, error) {
		if v == nil {
			return "", nil
		}
		s, err := cast.ToStringE(v)
		return strings.TrimRight(s, " "), err
	},
	FieldFloat: func(v any) (any, error) {
		if s, ok := v.(string); ok {
			v = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
			if v == "" {
				return float64(0), nil
			}
		}
		return cast.ToFloat64E(v)
	},
	FieldInteger: func(v any) (any, error) {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return int64(0), nil
		}
		return cast.ToInt64E(v)
	},
	FieldBoolean: func(v any) (any, error) {
		if s, ok := v.(string); ok {
			switch strings.ToUpper(strings.TrimSpace(s)) {
			case "J", "Y", "X":
				return true, nil
			case "N", "":
				return false, nil
			}
		}
		return cast.ToBoolE(v)
	},
	FieldDate: func(v any) (any, error) {
		if v == nil {
			return time.Time{}, nil
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return time.Time{}, nil
			}
			for _, layout := range dateLayouts {
				if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
					return t, nil
				}
			}
		}
		return cast.ToTimeE(v)
	},
	FieldBlob: func(v any) (any, error) {
		switch b := v.(type) {
		case nil:
			return "", nil
		case []byte:
			return DecodeText(b)
		default:
			return cast.ToStringE(v)
		}
	},
}

// Convert casts v to the Go representation of t
func Convert(t FieldType, v any) (any, error) {
	c, ok := castTable[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	out, err := c(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v as %s: %v", ErrTypeConversion, v, t, err)
	}
	return out, nil
}

// DecodeText decodes Windows-1252 text stored in ERP memo fields
func DecodeText(b []byte) (string, error) {
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), b)
	if err != nil {
		return "", err
	}
	return string(bytes.ReplaceAll(out, []byte("\r\n"), []byte("\n"))), nil
}

// EncodeText encodes text for ERP memo fields
func EncodeText(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	out, _, err := transform.Bytes(charmap.Windows1252.NewEncoder(), []byte(s))
	return out, err
}
