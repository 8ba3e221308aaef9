package erp

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// compareValues orders two raw field values. Numbers (including numeric
// text) compare numerically, times chronologically, the rest as trimmed text.
// nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if ta, ok := a.(time.Time); ok {
		if tb, err := cast.ToTimeE(b); err == nil {
			return ta.Compare(tb)
		}
	}
	if _, ok := b.(time.Time); ok {
		return -compareValues(b, a)
	}

	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case bool:
		return 0, false
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, false
		}
		v = x
	}
	f, err := cast.ToFloat64E(v)
	return f, err == nil
}

func text(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return strings.TrimRight(cast.ToString(v), " ")
}

// compareKeys compares the index fields of row with key, field by field.
// Only the first len(key) fields take part.
func compareKeys(row Row, fields []string, key []any) int {
	for i, k := range key {
		if i >= len(fields) {
			break
		}
		if c := compareValues(row[fields[i]], k); c != 0 {
			return c
		}
	}
	return 0
}
