package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Record is an entity returned by the platform. Fields are addressed with
// JMESPath expressions, e.g. "translated.name" or "lineItems[0].id".
type Record map[string]any

// ID returns the entity id
func (r Record) ID() string {
	return r.String("id")
}

// Get evaluates a JMESPath expression against the record
func (r Record) Get(path string) (any, error) {
	return defaultEvaluator.Evaluate(path, map[string]any(r))
}

// Value returns the result of path, or nil when it cannot be evaluated
func (r Record) Value(path string) any {
	v, err := r.Get(path)
	if err != nil {
		return nil
	}
	return v
}

// String returns path as text. Missing values are empty.
func (r Record) String(path string) string {
	v := r.Value(path)
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

// Int returns path as integer
func (r Record) Int(path string) int {
	return cast.ToInt(r.Value(path))
}

// Decimal returns path as decimal
func (r Record) Decimal(path string) decimal.Decimal {
	switch v := r.Value(path).(type) {
	case nil:
		return decimal.Zero
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.NewFromFloat(cast.ToFloat64(v))
	}
}

// Bool returns path as boolean
func (r Record) Bool(path string) bool {
	return cast.ToBool(r.Value(path))
}

// Time returns path as time. Unparseable values are the zero time.
func (r Record) Time(path string) time.Time {
	v := r.Value(path)
	if v == nil {
		return time.Time{}
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Records returns path as a list of records
func (r Record) Records(path string) []Record {
	items, ok := r.Value(path).([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// Record returns path as a nested record
func (r Record) Record(path string) (Record, bool) {
	m, ok := r.Value(path).(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Payload returns a copy of the record as a writable payload
func (r Record) Payload() Payload {
	p := make(Payload, len(r))
	for k, v := range r {
		p[k] = v
	}
	return p
}

var defaultEvaluator = newEvaluator()

// evaluator caches compiled JMESPath expressions
type evaluator struct {
	cache map[string]*jmespath.JMESPath
	mu    sync.RWMutex
}

func newEvaluator() *evaluator {
	return &evaluator{cache: make(map[string]*jmespath.JMESPath)}
}

func (e *evaluator) Evaluate(expression string, data any) (any, error) {
	compiled, err := e.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	result, err := compiled.Search(data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

func (e *evaluator) getOrCompile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	if compiled, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expression] = compiled
	e.mu.Unlock()
	return compiled, nil
}
