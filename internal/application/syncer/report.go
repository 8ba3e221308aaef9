package syncer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a batch run
type Status string

// Batch statuses
const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// Result is the outcome of syncing a single record
type Result struct {
	Key     string    `json:"key"`
	ID      uuid.UUID `json:"id,omitempty"`
	Success bool      `json:"success"`
	Skipped bool      `json:"skipped,omitempty"`
	Created bool      `json:"created,omitempty"`
	Message string    `json:"message"`
}

func succeeded(key string, id uuid.UUID, created bool) *Result {
	verb := "updated"
	if created {
		verb = "created"
	}
	return &Result{
		Key:     key,
		ID:      id,
		Success: true,
		Created: created,
		Message: fmt.Sprintf("%s %s", key, verb),
	}
}

func failed(key string, err error) *Result {
	return &Result{Key: key, Message: fmt.Sprintf("%s failed: %v", key, err)}
}

func skipped(key string, reason string) *Result {
	return &Result{Key: key, Skipped: true, Message: fmt.Sprintf("%s skipped: %s", key, reason)}
}

// unmapped is the result of a source record that could not be mapped
func unmapped(key string, err error) *Result {
	return skipped(key, fmt.Errorf("%w: %w", ErrMappingFailed, err).Error())
}

// Report summarizes a batch run
type Report struct {
	Kind       EntityKind `json:"kind"`
	Direction  Direction  `json:"direction"`
	Status     Status     `json:"status"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Skipped    int        `json:"skipped"`
	FailedKeys []string   `json:"failed_keys,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Message    string     `json:"message,omitempty"`
}

// NewReport starts a report for kind and direction
func NewReport(kind EntityKind, direction Direction) *Report {
	return &Report{Kind: kind, Direction: direction, StartedAt: time.Now()}
}

// SkippedReport is the report of an operation a kind does not support
func SkippedReport(kind EntityKind, direction Direction) *Report {
	r := NewReport(kind, direction)
	r.Message = fmt.Sprintf("%s does not support syncing %s the bridge", kind, direction)
	return r.Finish()
}

// Add counts a record result
func (r *Report) Add(res *Result) {
	r.Total++
	switch {
	case res.Success:
		r.Succeeded++
	case res.Skipped:
		r.Skipped++
	default:
		r.Failed++
		r.FailedKeys = append(r.FailedKeys, res.Key)
	}
}

// Finish derives the status from the counters
func (r *Report) Finish() *Report {
	r.FinishedAt = time.Now()
	switch {
	case r.Total == 0 || r.Skipped == r.Total:
		r.Status = StatusSkipped
		if r.Total == 0 && r.Message == "" {
			r.Message = "nothing to sync"
		}
	case r.Failed == 0:
		r.Status = StatusSuccess
	case r.Succeeded == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
	return r
}

// Fail marks the whole run as failed, e.g. when the source cannot be read
func (r *Report) Fail(err error) *Report {
	r.Finish()
	r.Status = StatusFailed
	r.Message = err.Error()
	return r
}
