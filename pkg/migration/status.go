package migration

import (
	"encoding/json"
	"sync/atomic"
)

// Status is the lifecycle state of the migration service.
type Status int32

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusInProgress:
		return "in_progress"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// statusFlag is the single-flight guard. Only a compare-and-swap from an
// idle state into StatusInProgress admits a run; a failed run returns to
// StatusFailed so it can be retried.
type statusFlag struct {
	v atomic.Int32
}

func (f *statusFlag) get() Status { return Status(f.v.Load()) }

func (f *statusFlag) set(s Status) { f.v.Store(int32(s)) }

// tryStart transitions into StatusInProgress from NotStarted or Failed.
// Returns false when a run is already in flight or has succeeded.
func (f *statusFlag) tryStart() bool {
	return f.v.CompareAndSwap(int32(StatusNotStarted), int32(StatusInProgress)) ||
		f.v.CompareAndSwap(int32(StatusFailed), int32(StatusInProgress))
}
