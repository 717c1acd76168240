package sync

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
)

// Run outcomes reported to metrics.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeAborted = "aborted"
)

var (
	// ErrSourceUnavailable means the source store could not be reached, either by the
	// pre-flight check or because the source circuit breaker is open.
	ErrSourceUnavailable = errors.New("source store unavailable")
	// ErrPartialSync means at least one table failed while others may have succeeded.
	ErrPartialSync = errors.New("partial sync failure")
	// ErrSyncInProgress is returned to a caller that tries to start a second sync.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// TableResult is the outcome of replicating one table within a run.
type TableResult struct {
	Table    string        `json:"table"`
	Rows     int64         `json:"rows"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes one SyncAll run. Since is nil for a full snapshot.
type Report struct {
	RunID      string        `json:"run_id"`
	Since      *time.Time    `json:"since,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Tables     []TableResult `json:"tables"`
}

// Succeeded reports whether the named table was replaced in this run.
func (r *Report) Succeeded(table string) bool {
	if r == nil {
		return false
	}
	for _, t := range r.Tables {
		if t.Table == table {
			return t.Error == ""
		}
	}
	return false
}

// AnySucceeded reports whether at least one table was replaced.
func (r *Report) AnySucceeded() bool {
	if r == nil {
		return false
	}
	for _, t := range r.Tables {
		if t.Error == "" {
			return true
		}
	}
	return false
}

func (r *Report) String() string {
	if r == nil {
		return "<no report>"
	}
	return fmt.Sprintf("run %s: %d tables in %s", r.RunID, len(r.Tables), r.FinishedAt.Sub(r.StartedAt))
}
