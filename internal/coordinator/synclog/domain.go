// Package synclog defines the audit trail of catalog synchronization runs.
//
// Every state transition of a run is appended as one entry, so the log shows
// how many attempts a run needed, what it changed and why it failed. Entries
// carry the trace and span ids of the active OpenTelemetry span so a row can
// be matched with its trace.
package synclog

import "time"

// Status is the lifecycle state of a sync run at the time of the entry.
type Status string

const (
	StatusStarted       Status = "STARTED"
	StatusAttemptFailed Status = "ATTEMPT_FAILED"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusRejected      Status = "REJECTED"
)

// Kind tells full catalog runs from single product runs.
type Kind string

const (
	KindFull    Kind = "FULL"
	KindProduct Kind = "PRODUCT"
)

// SyncLog is a single row in the sync_logs table.
type SyncLog struct {
	RunID string
	Kind  Kind

	Status Status

	// Attempt is 1-based; 0 for entries written before the first attempt.
	Attempt int

	Added   int
	Updated int
	Removed int

	// ErrorMessages is a JSON array of the errors known at this point.
	ErrorMessages string

	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
