package synclog

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo returns the ids of the span active in ctx, or empty
// strings when there is none (unit tests, background jobs).
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// Counts is the change summary carried by an entry.
type Counts struct {
	Added, Updated, Removed int
}

// NewEntry builds an entry stamped with the trace info from ctx.
//
//	entry := synclog.NewEntry(ctx, runID, synclog.KindFull, synclog.StatusCompleted, 1, counts, nil)
//	_ = repo.Save(ctx, entry)
func NewEntry(
	ctx context.Context,
	runID string,
	kind Kind,
	status Status,
	attempt int,
	counts Counts,
	errs []string,
) *SyncLog {
	ti := ExtractTraceInfo(ctx)

	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}

	return &SyncLog{
		RunID:         runID,
		Kind:          kind,
		Status:        status,
		Attempt:       attempt,
		Added:         counts.Added,
		Updated:       counts.Updated,
		Removed:       counts.Removed,
		ErrorMessages: errJSON,
		TraceID:       ti.TraceID,
		SpanID:        ti.SpanID,
		UpdatedAt:     time.Now().UTC(),
	}
}

// Errors decodes ErrorMessages.
func (l *SyncLog) Errors() []string {
	var out []string
	_ = json.Unmarshal([]byte(l.ErrorMessages), &out)
	return out
}
