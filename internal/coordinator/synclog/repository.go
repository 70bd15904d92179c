package synclog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("sync run not found")

// Repository persists sync log entries. The table is append-only.
type Repository interface {
	Save(ctx context.Context, entry *SyncLog) error
	// GetLatest returns the most recent entry of a run or ErrNotFound.
	GetLatest(ctx context.Context, runID string) (*SyncLog, error)
}
