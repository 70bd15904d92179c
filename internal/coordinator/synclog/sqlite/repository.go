// Package sqlite provides a SQLite-backed implementation of synclog.Repository.
//
// WAL mode is enabled on Open so the HTTP status endpoint can read while a
// sync run is writing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"

	// Pure-Go driver, no CGO needed.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,

    -- One run has several rows, one per transition.
    run_id          TEXT        NOT NULL,
    kind            TEXT        NOT NULL,
    status          TEXT        NOT NULL,
    attempt         INTEGER     NOT NULL DEFAULT 0,

    added           INTEGER     NOT NULL DEFAULT 0,
    updated         INTEGER     NOT NULL DEFAULT 0,
    removed         INTEGER     NOT NULL DEFAULT 0,

    -- JSON array of error strings.
    error_messages  TEXT        NOT NULL DEFAULT '[]',

    trace_id        TEXT        NOT NULL DEFAULT '',
    span_id         TEXT        NOT NULL DEFAULT '',

    updated_at      TEXT        NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_logs_run_id ON sync_logs(run_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_sync_logs_trace_id ON sync_logs(trace_id);
`

// Repository is the SQLite implementation of synclog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/sync.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// Single writer connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends an entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *synclog.SyncLog) error {
	const q = `
		INSERT INTO sync_logs
			(run_id, kind, status, attempt, added, updated, removed, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.RunID,
		string(entry.Kind),
		string(entry.Status),
		entry.Attempt,
		entry.Added,
		entry.Updated,
		entry.Removed,
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save sync log for %q: %w", entry.RunID, err)
	}
	return nil
}

// GetLatest returns the most recent entry for a run.
func (r *Repository) GetLatest(ctx context.Context, runID string) (*synclog.SyncLog, error) {
	const q = `
		SELECT run_id, kind, status, attempt, added, updated, removed,
		       error_messages, trace_id, span_id, updated_at
		FROM   sync_logs
		WHERE  run_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	var (
		entry     synclog.SyncLog
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, q, runID).Scan(
		&entry.RunID,
		&entry.Kind,
		&entry.Status,
		&entry.Attempt,
		&entry.Added,
		&entry.Updated,
		&entry.Removed,
		&entry.ErrorMessages,
		&entry.TraceID,
		&entry.SpanID,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: run %q: %w", runID, synclog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get latest for %q: %w", runID, err)
	}

	entry.UpdatedAt, err = parseRFC3339(updatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}
