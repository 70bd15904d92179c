package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
)

func TestRepository_SaveAndGetLatest(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	started := synclog.NewEntry(ctx, "run-1", synclog.KindFull, synclog.StatusStarted, 0, synclog.Counts{}, nil)
	require.NoError(t, repo.Save(ctx, started))

	done := synclog.NewEntry(ctx, "run-1", synclog.KindFull, synclog.StatusCompleted, 2,
		synclog.Counts{Added: 3, Updated: 1, Removed: 2}, []string{"transform product \"x\": product id has no digits"})
	done.UpdatedAt = started.UpdatedAt.Add(time.Second)
	require.NoError(t, repo.Save(ctx, done))

	got, err := repo.GetLatest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, synclog.StatusCompleted, got.Status)
	assert.Equal(t, synclog.KindFull, got.Kind)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, 3, got.Added)
	assert.Equal(t, 1, got.Updated)
	assert.Equal(t, 2, got.Removed)
	assert.Len(t, got.Errors(), 1)
	assert.True(t, got.UpdatedAt.Equal(done.UpdatedAt))
}

func TestRepository_UnknownRun(t *testing.T) {
	repo, err := Open(filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	_, err = repo.GetLatest(context.Background(), "missing")
	assert.ErrorIs(t, err, synclog.ErrNotFound)
}
