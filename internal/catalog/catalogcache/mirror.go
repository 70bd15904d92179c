package catalogcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
)

// Mirror writes every published catalog to the shared key/value store so a
// restarted process can serve the last good catalog before its first sync.
type Mirror struct {
	store cache.Cache
	key   string
	ttl   time.Duration
}

func NewMirror(store cache.Cache, ttl time.Duration) *Mirror {
	return &Mirror{
		store: store,
		key:   store.GenerateKey("snapshot", "current"),
		ttl:   ttl,
	}
}

func (m *Mirror) Save(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("mirror: encode snapshot: %w", err)
	}
	if err := m.store.Set(ctx, m.key, payload, m.ttl); err != nil {
		return fmt.Errorf("mirror: save snapshot: %w", err)
	}
	return nil
}

// Load returns false when no snapshot was mirrored yet.
func (m *Mirror) Load(ctx context.Context) (Snapshot, bool, error) {
	raw, err := m.store.Get(ctx, m.key)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("mirror: load snapshot: %w", err)
	}
	if raw == "" {
		return Snapshot{}, false, nil
	}
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("mirror: decode snapshot: %w", err)
	}
	return s, true, nil
}

// Warm restores the mirrored snapshot into c. A missing or unreadable mirror
// is logged and leaves c empty.
func Warm(ctx context.Context, c *Cache, m *Mirror) bool {
	s, ok, err := m.Load(ctx)
	if err != nil {
		slog.WarnContext(ctx, "catalog mirror unavailable, starting cold", "error", err)
		return false
	}
	if !ok {
		return false
	}
	c.Restore(s)
	slog.InfoContext(ctx, "catalog warmed from mirror",
		"products", len(s.Products),
		"last_updated", s.LastUpdated,
		"fresh", c.IsFresh(),
	)
	return true
}
