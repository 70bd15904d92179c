package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const memoryCleanupInterval = time.Minute

// Memory is an in-process Cache used when no Redis address is configured and
// in tests. Values are stored as strings so reads behave like Redis.
type Memory struct {
	items     *gocache.Cache
	namespace string
}

func NewMemory(namespace string) *Memory {
	return &Memory{
		items:     gocache.New(gocache.NoExpiration, memoryCleanupInterval),
		namespace: namespace,
	}
}

// Set stores value under key. A ttl of zero or less never expires, as in
// Redis.
func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprint(v)
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.items.Set(key, s, ttl)
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", nil
	}
	return v.(string), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *Memory) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", m.namespace, operation, key)
}
