package adminstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

// Memory keeps products in process. It is used when no database is
// configured and in tests.
type Memory struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.AdminProduct
	now   func() time.Time
}

func NewMemory(seed ...domain.AdminProduct) *Memory {
	m := &Memory{items: make(map[string]domain.AdminProduct), now: time.Now}
	for _, p := range seed {
		m.put(p)
	}
	return m
}

func (m *Memory) List(ctx context.Context) ([]domain.AdminProduct, error) {
	return m.filter(func(domain.AdminProduct) bool { return true }), nil
}

func (m *Memory) ListActive(ctx context.Context) ([]domain.AdminProduct, error) {
	return m.filter(func(p domain.AdminProduct) bool { return p.IsActive }), nil
}

func (m *Memory) Get(ctx context.Context, id string) (domain.AdminProduct, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[id]
	if !ok {
		return domain.AdminProduct{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) Upsert(ctx context.Context, p domain.AdminProduct) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	old, exists := m.items[p.ID]
	if exists {
		p.CreatedAt = old.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.put(p)
	return !exists, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return nil
}

// put must be called with the write lock held or before m is shared.
func (m *Memory) put(p domain.AdminProduct) {
	if _, ok := m.items[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.items[p.ID] = p
}

func (m *Memory) filter(keep func(domain.AdminProduct) bool) []domain.AdminProduct {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.AdminProduct, 0, len(m.order))
	for _, id := range m.order {
		if p := m.items[id]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}
