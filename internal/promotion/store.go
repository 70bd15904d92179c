package promotion

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("promotion not found")

// Store looks promotions up by id.
type Store interface {
	Get(ctx context.Context, id string) (Promotion, error)
}

// MemoryStore is a Store kept in process, usually seeded from configuration.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Promotion
}

func NewMemoryStore(promos ...Promotion) *MemoryStore {
	s := &MemoryStore{items: make(map[string]Promotion, len(promos))}
	for _, p := range promos {
		s.items[p.ID] = p
	}
	return s
}

// NewMemoryStoreFromRecords converts and stores every record. The first
// invalid record aborts.
func NewMemoryStoreFromRecords(records []Record) (*MemoryStore, error) {
	promos := make([]Promotion, 0, len(records))
	for _, r := range records {
		p, err := r.Promotion()
		if err != nil {
			return nil, err
		}
		promos = append(promos, p)
	}
	return NewMemoryStore(promos...), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return Promotion{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Put(p Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p
}
