// Package catalogcache keeps the shop catalog as an immutable snapshot that
// is swapped atomically. Readers load the current snapshot without locking
// and therefore see either the old catalog or the new one, never a mix.
package catalogcache

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

// DefaultTTL is how long a snapshot is served before a resync is required.
const DefaultTTL = 5 * time.Minute

// Snapshot is one published version of the catalog. Products must not be
// modified by readers.
type Snapshot struct {
	Products    []domain.Cake `json:"products"`
	LastUpdated time.Time     `json:"lastUpdated"`
	Stale       bool          `json:"stale"`
}

// Cache is the single owner of the catalog snapshot. Writes are serialized;
// reads are lock free.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		ttl:  DefaultTTL,
		now:  time.Now,
		subs: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(&Snapshot{})
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Now reads the cache clock.
func (c *Cache) Now() time.Time { return c.now() }

// Snapshot returns the snapshot currently served.
func (c *Cache) Snapshot() Snapshot {
	return *c.current.Load()
}

// IsFresh reports whether the snapshot was populated less than TTL ago and
// has not been invalidated since.
func (c *Cache) IsFresh() bool {
	s := c.current.Load()
	if s.Stale || s.LastUpdated.IsZero() {
		return false
	}
	return c.now().Sub(s.LastUpdated) < c.ttl
}

// Populated reports whether any snapshot was ever published.
func (c *Cache) Populated() bool {
	return !c.current.Load().LastUpdated.IsZero()
}

func (c *Cache) Count() int {
	return len(c.current.Load().Products)
}

// TotalPages is ceil(count / pageSize).
func (c *Cache) TotalPages(pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	n := c.Count()
	return (n + pageSize - 1) / pageSize
}

// GetPage returns the 1-based page of the current snapshot. Pages outside the
// catalog yield an empty slice.
func (c *Cache) GetPage(page, pageSize int) []domain.Cake {
	products := c.current.Load().Products
	if page < 1 || pageSize < 1 {
		return []domain.Cake{}
	}
	start := (page - 1) * pageSize
	if start >= len(products) {
		return []domain.Cake{}
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	out := make([]domain.Cake, end-start)
	copy(out, products[start:end])
	return out
}

// Get looks a cake up by its catalog id.
func (c *Cache) Get(id int64) (domain.Cake, bool) {
	for _, p := range c.current.Load().Products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Cake{}, false
}

// Search matches term case-insensitively against name and description. An
// empty term matches everything.
func (c *Cache) Search(term string) []domain.Cake {
	products := c.current.Load().Products
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]domain.Cake, 0)
	for _, p := range products {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out
}

// Replace publishes a complete new catalog and marks it fresh.
func (c *Cache) Replace(products []domain.Cake) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publish(&Snapshot{Products: clone(products), LastUpdated: c.now()})
}

// Restore publishes a snapshot keeping its original timestamp, so a warm start
// from the mirror does not look fresher than it is.
func (c *Cache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publish(&Snapshot{Products: clone(s.Products), LastUpdated: s.LastUpdated, Stale: s.Stale})
}

// Invalidate marks the snapshot stale. The next reader must resync; the
// timestamp is kept as is.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current.Load()
	c.publish(&Snapshot{Products: cur.Products, LastUpdated: cur.LastUpdated, Stale: true})
}

// Upsert swaps one cake in place (matched by id) or appends it. Freshness is
// left untouched. It reports whether the cake was new.
func (c *Cache) Upsert(cake domain.Cake) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current.Load()
	products := clone(cur.Products)
	added := true
	for i := range products {
		if products[i].ID == cake.ID {
			products[i] = cake
			added = false
			break
		}
	}
	if added {
		products = append(products, cake)
	}
	return c.publish(&Snapshot{Products: products, LastUpdated: cur.LastUpdated, Stale: cur.Stale}), added
}

// Remove drops the cake with the given id and reports whether it existed.
func (c *Cache) Remove(id int64) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.current.Load()
	products := make([]domain.Cake, 0, len(cur.Products))
	for _, p := range cur.Products {
		if p.ID != id {
			products = append(products, p)
		}
	}
	if len(products) == len(cur.Products) {
		return *cur, false
	}
	return c.publish(&Snapshot{Products: products, LastUpdated: cur.LastUpdated, Stale: cur.Stale}), true
}

// Subscribe registers fn to be called after every publish, in publish order.
// fn runs with the write lock held and must not write to the cache.
func (c *Cache) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// publish must be called with c.mu held.
func (c *Cache) publish(s *Snapshot) Snapshot {
	c.current.Store(s)
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		c.subs[id](*s)
	}
	return *s
}

func clone(products []domain.Cake) []domain.Cake {
	out := make([]domain.Cake, len(products))
	copy(out, products)
	return out
}
