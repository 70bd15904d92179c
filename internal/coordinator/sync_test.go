package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
)

type flakyMirror struct {
	mu       sync.Mutex
	failures int
	saved    []catalogcache.Snapshot
	calls    int
}

func (m *flakyMirror) Save(ctx context.Context, s catalogcache.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("mirror unreachable")
	}
	m.saved = append(m.saved, s)
	return nil
}

type memorySyncLog struct {
	mu      sync.Mutex
	entries []*synclog.SyncLog
}

func (m *memorySyncLog) Save(ctx context.Context, e *synclog.SyncLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memorySyncLog) GetLatest(ctx context.Context, runID string) (*synclog.SyncLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].RunID == runID {
			return m.entries[i], nil
		}
	}
	return nil, synclog.ErrNotFound
}

func (m *memorySyncLog) statuses(runID string) []synclog.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []synclog.Status
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e.Status)
		}
	}
	return out
}

func product(id, name string) domain.AdminProduct {
	return domain.AdminProduct{
		ID:           id,
		Name:         name,
		Description:  name + " description",
		Images:       []string{id + ".jpg"},
		Prices:       []domain.PriceTier{{WeightLabel: "1kg", Amount: 2000, Servings: 6}},
		CreamOptions: []string{"Vanilla", "Chocolate (+200)"},
		IsActive:     true,
	}
}

func setup(t *testing.T, mirrorFailures int) (*SyncCoordinator, *catalogcache.Cache, *flakyMirror, *memorySyncLog, *recordingSleeper) {
	t.Helper()
	cache := catalogcache.New()
	mirror := &flakyMirror{failures: mirrorFailures}
	logRepo := &memorySyncLog{}
	sleeper := &recordingSleeper{}
	policy := RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep}
	coord := NewSyncCoordinator(cache,
		WithMirror(mirror),
		WithSyncLog(logRepo),
		WithRetryPolicy(policy),
	)
	return coord, cache, mirror, logRepo, sleeper
}

func catalogIDs(c *catalogcache.Cache) []int64 {
	var out []int64
	for _, p := range c.Snapshot().Products {
		out = append(out, p.ID)
	}
	return out
}

func TestSyncAll_PublishesActiveProducts(t *testing.T) {
	coord, cache, mirror, logRepo, _ := setup(t, 0)

	inactive := product("prod3", "Retired")
	inactive.IsActive = false
	res := coord.SyncAll(context.Background(), []domain.AdminProduct{
		product("prod1", "Napoleon"), product("prod2", "Medovik"), inactive,
	})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 2, res.Added)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []int64{1, 2}, catalogIDs(cache))
	assert.True(t, cache.IsFresh())
	require.Len(t, mirror.saved, 1)
	assert.Equal(t, cache.Snapshot().LastUpdated, mirror.saved[0].LastUpdated)
	assert.Equal(t, []synclog.Status{synclog.StatusStarted, synclog.StatusCompleted}, logRepo.statuses(res.RunID))
}

func TestSyncAll_CountsChanges(t *testing.T) {
	coord, cache, _, _, _ := setup(t, 0)
	ctx := context.Background()
	coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "A"), product("prod2", "B")})

	res := coord.SyncAll(ctx, []domain.AdminProduct{product("prod2", "B2"), product("prod3", "C")})

	require.True(t, res.Success)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []int64{2, 3}, catalogIDs(cache))
}

func TestSyncAll_NoActiveProducts(t *testing.T) {
	coord, cache, _, logRepo, _ := setup(t, 0)
	ctx := context.Background()
	require.True(t, coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")}).Success)

	inactive := product("prod2", "Old")
	inactive.IsActive = false
	for _, input := range [][]domain.AdminProduct{nil, {inactive}} {
		res := coord.SyncAll(ctx, input)

		assert.False(t, res.Success)
		assert.Equal(t, []string{"No products to sync"}, res.Errors)
		assert.Equal(t, []int64{1}, catalogIDs(cache), "existing catalog must survive")
		assert.Equal(t, []synclog.Status{synclog.StatusRejected}, logRepo.statuses(res.RunID))
	}
}

func TestSyncAll_SkipsBrokenItems(t *testing.T) {
	coord, cache, _, _, _ := setup(t, 0)

	invalid := product("prod2", "")
	res := coord.SyncAll(context.Background(), []domain.AdminProduct{
		product("prod1", "Napoleon"),
		invalid,
		product("cake", "No digits"),
		product("item-1", "Same id as prod1"),
	})

	require.True(t, res.Success)
	assert.Equal(t, []int64{1}, catalogIDs(cache))
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "name is required")
	assert.Contains(t, res.Errors[1], "product id has no digits")
	assert.Contains(t, res.Errors[2], "data integrity")
}

func TestSyncAll_NothingPublishableKeepsCache(t *testing.T) {
	coord, cache, mirror, _, sleeper := setup(t, 0)
	ctx := context.Background()
	coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")})
	before := cache.Snapshot()

	res := coord.SyncAll(ctx, []domain.AdminProduct{product("nodigits", "X")})

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, before, cache.Snapshot())
	assert.Empty(t, sleeper.waits, "deterministic failures are not retried")
	assert.Len(t, mirror.saved, 1)
}

func TestSyncAll_RetriesWithBackoff(t *testing.T) {
	coord, cache, mirror, logRepo, sleeper := setup(t, 2)

	res := coord.SyncAll(context.Background(), []domain.AdminProduct{product("prod1", "Napoleon")})

	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 3, mirror.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.waits)
	assert.Equal(t, []int64{1}, catalogIDs(cache))
	assert.Equal(t, []synclog.Status{
		synclog.StatusStarted,
		synclog.StatusAttemptFailed,
		synclog.StatusAttemptFailed,
		synclog.StatusCompleted,
	}, logRepo.statuses(res.RunID))
}

func TestSyncAll_ExhaustedRetriesLeaveLastGoodSnapshot(t *testing.T) {
	coord, cache, mirror, logRepo, sleeper := setup(t, 0)
	ctx := context.Background()
	require.True(t, coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")}).Success)
	before := cache.Snapshot()

	mirror.failures = 10
	res := coord.SyncAll(ctx, []domain.AdminProduct{product("prod2", "Medovik")})

	assert.False(t, res.Success)
	assert.Equal(t, []string{"publish catalog: mirror unreachable"}, res.Errors)
	assert.Equal(t, before, cache.Snapshot())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, sleeper.waits)
	statuses := logRepo.statuses(res.RunID)
	assert.Equal(t, synclog.StatusFailed, statuses[len(statuses)-1])
}

func TestSyncAll_CancelledStopsRetrying(t *testing.T) {
	cache := catalogcache.New()
	mirror := &flakyMirror{failures: 10}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeper := &recordingSleeper{cancel: cancel, cancelAfter: 1}
	coord := NewSyncCoordinator(cache, WithMirror(mirror),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, Sleep: sleeper.Sleep}))

	res := coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")})

	assert.False(t, res.Success)
	assert.Equal(t, 1, mirror.calls)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "context canceled")
	assert.False(t, cache.Populated())
}

type blockingMirror struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	order   []string
}

func (m *blockingMirror) Save(ctx context.Context, s catalogcache.Snapshot) error {
	name := s.Products[0].Name
	m.mu.Lock()
	m.order = append(m.order, name)
	m.mu.Unlock()
	if name == "first" {
		close(m.entered)
		<-m.release
	}
	return nil
}

func TestSyncAll_RunsNeverOverlap(t *testing.T) {
	cache := catalogcache.New()
	mirror := &blockingMirror{entered: make(chan struct{}), release: make(chan struct{})}
	coord := NewSyncCoordinator(cache, WithMirror(mirror))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "first")})
	}()
	<-mirror.entered

	secondDone := make(chan SyncResult, 1)
	go func() {
		secondDone <- coord.SyncAll(ctx, []domain.AdminProduct{product("prod2", "second")})
	}()

	select {
	case <-secondDone:
		t.Fatal("second sync ran while the first was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(mirror.release)
	wg.Wait()
	res := <-secondDone

	require.True(t, res.Success)
	assert.Equal(t, []string{"first", "second"}, mirror.order)
	assert.Equal(t, []int64{2}, catalogIDs(cache))
}

func TestSyncAll_QueuedCallerCanGiveUp(t *testing.T) {
	cache := catalogcache.New()
	mirror := &blockingMirror{entered: make(chan struct{}), release: make(chan struct{})}
	coord := NewSyncCoordinator(cache, WithMirror(mirror))

	go coord.SyncAll(context.Background(), []domain.AdminProduct{product("prod1", "first")})
	<-mirror.entered
	defer close(mirror.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := coord.SyncAll(ctx, []domain.AdminProduct{product("prod2", "second")})

	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "waiting for running sync")
}

func TestSyncProduct_CreateUpdateDelete(t *testing.T) {
	coord, cache, mirror, _, _ := setup(t, 0)
	ctx := context.Background()
	require.True(t, coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")}).Success)
	stamp := cache.Snapshot().LastUpdated

	res := coord.SyncProduct(ctx, ProductChange{Kind: ChangeCreated, Product: product("prod2", "Medovik")})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 1, res.Added)

	res = coord.SyncProduct(ctx, ProductChange{Kind: ChangeUpdated, Product: product("prod1", "Napoleon XL")})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Updated)
	got, _ := cache.Get(1)
	assert.Equal(t, "Napoleon XL", got.Name)

	res = coord.SyncProduct(ctx, ProductChange{Kind: ChangeDeleted, Product: domain.AdminProduct{ID: "prod2"}})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Removed)

	res = coord.SyncProduct(ctx, ProductChange{Kind: ChangeDeleted, Product: domain.AdminProduct{ID: "prod2"}})
	require.True(t, res.Success)
	assert.Zero(t, res.Removed)

	assert.Equal(t, []int64{1}, catalogIDs(cache))
	assert.Equal(t, stamp, cache.Snapshot().LastUpdated, "single product syncs do not refresh the whole catalog")
	last := mirror.saved[len(mirror.saved)-1]
	assert.Len(t, last.Products, 1)
}

func TestSyncProduct_ValidationShortCircuits(t *testing.T) {
	coord, cache, mirror, logRepo, _ := setup(t, 0)
	ctx := context.Background()
	require.True(t, coord.SyncAll(ctx, []domain.AdminProduct{product("prod1", "Napoleon")}).Success)
	before := cache.Snapshot()
	saves := len(mirror.saved)

	cases := map[string]domain.AdminProduct{
		"no images": func() domain.AdminProduct { p := product("prod2", "X"); p.Images = nil; return p }(),
		"no prices": func() domain.AdminProduct { p := product("prod2", "X"); p.Prices = nil; return p }(),
		"inactive":  func() domain.AdminProduct { p := product("prod2", "X"); p.IsActive = false; return p }(),
		"no options": func() domain.AdminProduct {
			p := product("prod2", "X")
			p.CreamOptions, p.TinOptions = nil, nil
			return p
		}(),
		"bad id":       product("prod", "X"),
		"id collision": product("other-1", "X"),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			res := coord.SyncProduct(ctx, ProductChange{Kind: ChangeUpdated, Product: p})

			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Errors)
			assert.Equal(t, before, cache.Snapshot())
			assert.Len(t, mirror.saved, saves)
			assert.Equal(t, []synclog.Status{synclog.StatusRejected}, logRepo.statuses(res.RunID))
		})
	}
}

func TestSyncProduct_SharesValidationWithSyncAll(t *testing.T) {
	coord, _, _, _, _ := setup(t, 0)
	ctx := context.Background()

	for i, mutate := range []func(*domain.AdminProduct){
		func(p *domain.AdminProduct) { p.Description = "" },
		func(p *domain.AdminProduct) { p.CreamOptions = []string{"Caramel (+100)"} },
	} {
		p := product(fmt.Sprintf("prod%d", i+10), "Cake")
		mutate(&p)

		single := coord.SyncProduct(ctx, ProductChange{Kind: ChangeCreated, Product: p})
		full := coord.SyncAll(ctx, []domain.AdminProduct{p})

		assert.False(t, single.Success)
		assert.False(t, full.Success)
		require.Len(t, full.Errors, 1)
		for _, msg := range single.Errors {
			assert.Contains(t, full.Errors[0], msg)
		}
	}
}
