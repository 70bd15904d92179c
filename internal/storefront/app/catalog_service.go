// Package app implements the storefront use cases on top of the catalog
// cache, the sync coordinator and the cart engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/adminstore"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/core/ports"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrSyncLogDisabled    = errors.New("sync log is disabled")
)

// Syncer is the part of the coordinator the service drives.
type Syncer interface {
	SyncAll(ctx context.Context, products []domain.AdminProduct) coordinator.SyncResult
	SyncProduct(ctx context.Context, change coordinator.ProductChange) coordinator.SyncResult
}

type CatalogService struct {
	cache    *catalogcache.Cache
	syncer   Syncer
	admin    adminstore.Repository
	logs     synclog.Repository
	pageSize int

	refresh singleflight.Group
}

// NewCatalogService wires the catalog use cases. logs may be nil.
func NewCatalogService(
	cache *catalogcache.Cache,
	syncer Syncer,
	admin adminstore.Repository,
	logs synclog.Repository,
	defaultPageSize int,
) *CatalogService {
	return &CatalogService{
		cache:    cache,
		syncer:   syncer,
		admin:    admin,
		logs:     logs,
		pageSize: defaultPageSize,
	}
}

// Page returns one page of the catalog. A zero page or pageSize means the
// first page or the default size; negative values select nothing.
func (s *CatalogService) Page(ctx context.Context, page, pageSize int) (ports.CatalogPage, error) {
	stale, err := s.ensureFresh(ctx)
	if err != nil {
		return ports.CatalogPage{}, err
	}
	if pageSize == 0 {
		pageSize = s.pageSize
	}
	if page == 0 {
		page = 1
	}
	return ports.CatalogPage{
		Products:   s.cache.GetPage(page, pageSize),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: s.cache.TotalPages(pageSize),
		Total:      s.cache.Count(),
		Stale:      stale,
	}, nil
}

func (s *CatalogService) Search(ctx context.Context, term string) ([]domain.Cake, error) {
	if _, err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}
	return s.cache.Search(term), nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (domain.Cake, error) {
	if _, err := s.ensureFresh(ctx); err != nil {
		return domain.Cake{}, err
	}
	cake, ok := s.cache.Get(id)
	if !ok {
		return domain.Cake{}, fmt.Errorf("cake %d: %w", id, ErrProductNotFound)
	}
	return cake, nil
}

// Invalidate marks the catalog stale so the next read resyncs from the admin
// store.
func (s *CatalogService) Invalidate(ctx context.Context) {
	s.cache.Invalidate()
	slog.InfoContext(ctx, "catalog invalidated", "products", s.cache.Count())
}

// ResyncAll republishes the catalog from every product in the admin store.
func (s *CatalogService) ResyncAll(ctx context.Context) (coordinator.SyncResult, error) {
	products, err := s.admin.List(ctx)
	if err != nil {
		return coordinator.SyncResult{}, fmt.Errorf("list admin products: %w", err)
	}
	return s.syncer.SyncAll(ctx, products), nil
}

func (s *CatalogService) OnProductCreated(ctx context.Context, p domain.AdminProduct) (coordinator.SyncResult, error) {
	if _, err := s.admin.Upsert(ctx, p); err != nil {
		return coordinator.SyncResult{}, fmt.Errorf("store product %s: %w", p.ID, err)
	}
	if !p.IsActive {
		return s.syncer.SyncProduct(ctx, coordinator.ProductChange{Kind: coordinator.ChangeDeleted, Product: p}), nil
	}
	return s.syncer.SyncProduct(ctx, coordinator.ProductChange{Kind: coordinator.ChangeCreated, Product: p}), nil
}

// OnProductUpdated stores p and syncs it. Deactivating a product removes it
// from the shop.
func (s *CatalogService) OnProductUpdated(ctx context.Context, p domain.AdminProduct) (coordinator.SyncResult, error) {
	if _, err := s.admin.Upsert(ctx, p); err != nil {
		return coordinator.SyncResult{}, fmt.Errorf("store product %s: %w", p.ID, err)
	}
	kind := coordinator.ChangeUpdated
	if !p.IsActive {
		kind = coordinator.ChangeDeleted
	}
	return s.syncer.SyncProduct(ctx, coordinator.ProductChange{Kind: kind, Product: p}), nil
}

func (s *CatalogService) OnProductDeleted(ctx context.Context, id string) (coordinator.SyncResult, error) {
	if err := s.admin.Delete(ctx, id); err != nil && !errors.Is(err, adminstore.ErrNotFound) {
		return coordinator.SyncResult{}, fmt.Errorf("delete product %s: %w", id, err)
	}
	return s.syncer.SyncProduct(ctx, coordinator.ProductChange{
		Kind:    coordinator.ChangeDeleted,
		Product: domain.AdminProduct{ID: id},
	}), nil
}

func (s *CatalogService) SyncRun(ctx context.Context, runID string) (*synclog.SyncLog, error) {
	if s.logs == nil {
		return nil, ErrSyncLogDisabled
	}
	return s.logs.GetLatest(ctx, runID)
}

// ensureFresh resyncs when the cache is stale or expired. Concurrent readers
// share one resync. A failed resync still serves the last good snapshot and
// reports it as stale; only a never populated cache is an error.
func (s *CatalogService) ensureFresh(ctx context.Context) (stale bool, err error) {
	if s.cache.IsFresh() {
		return false, nil
	}

	ch := s.refresh.DoChan("catalog", func() (interface{}, error) {
		if s.cache.IsFresh() {
			return coordinator.SyncResult{Success: true}, nil
		}
		// Readers that give up must not cancel the shared resync.
		return s.ResyncAll(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		if r.Err == nil && r.Val.(coordinator.SyncResult).Success {
			return false, nil
		}
		reason := r.Err
		if reason == nil {
			reason = errors.New(firstError(r.Val.(coordinator.SyncResult)))
		}
		if s.cache.Populated() {
			slog.WarnContext(ctx, "catalog resync failed, serving last snapshot", "error", reason)
			return true, nil
		}
		return false, fmt.Errorf("%w: %v", ErrCatalogUnavailable, reason)
	}
}

func firstError(res coordinator.SyncResult) string {
	if len(res.Errors) > 0 {
		return res.Errors[0]
	}
	return "sync failed"
}

var _ ports.CatalogService = (*CatalogService)(nil)
