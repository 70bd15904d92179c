package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/adminstore"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/adminstore/postgres"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/config"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog/sqlite"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/app"
)

type storefront struct {
	catalog  *catalogcache.Cache
	catalogs *app.CatalogService
	carts    *app.CartService
	closers  []func() error
}

func (s *storefront) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// build wires the storefront from cfg. Optional backends fall back to in
// process implementations when they are not configured.
func build(ctx context.Context, cfg *config.Config) (_ *storefront, err error) {
	s := &storefront{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	kv := keyValueStore(ctx, cfg.Redis, s)

	s.catalog = catalogcache.New(catalogcache.WithTTL(cfg.Catalog.TTL))
	mirror := catalogcache.NewMirror(kv, 0)
	catalogcache.Warm(ctx, s.catalog, mirror)

	opts := []coordinator.Option{
		coordinator.WithMirror(mirror),
		coordinator.WithRetryPolicy(coordinator.RetryPolicy{
			MaxRetries: cfg.Sync.MaxRetries,
			BaseDelay:  cfg.Sync.BaseDelay,
		}),
	}

	var logs synclog.Repository
	if cfg.SQLite.Path != "" {
		repo, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, repo.Close)
		logs = repo
		opts = append(opts, coordinator.WithSyncLog(repo))
	}

	admin, err := adminStore(ctx, cfg, s)
	if err != nil {
		return nil, err
	}

	promos, err := promotion.NewMemoryStoreFromRecords(cfg.Promotions)
	if err != nil {
		return nil, fmt.Errorf("load promotions: %w", err)
	}

	coord := coordinator.NewSyncCoordinator(s.catalog, opts...)
	s.catalogs = app.NewCatalogService(s.catalog, coord, admin, logs, cfg.Catalog.PageSize)
	s.carts = app.NewCartService(
		cart.NewCacheStore(kv, cfg.Cart.TTL),
		s.catalogs,
		promotion.NewEvaluator(promos),
		cfg.Cart.Delivery,
	)
	return s, nil
}

// keyValueStore returns Redis when it is configured and reachable, and an in
// process store otherwise.
func keyValueStore(ctx context.Context, cfg config.RedisConfig, s *storefront) cache.Cache {
	if cfg.Addr == "" {
		return cache.NewMemory(cfg.Namespace)
	}
	r := cache.NewRedisCache(cfg.Addr, cfg.Namespace)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		slog.WarnContext(ctx, "redis unreachable, keeping carts and catalog mirror in process",
			"addr", cfg.Addr, "error", err)
		_ = r.Close()
		return cache.NewMemory(cfg.Namespace)
	}
	s.closers = append(s.closers, r.Close)
	slog.InfoContext(ctx, "redis connected", "addr", cfg.Addr)
	return r
}

func adminStore(ctx context.Context, cfg *config.Config, s *storefront) (adminstore.Repository, error) {
	var seed []domain.AdminProduct
	if cfg.Catalog.SeedFile != "" {
		products, err := adminstore.LoadSeedFile(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = products
	}

	if cfg.Postgres.DSN == "" {
		slog.InfoContext(ctx, "using in-memory admin store", "seeded", len(seed))
		return adminstore.NewMemory(seed...), nil
	}

	pool, err := postgres.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error { pool.Close(); return nil })

	repo := postgres.NewProductRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	if len(seed) > 0 {
		added, err := adminstore.Seed(ctx, repo, seed)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "admin store seeded", "added", added, "total", len(seed))
	}
	return repo, nil
}
