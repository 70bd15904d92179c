package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/mappers"
)

var errNothingToPublish = errors.New("no product passed validation")

// --- PrepareCatalogStep ---

// PrepareCatalogStep validates and transforms the active admin products.
// Item failures are collected and the item skipped.
type PrepareCatalogStep struct {
	products []domain.AdminProduct

	cakes    []domain.Cake
	itemErrs []string
}

func NewPrepareCatalogStep(products []domain.AdminProduct) *PrepareCatalogStep {
	return &PrepareCatalogStep{products: products}
}

func (s *PrepareCatalogStep) Name() string { return "Prepare_Catalog_Step" }

func (s *PrepareCatalogStep) Execute(ctx context.Context) error {
	s.cakes = make([]domain.Cake, 0, len(s.products))
	s.itemErrs = nil
	owners := make(map[int64]string, len(s.products))

	for _, p := range s.products {
		if err := domain.ValidateForCatalog(p); err != nil {
			s.itemErrs = append(s.itemErrs, err.Error())
			continue
		}
		cake, err := mappers.CakeFromAdmin(p)
		if err != nil {
			s.itemErrs = append(s.itemErrs, err.Error())
			continue
		}
		if owner, taken := owners[cake.ID]; taken {
			s.itemErrs = append(s.itemErrs, integrityError(cake.ID, owner, p.ID).Error())
			continue
		}
		owners[cake.ID] = p.ID
		s.cakes = append(s.cakes, cake)
	}

	if len(s.cakes) == 0 {
		return Permanent(errNothingToPublish)
	}
	return nil
}

func (s *PrepareCatalogStep) Compensate(ctx context.Context) error { return nil }

// --- PublishCatalogStep ---

// PublishCatalogStep mirrors the prepared catalog and then swaps it into the
// cache. A mirror failure leaves the cache untouched.
type PublishCatalogStep struct {
	cache   *catalogcache.Cache
	mirror  SnapshotMirror
	prepare *PrepareCatalogStep

	previous  catalogcache.Snapshot
	published bool
	counts    Counts
}

func NewPublishCatalogStep(cache *catalogcache.Cache, mirror SnapshotMirror, prepare *PrepareCatalogStep) *PublishCatalogStep {
	return &PublishCatalogStep{cache: cache, mirror: mirror, prepare: prepare}
}

func (s *PublishCatalogStep) Name() string { return "Publish_Catalog_Step" }

func (s *PublishCatalogStep) Execute(ctx context.Context) error {
	s.previous = s.cache.Snapshot()
	next := catalogcache.Snapshot{Products: s.prepare.cakes, LastUpdated: s.cache.Now()}

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, next); err != nil {
			return fmt.Errorf("publish catalog: %w", err)
		}
	}

	// Same timestamp as the mirrored copy.
	s.cache.Restore(next)
	s.published = true
	s.counts = diff(s.previous.Products, s.prepare.cakes)
	return nil
}

func (s *PublishCatalogStep) Compensate(ctx context.Context) error {
	if !s.published {
		return nil
	}
	s.cache.Restore(s.previous)
	if s.mirror != nil {
		return s.mirror.Save(ctx, s.previous)
	}
	return nil
}

// --- PublishProductStep ---

// PublishProductStep applies one upsert or removal to the cache after
// mirroring the resulting catalog.
type PublishProductStep struct {
	cache  *catalogcache.Cache
	mirror SnapshotMirror
	cake   domain.Cake
	remove bool

	counts Counts
}

func NewUpsertProductStep(cache *catalogcache.Cache, mirror SnapshotMirror, cake domain.Cake) *PublishProductStep {
	return &PublishProductStep{cache: cache, mirror: mirror, cake: cake}
}

func NewRemoveProductStep(cache *catalogcache.Cache, mirror SnapshotMirror, id int64) *PublishProductStep {
	return &PublishProductStep{cache: cache, mirror: mirror, cake: domain.Cake{ID: id}, remove: true}
}

func (s *PublishProductStep) Name() string {
	if s.remove {
		return "Remove_Product_Step"
	}
	return "Upsert_Product_Step"
}

func (s *PublishProductStep) Execute(ctx context.Context) error {
	current := s.cache.Snapshot()
	_, exists := s.cache.Get(s.cake.ID)
	if s.remove && !exists {
		return nil
	}

	if s.mirror != nil {
		next := current
		next.Products = applyChange(current.Products, s.cake, s.remove)
		if err := s.mirror.Save(ctx, next); err != nil {
			return fmt.Errorf("publish product %d: %w", s.cake.ID, err)
		}
	}

	switch {
	case s.remove:
		s.cache.Remove(s.cake.ID)
		s.counts = Counts{Removed: 1}
	case exists:
		s.cache.Upsert(s.cake)
		s.counts = Counts{Updated: 1}
	default:
		s.cache.Upsert(s.cake)
		s.counts = Counts{Added: 1}
	}
	return nil
}

func (s *PublishProductStep) Compensate(ctx context.Context) error { return nil }

func applyChange(products []domain.Cake, cake domain.Cake, remove bool) []domain.Cake {
	out := make([]domain.Cake, 0, len(products)+1)
	replaced := false
	for _, p := range products {
		if p.ID != cake.ID {
			out = append(out, p)
			continue
		}
		if !remove {
			out = append(out, cake)
			replaced = true
		}
	}
	if !remove && !replaced {
		out = append(out, cake)
	}
	return out
}

func diff(before, after []domain.Cake) Counts {
	old := make(map[int64]struct{}, len(before))
	for _, p := range before {
		old[p.ID] = struct{}{}
	}
	var c Counts
	for _, p := range after {
		if _, ok := old[p.ID]; ok {
			c.Updated++
			delete(old, p.ID)
		} else {
			c.Added++
		}
	}
	c.Removed = len(old)
	return c
}

func integrityError(id int64, owner, intruder string) error {
	return fmt.Errorf("data integrity: products %q and %q share catalog id %d, %q skipped", owner, intruder, id, intruder)
}
