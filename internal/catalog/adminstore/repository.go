// Package adminstore is the source of truth for admin edited products. Full
// catalog syncs read from it.
package adminstore

import (
	"context"
	"errors"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

var ErrNotFound = errors.New("admin product not found")

type Repository interface {
	// List returns every product in creation order.
	List(ctx context.Context) ([]domain.AdminProduct, error)
	ListActive(ctx context.Context) ([]domain.AdminProduct, error)
	Get(ctx context.Context, id string) (domain.AdminProduct, error)
	// Upsert stores p and reports whether it was new.
	Upsert(ctx context.Context, p domain.AdminProduct) (bool, error)
	Delete(ctx context.Context, id string) error
}
