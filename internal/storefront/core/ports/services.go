// Package ports declares what the storefront transports need from the
// application layer.
package ports

import (
	"context"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
)

// CatalogPage is one page of the shop catalog.
type CatalogPage struct {
	Products   []domain.Cake `json:"products"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
	Total      int           `json:"total"`
	Stale      bool          `json:"stale"`
}

// CatalogService serves the shop catalog and receives admin mutations.
type CatalogService interface {
	Page(ctx context.Context, page, pageSize int) (CatalogPage, error)
	Search(ctx context.Context, term string) ([]domain.Cake, error)
	Get(ctx context.Context, id int64) (domain.Cake, error)

	Invalidate(ctx context.Context)
	ResyncAll(ctx context.Context) (coordinator.SyncResult, error)
	OnProductCreated(ctx context.Context, p domain.AdminProduct) (coordinator.SyncResult, error)
	OnProductUpdated(ctx context.Context, p domain.AdminProduct) (coordinator.SyncResult, error)
	OnProductDeleted(ctx context.Context, id string) (coordinator.SyncResult, error)
	SyncRun(ctx context.Context, runID string) (*synclog.SyncLog, error)
}

// CatalogReader resolves a cake for the cart.
type CatalogReader interface {
	Get(ctx context.Context, id int64) (domain.Cake, error)
}

// AddItemRequest names a cake and the customization picked for it. Size and
// Cream refer to the catalog by label and name; an empty Cream means the
// cake's default cream.
type AddItemRequest struct {
	CakeID        int64
	Size          string
	Cream         string
	Decorations   []cart.Decoration
	ContainerType string
	Notes         string
	Images        []string
	Quantity      int
}

// CartView is the persisted cart with its priced summary.
type CartView struct {
	Cart    cart.PersistedCart `json:"cart"`
	Summary cart.Summary       `json:"summary"`
}

// CartService mutates the cart of one session per call.
type CartService interface {
	Get(ctx context.Context, sessionID string) (CartView, error)
	AddItem(ctx context.Context, sessionID string, req AddItemRequest) (CartView, error)
	AddCustomLoaf(ctx context.Context, sessionID string, sel cart.LoafSelection, quantity int) (CartView, error)
	UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (CartView, error)
	RemoveItem(ctx context.Context, sessionID, lineID string) (CartView, error)
	Clear(ctx context.Context, sessionID string) (CartView, error)
	ApplyPromotion(ctx context.Context, sessionID, promotionID string) (CartView, promotion.Result, error)
	RemovePromotion(ctx context.Context, sessionID string) (CartView, error)
}
