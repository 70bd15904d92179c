package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/cache"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/core/ports"
)

func newCartService(t *testing.T) (*CartService, *cart.CacheStore) {
	t.Helper()
	f := newFixture(t, adminProduct("prod1", "Chocolate Fudge"), adminProduct("prod2", "Vanilla Cake"))
	store := cart.NewCacheStore(cache.NewMemory("cart"), time.Hour)
	promos := promotion.NewEvaluator(promotion.NewMemoryStore(promotion.Promotion{
		ID:          "choc10",
		Discount:    promotion.Percentage{Rate: decimal.NewFromInt(10)},
		Eligibility: promotion.EligibilityFor([]string{"Chocolate"}),
		Active:      true,
	}))
	return NewCartService(store, f.service, promos, cart.Delivery{Fee: 300}), store
}

func TestCartService_AddItemPricesFromCatalog(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, "s1", ports.AddItemRequest{
		CakeID:      1,
		Size:        "2kg",
		Cream:       "Chocolate",
		Decorations: []cart.Decoration{{Name: "Berries", Price: 150}},
		Quantity:    2,
	})

	require.NoError(t, err)
	require.Len(t, view.Cart.Items, 1)
	line := view.Cart.Items[0]
	assert.Equal(t, int64(3800+200+150), line.UnitPrice)
	assert.Equal(t, int64(4150*2), view.Summary.Subtotal)
	assert.Equal(t, int64(4150*2+300), view.Summary.Total)
}

func TestCartService_DefaultCream(t *testing.T) {
	svc, _ := newCartService(t)

	view, err := svc.AddItem(context.Background(), "s1", ports.AddItemRequest{CakeID: 2, Size: "1kg", Quantity: 1})

	require.NoError(t, err)
	assert.Equal(t, "Vanilla", view.Cart.Items[0].Customization.Cream.Name)
	assert.Equal(t, int64(2000), view.Cart.Items[0].UnitPrice)
}

func TestCartService_RejectsUnknownSelections(t *testing.T) {
	svc, store := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 99, Size: "1kg", Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 1, Size: "5kg", Quantity: 1})
	var ve *cart.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "size", ve.Field)

	_, err = svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 1, Size: "1kg", Cream: "Mint", Quantity: 1})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "cream", ve.Field)

	_, err = svc.AddItem(ctx, "", ports.AddItemRequest{CakeID: 1, Size: "1kg", Quantity: 1})
	assert.ErrorIs(t, err, ErrSessionRequired)

	_, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok, "failed changes are not saved")
}

func TestCartService_SessionsPersistBetweenCalls(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	view, err := svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 1, Size: "1kg", Quantity: 2})
	require.NoError(t, err)
	lineID := view.Cart.Items[0].ID

	_, err = svc.AddCustomLoaf(ctx, "s1", cart.LoafSelection{Flavor: cart.LoafOption{Name: "Banana", Price: 1550}}, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s2", ports.AddItemRequest{CakeID: 2, Size: "1kg", Quantity: 1})
	require.NoError(t, err)

	view, err = svc.UpdateQuantity(ctx, "s1", lineID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Summary.TotalItems)
	assert.Equal(t, 2, view.Summary.ItemCount)

	view, err = svc.RemoveItem(ctx, "s1", lineID)
	require.NoError(t, err)
	assert.Equal(t, int64(1550), view.Summary.Subtotal)

	_, err = svc.RemoveItem(ctx, "s1", lineID)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	other, err := svc.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, other.Summary.ItemCount)
}

func TestCartService_Promotions(t *testing.T) {
	svc, _ := newCartService(t)
	ctx := context.Background()

	_, _, err := svc.ApplyPromotion(ctx, "s1", "choc10")
	assert.ErrorIs(t, err, cart.ErrEmptyCart)

	_, err = svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 1, Size: "2kg", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "s1", ports.AddItemRequest{CakeID: 2, Size: "1kg", Quantity: 1})
	require.NoError(t, err)

	view, res, err := svc.ApplyPromotion(ctx, "s1", "choc10")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, int64(380), view.Summary.Discount)
	assert.Equal(t, int64(3800+2000-380+300), view.Summary.Total)

	view, err = svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "choc10", view.Cart.PromotionID, "promotion persists with the cart")

	view, err = svc.RemovePromotion(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, view.Summary.Discount)

	_, res, err = svc.ApplyPromotion(ctx, "s1", "nope")
	require.NoError(t, err)
	assert.Equal(t, "unknown promotion", res.Reason)

	view, err = svc.Clear(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, view.Summary.ItemCount)
	assert.Empty(t, view.Cart.PromotionID)
}
