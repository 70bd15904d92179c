package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/cart"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
	"github.com/jcmexdev/bakery-storefront/internal/storefront/core/ports"
)

var ErrSessionRequired = errors.New("session id is required")

// CartService loads a session cart, applies one change and saves it back.
type CartService struct {
	store     cart.Store
	catalog   ports.CatalogReader
	discounts cart.DiscountEvaluator
	delivery  cart.Delivery
	now       func() time.Time
}

func NewCartService(store cart.Store, catalog ports.CatalogReader, discounts cart.DiscountEvaluator, delivery cart.Delivery) *CartService {
	return &CartService{
		store:     store,
		catalog:   catalog,
		discounts: discounts,
		delivery:  delivery,
		now:       time.Now,
	}
}

func (s *CartService) Get(ctx context.Context, sessionID string) (CartView, error) {
	e, err := s.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, e), nil
}

// AddItem resolves size and cream against the live catalog so prices always
// come from the shop, never from the client.
func (s *CartService) AddItem(ctx context.Context, sessionID string, req ports.AddItemRequest) (CartView, error) {
	cake, err := s.catalog.Get(ctx, req.CakeID)
	if err != nil {
		return CartView{}, err
	}

	size, ok := cake.PriceFor(req.Size)
	if !ok {
		return CartView{}, &cart.ValidationError{Field: "size", Message: fmt.Sprintf("%q is not offered for %s", req.Size, cake.Name)}
	}

	c := cart.Customization{
		Size:          size,
		Decorations:   req.Decorations,
		ContainerType: req.ContainerType,
		Notes:         req.Notes,
		Images:        req.Images,
	}
	switch {
	case req.Cream != "":
		cream, ok := cake.CreamByName(req.Cream)
		if !ok {
			return CartView{}, &cart.ValidationError{Field: "cream", Message: fmt.Sprintf("%q is not offered for %s", req.Cream, cake.Name)}
		}
		c.Cream = cream
	default:
		c.Cream, _ = cake.DefaultCream()
	}

	return s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		_, err := e.AddItem(cake, c, req.Quantity)
		return err
	})
}

func (s *CartService) AddCustomLoaf(ctx context.Context, sessionID string, sel cart.LoafSelection, quantity int) (CartView, error) {
	return s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		_, err := e.AddCustomLoaf(sel, quantity)
		return err
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (CartView, error) {
	return s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		return e.UpdateQuantity(lineID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, lineID string) (CartView, error) {
	return s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		return e.RemoveItem(lineID)
	})
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (CartView, error) {
	if sessionID == "" {
		return CartView{}, ErrSessionRequired
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return CartView{}, err
	}
	return s.view(ctx, s.newEngine()), nil
}

// ApplyPromotion keeps the promotion only when it grants a discount now; the
// result explains a refusal.
func (s *CartService) ApplyPromotion(ctx context.Context, sessionID, promotionID string) (CartView, promotion.Result, error) {
	var res promotion.Result
	view, err := s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		var err error
		res, err = e.ApplyPromotion(ctx, promotionID)
		return err
	})
	return view, res, err
}

func (s *CartService) RemovePromotion(ctx context.Context, sessionID string) (CartView, error) {
	return s.mutate(ctx, sessionID, func(e *cart.Engine) error {
		e.RemovePromotion()
		return nil
	})
}

func (s *CartService) mutate(ctx context.Context, sessionID string, change func(*cart.Engine) error) (CartView, error) {
	e, err := s.load(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	if err := change(e); err != nil {
		return CartView{}, err
	}
	if err := s.store.Save(ctx, sessionID, e.Snapshot()); err != nil {
		return CartView{}, err
	}
	return s.view(ctx, e), nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*cart.Engine, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	e := s.newEngine()
	persisted, ok, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return e, nil
	}
	if err := e.Restore(persisted); err != nil {
		// A cart that no longer fits the limits is dropped rather than
		// blocking the session.
		slog.WarnContext(ctx, "discarding unreadable cart", "session_id", sessionID, "error", err)
		return s.newEngine(), nil
	}
	return e, nil
}

func (s *CartService) newEngine() *cart.Engine {
	return cart.NewEngine(
		cart.WithDiscounts(s.discounts),
		cart.WithDelivery(s.delivery),
		cart.WithClock(s.now),
	)
}

func (s *CartService) view(ctx context.Context, e *cart.Engine) CartView {
	return CartView{Cart: e.Snapshot(), Summary: e.Summary(ctx)}
}

type CartView = ports.CartView

var _ ports.CartService = (*CartService)(nil)
