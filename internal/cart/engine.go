package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/promotion"
)

// DiscountEvaluator prices a promotion for the cart lines.
type DiscountEvaluator interface {
	Evaluate(ctx context.Context, promotionID string, lines []promotion.Line) promotion.Result
}

// Delivery is the flat delivery fee. Orders at or above FreeThreshold ship
// free; a zero FreeThreshold disables free delivery.
type Delivery struct {
	Fee           int64 `mapstructure:"fee"`
	FreeThreshold int64 `mapstructure:"free_threshold"`
}

// FeeFor returns the delivery fee for a subtotal. Empty carts pay nothing.
func (d Delivery) FeeFor(subtotal int64) int64 {
	if subtotal <= 0 {
		return 0
	}
	if d.FreeThreshold > 0 && subtotal >= d.FreeThreshold {
		return 0
	}
	return d.Fee
}

type Summary struct {
	Subtotal    int64             `json:"subtotal"`
	DeliveryFee int64             `json:"deliveryFee"`
	Discount    int64             `json:"discount"`
	Total       int64             `json:"total"`
	ItemCount   int               `json:"itemCount"`
	TotalItems  int               `json:"totalItems"`
	Promotion   *promotion.Result `json:"promotion,omitempty"`
}

type Engine struct {
	items       []LineItem
	loaves      []CustomLoafItem
	promotionID string
	lastUpdated time.Time

	discounts DiscountEvaluator
	delivery  Delivery
	now       func() time.Time
	newID     func() string
}

type Option func(*Engine)

func WithDiscounts(d DiscountEvaluator) Option {
	return func(e *Engine) { e.discounts = d }
}

func WithDelivery(d Delivery) Option {
	return func(e *Engine) { e.delivery = d }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddItem adds quantity of cake with the given customization. A line with the
// same cake and selection is increased instead of adding a new line.
func (e *Engine) AddItem(cake domain.Cake, c Customization, quantity int) (LineItem, error) {
	if err := checkQuantity("quantity", quantity, MaxLineQuantity); err != nil {
		return LineItem{}, err
	}
	if c.Size.Amount <= 0 {
		return LineItem{}, invalid("size", "size %q has no price", c.Size.WeightLabel)
	}
	for _, d := range c.Decorations {
		if d.Price < 0 {
			return LineItem{}, invalid("decorations", "decoration %q has a negative price", d.Name)
		}
	}
	if err := e.checkTotal(quantity); err != nil {
		return LineItem{}, err
	}

	for i := range e.items {
		line := &e.items[i]
		if line.Cake.ID != cake.ID || !line.Customization.sameSelection(c) {
			continue
		}
		merged := line.Quantity + quantity
		if err := checkQuantity("quantity", merged, MaxLineQuantity); err != nil {
			return LineItem{}, err
		}
		line.Quantity = merged
		line.Cake = cake
		line.UnitPrice = c.UnitPrice()
		e.touch()
		return *line, nil
	}

	if err := e.checkNewLine(); err != nil {
		return LineItem{}, err
	}
	line := LineItem{
		ID:            e.newID(),
		Cake:          cake,
		Customization: c,
		Quantity:      quantity,
		UnitPrice:     c.UnitPrice(),
		AddedAt:       e.now(),
	}
	e.items = append(e.items, line)
	e.touch()
	return line, nil
}

// AddCustomLoaf adds quantity custom loaves, merging with an identical
// selection.
func (e *Engine) AddCustomLoaf(sel LoafSelection, quantity int) (CustomLoafItem, error) {
	if err := checkQuantity("quantity", quantity, MaxLoafQuantity); err != nil {
		return CustomLoafItem{}, err
	}
	if sel.Flavor.Name == "" {
		return CustomLoafItem{}, invalid("flavor", "a loaf flavor is required")
	}
	if sel.UnitPrice() <= 0 {
		return CustomLoafItem{}, invalid("selection", "loaf has no price")
	}
	if err := e.checkTotal(quantity); err != nil {
		return CustomLoafItem{}, err
	}

	for i := range e.loaves {
		line := &e.loaves[i]
		if line.Selection != sel {
			continue
		}
		merged := line.Quantity + quantity
		if err := checkQuantity("quantity", merged, MaxLoafQuantity); err != nil {
			return CustomLoafItem{}, err
		}
		line.Quantity = merged
		line.UnitPrice = sel.UnitPrice()
		e.touch()
		return *line, nil
	}

	if err := e.checkNewLine(); err != nil {
		return CustomLoafItem{}, err
	}
	line := CustomLoafItem{
		ID:        e.newID(),
		Selection: sel,
		Quantity:  quantity,
		UnitPrice: sel.UnitPrice(),
		AddedAt:   e.now(),
	}
	e.loaves = append(e.loaves, line)
	e.touch()
	return line, nil
}

// UpdateQuantity sets the quantity of any line. q <= 0 removes it.
func (e *Engine) UpdateQuantity(id string, q int) error {
	if q <= 0 {
		return e.RemoveItem(id)
	}
	for i := range e.items {
		if e.items[i].ID == id {
			if err := checkQuantity("quantity", q, MaxLineQuantity); err != nil {
				return err
			}
			if err := e.checkTotal(q - e.items[i].Quantity); err != nil {
				return err
			}
			e.items[i].Quantity = q
			e.touch()
			return nil
		}
	}
	for i := range e.loaves {
		if e.loaves[i].ID == id {
			if err := checkQuantity("quantity", q, MaxLoafQuantity); err != nil {
				return err
			}
			if err := e.checkTotal(q - e.loaves[i].Quantity); err != nil {
				return err
			}
			e.loaves[i].Quantity = q
			e.touch()
			return nil
		}
	}
	return ErrLineNotFound
}

func (e *Engine) RemoveItem(id string) error {
	for i := range e.items {
		if e.items[i].ID == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			e.afterRemove()
			return nil
		}
	}
	for i := range e.loaves {
		if e.loaves[i].ID == id {
			e.loaves = append(e.loaves[:i], e.loaves[i+1:]...)
			e.afterRemove()
			return nil
		}
	}
	return ErrLineNotFound
}

// ClearCart drops every line and the applied promotion.
func (e *Engine) ClearCart() {
	e.items = nil
	e.loaves = nil
	e.promotionID = ""
	e.touch()
}

// ApplyPromotion evaluates id against the cart and keeps it when it grants a
// discount. The returned result says why it did not.
func (e *Engine) ApplyPromotion(ctx context.Context, id string) (promotion.Result, error) {
	if e.ItemCount() == 0 {
		return promotion.Result{PromotionID: id, Reason: ErrEmptyCart.Error()}, ErrEmptyCart
	}
	res := e.evaluate(ctx, id)
	if res.Applied {
		e.promotionID = id
		e.touch()
	}
	return res, nil
}

// RemovePromotion forgets the applied promotion.
func (e *Engine) RemovePromotion() {
	e.promotionID = ""
	e.touch()
}

func (e *Engine) PromotionID() string { return e.promotionID }

func (e *Engine) Items() []LineItem {
	out := make([]LineItem, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Engine) CustomLoaves() []CustomLoafItem {
	out := make([]CustomLoafItem, len(e.loaves))
	copy(out, e.loaves)
	return out
}

// Subtotal sums unit price times quantity over both line kinds.
func (e *Engine) Subtotal() int64 {
	var total int64
	for _, l := range e.items {
		total += l.Total()
	}
	for _, l := range e.loaves {
		total += l.Total()
	}
	return total
}

// TotalItems sums the quantities.
func (e *Engine) TotalItems() int {
	n := 0
	for _, l := range e.items {
		n += l.Quantity
	}
	for _, l := range e.loaves {
		n += l.Quantity
	}
	return n
}

// ItemCount is the number of distinct lines.
func (e *Engine) ItemCount() int { return len(e.items) + len(e.loaves) }

func (e *Engine) LastUpdated() time.Time { return e.lastUpdated }

// Lines lists every line the way the promotion evaluator sees it.
func (e *Engine) Lines() []promotion.Line {
	out := make([]promotion.Line, 0, e.ItemCount())
	for _, l := range e.items {
		out = append(out, promotion.Line{ProductName: l.Cake.Name, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	for _, l := range e.loaves {
		out = append(out, promotion.Line{ProductName: l.Selection.Name(), UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return out
}

// Summary prices the cart: total = max(0, subtotal - discount) + delivery.
func (e *Engine) Summary(ctx context.Context) Summary {
	s := Summary{
		Subtotal:   e.Subtotal(),
		ItemCount:  e.ItemCount(),
		TotalItems: e.TotalItems(),
	}
	s.DeliveryFee = e.delivery.FeeFor(s.Subtotal)
	if e.promotionID != "" {
		res := e.evaluate(ctx, e.promotionID)
		s.Promotion = &res
		s.Discount = res.DiscountAmount
	}
	s.Total = max(0, s.Subtotal-s.Discount) + s.DeliveryFee
	return s
}

func (e *Engine) evaluate(ctx context.Context, id string) promotion.Result {
	if e.discounts == nil {
		return promotion.Result{PromotionID: id, Reason: "promotions are disabled"}
	}
	return e.discounts.Evaluate(ctx, id, e.Lines())
}

func (e *Engine) afterRemove() {
	if e.ItemCount() == 0 {
		e.promotionID = ""
	}
	e.touch()
}

func (e *Engine) touch() { e.lastUpdated = e.now() }

func (e *Engine) checkNewLine() error {
	if e.ItemCount() >= MaxLines {
		return invalid("lines", "a cart holds at most %d lines", MaxLines)
	}
	return nil
}

// checkTotal validates adding delta items to the cart.
func (e *Engine) checkTotal(delta int) error {
	if total := e.TotalItems() + delta; total > MaxTotalItems {
		return invalid("quantity", "a cart holds at most %d items, got %d", MaxTotalItems, total)
	}
	return nil
}

func checkQuantity(field string, q, limit int) error {
	if q < 1 || q > limit {
		return invalid(field, "quantity must be between 1 and %d, got %d", limit, q)
	}
	return nil
}
