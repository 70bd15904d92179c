package promotion

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Line is the part of a cart line the evaluator needs.
type Line struct {
	ProductName string
	UnitPrice   int64
	Quantity    int
}

func (l Line) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

// Result is the outcome of one evaluation. Reason explains a zero discount.
type Result struct {
	PromotionID      string `json:"promotionId"`
	DiscountAmount   int64  `json:"discountAmount"`
	EligibleSubtotal int64  `json:"eligibleSubtotal"`
	Applied          bool   `json:"applied"`
	Reason           string `json:"reason,omitempty"`
}

type Evaluator struct {
	store Store
	now   func() time.Time
}

type EvaluatorOption func(*Evaluator)

func WithEvaluatorClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

func NewEvaluator(store Store, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the discount promotionID grants on lines. The minimum
// order amount is checked against the subtotal of all lines; the discount
// itself only covers eligible lines.
func (e *Evaluator) Evaluate(ctx context.Context, promotionID string, lines []Line) Result {
	res := Result{PromotionID: promotionID}
	if promotionID == "" {
		res.Reason = "no promotion applied"
		return res
	}
	if len(lines) == 0 {
		res.Reason = "cart is empty"
		return res
	}

	p, err := e.store.Get(ctx, promotionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Reason = "unknown promotion"
		} else {
			slog.WarnContext(ctx, "promotion lookup failed", "promotion_id", promotionID, "error", err)
			res.Reason = "promotion unavailable"
		}
		return res
	}
	if reason := p.unavailable(e.now()); reason != "" {
		res.Reason = reason
		return res
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.Total()
		if p.Eligibility != nil && p.Eligibility.Matches(l.ProductName) {
			res.EligibleSubtotal += l.Total()
		}
	}

	if subtotal < p.MinOrderAmount {
		res.Reason = "order is below the promotion minimum"
		return res
	}
	if res.EligibleSubtotal == 0 {
		res.Reason = "no eligible products in cart"
		return res
	}
	if p.Discount == nil {
		res.Reason = "promotion has no discount"
		return res
	}

	res.DiscountAmount = p.Discount.amount(res.EligibleSubtotal)
	res.Applied = res.DiscountAmount > 0
	return res
}
