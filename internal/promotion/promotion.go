// Package promotion prices promotional discounts for a cart. Discounts and
// eligibility rules are closed variants; the evaluator never fails a checkout
// and degrades to a zero discount with a reason instead.
package promotion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidPromotion = errors.New("invalid promotion")

var hundred = decimal.NewFromInt(100)

// Discount is either Percentage or FixedAmount.
type Discount interface {
	// amount returns the discount for the eligible subtotal, never more than it.
	amount(eligible int64) int64
	String() string
}

// Percentage takes Rate percent off the eligible subtotal. Rates above 100
// are capped at the eligible subtotal.
type Percentage struct {
	Rate decimal.Decimal
}

func (p Percentage) amount(eligible int64) int64 {
	if eligible <= 0 || !p.Rate.IsPositive() {
		return 0
	}
	// Round rounds half away from zero.
	d := decimal.NewFromInt(eligible).Mul(p.Rate).Div(hundred).Round(0).IntPart()
	return min(d, eligible)
}

func (p Percentage) String() string { return p.Rate.String() + "%" }

// FixedAmount takes Amount off, up to the eligible subtotal.
type FixedAmount struct {
	Amount int64
}

func (f FixedAmount) amount(eligible int64) int64 {
	if eligible <= 0 || f.Amount <= 0 {
		return 0
	}
	return min(f.Amount, eligible)
}

func (f FixedAmount) String() string { return fmt.Sprintf("-%d", f.Amount) }

// Eligibility is either AllProducts or NameAllowlist.
type Eligibility interface {
	Matches(productName string) bool
}

type AllProducts struct{}

func (AllProducts) Matches(string) bool { return true }

// NameAllowlist matches products whose name contains any entry,
// case-insensitively.
type NameAllowlist struct {
	Names []string
}

func (a NameAllowlist) Matches(productName string) bool {
	name := strings.ToLower(productName)
	for _, n := range a.Names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(name, n) {
			return true
		}
	}
	return false
}

// allProductsSentinels are the allowlist entries that mean "everything".
var allProductsSentinels = []string{"all cakes", "all"}

// EligibilityFor builds the eligibility rule for a list of applicable product
// names. An empty list or a sentinel entry applies to every product.
func EligibilityFor(names []string) Eligibility {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		trimmed := strings.TrimSpace(n)
		for _, s := range allProductsSentinels {
			if strings.EqualFold(trimmed, s) {
				return AllProducts{}
			}
		}
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return AllProducts{}
	}
	return NameAllowlist{Names: kept}
}

type Promotion struct {
	ID             string
	Name           string
	Discount       Discount
	Eligibility    Eligibility
	MinOrderAmount int64
	// UsageLimit of 0 means unlimited.
	UsageLimit int
	UsageCount int
	Active     bool
	// Zero StartsAt or EndsAt leaves that side of the window open.
	StartsAt time.Time
	EndsAt   time.Time
}

// unavailable returns why p cannot be used at now, or "".
func (p Promotion) unavailable(now time.Time) string {
	switch {
	case !p.Active:
		return "promotion is not active"
	case !p.StartsAt.IsZero() && now.Before(p.StartsAt):
		return "promotion has not started"
	case !p.EndsAt.IsZero() && !now.Before(p.EndsAt):
		return "promotion has expired"
	case p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit:
		return "promotion usage limit reached"
	}
	return ""
}

// Record is the flat, configuration friendly form of a promotion.
type Record struct {
	ID                     string    `mapstructure:"id" json:"id"`
	Name                   string    `mapstructure:"name" json:"name"`
	Type                   string    `mapstructure:"type" json:"type"`
	Value                  float64   `mapstructure:"value" json:"value"`
	ApplicableProductNames []string  `mapstructure:"applicable_product_names" json:"applicableProductNames"`
	MinOrderAmount         int64     `mapstructure:"min_order_amount" json:"minOrderAmount"`
	UsageLimit             int       `mapstructure:"usage_limit" json:"usageLimit"`
	UsageCount             int       `mapstructure:"usage_count" json:"usageCount"`
	Active                 bool      `mapstructure:"active" json:"active"`
	StartsAt               time.Time `mapstructure:"starts_at" json:"startsAt"`
	EndsAt                 time.Time `mapstructure:"ends_at" json:"endsAt"`
}

// Promotion converts r into its typed form. Type is "percentage" or "fixed"
// in any letter case.
func (r Record) Promotion() (Promotion, error) {
	if strings.TrimSpace(r.ID) == "" {
		return Promotion{}, fmt.Errorf("%w: id is required", ErrInvalidPromotion)
	}
	if r.Value < 0 {
		return Promotion{}, fmt.Errorf("%w: %s: negative value", ErrInvalidPromotion, r.ID)
	}

	var d Discount
	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case "percentage", "percent":
		d = Percentage{Rate: decimal.NewFromFloat(r.Value)}
	case "fixed", "fixedamount", "fixed_amount":
		d = FixedAmount{Amount: decimal.NewFromFloat(r.Value).Round(0).IntPart()}
	default:
		return Promotion{}, fmt.Errorf("%w: %s: unknown discount type %q", ErrInvalidPromotion, r.ID, r.Type)
	}

	return Promotion{
		ID:             r.ID,
		Name:           r.Name,
		Discount:       d,
		Eligibility:    EligibilityFor(r.ApplicableProductNames),
		MinOrderAmount: r.MinOrderAmount,
		UsageLimit:     r.UsageLimit,
		UsageCount:     r.UsageCount,
		Active:         r.Active,
		StartsAt:       r.StartsAt,
		EndsAt:         r.EndsAt,
	}, nil
}
