// Package cart holds a shopper's selection of cakes and custom loaves and
// prices it. An Engine is owned by one session and is not safe for concurrent
// use.
package cart

import (
	"slices"
	"strings"
	"time"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

type Decoration struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Customization is what the shopper picked for a cake. Notes and Images are
// free text per line and do not take part in merging.
type Customization struct {
	Size          domain.PriceTier `json:"size"`
	Cream         domain.Cream     `json:"cream"`
	Decorations   []Decoration     `json:"decorations"`
	ContainerType string           `json:"containerType"`
	Notes         string           `json:"notes,omitempty"`
	Images        []string         `json:"images,omitempty"`
}

// UnitPrice is size + cream surcharge + every decoration.
func (c Customization) UnitPrice() int64 {
	total := c.Size.Amount + c.Cream.ExtraCost
	for _, d := range c.Decorations {
		total += d.Price
	}
	return total
}

// sameSelection compares size, cream, container and the decorations as an
// unordered multiset.
func (c Customization) sameSelection(o Customization) bool {
	if c.Size != o.Size || c.Cream != o.Cream || c.ContainerType != o.ContainerType {
		return false
	}
	if len(c.Decorations) != len(o.Decorations) {
		return false
	}
	return slices.Equal(sortedDecorations(c.Decorations), sortedDecorations(o.Decorations))
}

func sortedDecorations(ds []Decoration) []Decoration {
	out := slices.Clone(ds)
	slices.SortFunc(out, func(a, b Decoration) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		switch {
		case a.Price < b.Price:
			return -1
		case a.Price > b.Price:
			return 1
		}
		return 0
	})
	return out
}

type LineItem struct {
	ID            string        `json:"id"`
	Cake          domain.Cake   `json:"cake"`
	Customization Customization `json:"customization"`
	Quantity      int           `json:"quantity"`
	UnitPrice     int64         `json:"unitPrice"`
	AddedAt       time.Time     `json:"addedAt"`
}

func (l LineItem) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

type LoafOption struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// LoafSelection is a build-your-own loaf.
type LoafSelection struct {
	Flavor  LoafOption `json:"flavor"`
	Cream   LoafOption `json:"cream"`
	Topping LoafOption `json:"topping"`
}

func (s LoafSelection) UnitPrice() int64 {
	return s.Flavor.Price + s.Cream.Price + s.Topping.Price
}

// Name is the display name used for promotion matching.
func (s LoafSelection) Name() string {
	parts := make([]string, 0, 3)
	for _, o := range []LoafOption{s.Flavor, s.Cream, s.Topping} {
		if o.Name != "" {
			parts = append(parts, o.Name)
		}
	}
	return "Custom Loaf: " + strings.Join(parts, ", ")
}

type CustomLoafItem struct {
	ID        string        `json:"id"`
	Selection LoafSelection `json:"selection"`
	Quantity  int           `json:"quantity"`
	UnitPrice int64         `json:"unitPrice"`
	AddedAt   time.Time     `json:"addedAt"`
}

func (l CustomLoafItem) Total() int64 { return l.UnitPrice * int64(l.Quantity) }
