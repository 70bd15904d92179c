// Package domain holds the two representations of a bakery product: the
// record edited by staff in the admin panel and the read-optimized cake the
// shop renders. Cakes are derived from admin products on every sync and are
// never edited by hand.
package domain

import "time"

// PriceTier is one purchasable size of a product.
type PriceTier struct {
	WeightLabel string `json:"weightLabel"`
	Amount      int64  `json:"amount"`
	Servings    int    `json:"servings"`
}

// AdminProduct is the product as the admin editing workflow stores it.
// Cream options are free text of the form "Name" or "Name (+cost)".
type AdminProduct struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Images       []string    `json:"images"`
	Prices       []PriceTier `json:"prices"`
	CreamOptions []string    `json:"creamOptions"`
	TinOptions   []string    `json:"tinOptions"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Cream is a parsed cream option. Exactly one cream of a Cake is free.
type Cream struct {
	Name      string `json:"name"`
	ExtraCost int64  `json:"extraCost"`
}

// Cake is the shop catalog representation of an active AdminProduct.
type Cake struct {
	ID                int64       `json:"id"`
	SourceID          string      `json:"sourceId"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Image             string      `json:"image"`
	Prices            []PriceTier `json:"prices"`
	Creams            []Cream     `json:"creams"`
	Tins              []string    `json:"tins"`
	DefaultCreamIndex int         `json:"defaultCreamIndex"`
	Featured          bool        `json:"featured"`
}

// DefaultCream returns the included cream.
func (c Cake) DefaultCream() (Cream, bool) {
	if c.DefaultCreamIndex < 0 || c.DefaultCreamIndex >= len(c.Creams) {
		return Cream{}, false
	}
	return c.Creams[c.DefaultCreamIndex], true
}

// PriceFor returns the tier with the given weight label.
func (c Cake) PriceFor(weightLabel string) (PriceTier, bool) {
	for _, p := range c.Prices {
		if p.WeightLabel == weightLabel {
			return p, true
		}
	}
	return PriceTier{}, false
}

// CreamByName returns the cream with the given display name.
func (c Cake) CreamByName(name string) (Cream, bool) {
	for _, cr := range c.Creams {
		if cr.Name == name {
			return cr, true
		}
	}
	return Cream{}, false
}
