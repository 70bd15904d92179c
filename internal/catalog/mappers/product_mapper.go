package mappers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

// DuplicateFreeCreamSurcharge is charged for every cost-free cream after the
// first one, so the shop never shows two included creams.
const DuplicateFreeCreamSurcharge int64 = 50

var (
	ErrMalformedID    = errors.New("product id has no digits")
	ErrMalformedCream = errors.New("malformed cream option")
)

// TransformError is raised when an admin product cannot be mapped to a cake.
type TransformError struct {
	ProductID string
	Err       error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform product %q: %v", e.ProductID, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

var (
	creamPattern = regexp.MustCompile(`^(.*?)\s*\(\s*\+\s*(\d+)\s*\)\s*$`)
	nonDigits    = regexp.MustCompile(`\D+`)
)

// CakeFromAdmin maps an admin product to its catalog cake. It is pure; the
// caller decides whether inactive products are published at all.
func CakeFromAdmin(p domain.AdminProduct) (domain.Cake, error) {
	id, err := ParseCatalogID(p.ID)
	if err != nil {
		return domain.Cake{}, &TransformError{ProductID: p.ID, Err: err}
	}

	creams, defaultIdx, err := parseCreams(p.CreamOptions)
	if err != nil {
		return domain.Cake{}, &TransformError{ProductID: p.ID, Err: err}
	}

	var image string
	for _, img := range p.Images {
		if strings.TrimSpace(img) != "" {
			image = img
			break
		}
	}

	prices := make([]domain.PriceTier, len(p.Prices))
	copy(prices, p.Prices)

	tins := make([]string, 0, len(p.TinOptions))
	for _, t := range p.TinOptions {
		if t = strings.TrimSpace(t); t != "" {
			tins = append(tins, t)
		}
	}

	return domain.Cake{
		ID:                id,
		SourceID:          p.ID,
		Name:              strings.TrimSpace(p.Name),
		Description:       strings.TrimSpace(p.Description),
		Image:             image,
		Prices:            prices,
		Creams:            creams,
		Tins:              tins,
		DefaultCreamIndex: defaultIdx,
		Featured:          p.IsActive,
	}, nil
}

// CakesFromAdmin maps a batch. Failed items are reported and left out.
func CakesFromAdmin(products []domain.AdminProduct) ([]domain.Cake, []error) {
	cakes := make([]domain.Cake, 0, len(products))
	var errs []error
	for _, p := range products {
		cake, err := CakeFromAdmin(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cakes = append(cakes, cake)
	}
	return cakes, errs
}

// ParseCatalogID drops every non-digit of an admin id ("prod7" -> 7).
func ParseCatalogID(adminID string) (int64, error) {
	digits := nonDigits.ReplaceAllString(adminID, "")
	if digits == "" {
		return 0, ErrMalformedID
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedID, err)
	}
	return id, nil
}

// ParseCream splits "Name (+N)" into its display name and surcharge.
func ParseCream(option string) (domain.Cream, error) {
	option = strings.TrimSpace(option)
	if m := creamPattern.FindStringSubmatch(option); m != nil {
		cost, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return domain.Cream{}, fmt.Errorf("%w %q: %v", ErrMalformedCream, option, err)
		}
		name := strings.TrimSpace(m[1])
		if name == "" {
			return domain.Cream{}, fmt.Errorf("%w %q: empty name", ErrMalformedCream, option)
		}
		return domain.Cream{Name: name, ExtraCost: cost}, nil
	}
	if strings.Contains(option, "(+") {
		return domain.Cream{}, fmt.Errorf("%w %q: unreadable surcharge", ErrMalformedCream, option)
	}
	if option == "" {
		return domain.Cream{}, fmt.Errorf("%w: empty option", ErrMalformedCream)
	}
	return domain.Cream{Name: option}, nil
}

// parseCreams keeps the first free cream as the default and pushes any other
// free cream up to DuplicateFreeCreamSurcharge. Without a free cream the
// first option becomes the included one.
func parseCreams(options []string) ([]domain.Cream, int, error) {
	creams := make([]domain.Cream, 0, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			continue
		}
		c, err := ParseCream(opt)
		if err != nil {
			return nil, -1, err
		}
		creams = append(creams, c)
	}
	if len(creams) == 0 {
		return creams, -1, nil
	}

	defaultIdx := -1
	for i := range creams {
		if creams[i].ExtraCost != 0 {
			continue
		}
		if defaultIdx == -1 {
			defaultIdx = i
			continue
		}
		creams[i].ExtraCost = DuplicateFreeCreamSurcharge
	}
	if defaultIdx == -1 {
		defaultIdx = 0
		creams[0].ExtraCost = 0
	}
	return creams, defaultIdx, nil
}
