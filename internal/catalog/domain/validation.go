package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 2000
)

// ValidationError lists every field problem found in one AdminProduct.
// It is never retried.
type ValidationError struct {
	ProductID string
	Fields    []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("product %s is not shop compatible: %s", e.ProductID, strings.Join(e.Fields, "; "))
}

var surchargeSuffix = regexp.MustCompile(`\(\s*\+\s*(\d+)\s*\)\s*$`)

// ValidateForCatalog reports whether an admin product can be published to the
// shop. Both the full and the single product sync paths use it.
func ValidateForCatalog(p AdminProduct) error {
	var fields []string

	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		fields = append(fields, "name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		fields = append(fields, fmt.Sprintf("name must be at most %d characters", MaxNameLength))
	}

	desc := strings.TrimSpace(p.Description)
	switch {
	case desc == "":
		fields = append(fields, "description is required")
	case utf8.RuneCountInString(desc) > MaxDescriptionLength:
		fields = append(fields, fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}

	if len(nonBlank(p.Images)) == 0 {
		fields = append(fields, "at least one image is required")
	}

	if len(p.Prices) == 0 {
		fields = append(fields, "at least one price tier is required")
	}
	for i, tier := range p.Prices {
		if tier.Amount <= 0 {
			fields = append(fields, fmt.Sprintf("price tier %d must have a positive amount", i))
		}
	}

	creams := nonBlank(p.CreamOptions)
	if len(creams) == 0 && len(nonBlank(p.TinOptions)) == 0 {
		fields = append(fields, "at least one cream or tin option is required")
	}
	if len(creams) > 0 && !hasFreeCream(creams) {
		fields = append(fields, "default cream must not carry a surcharge")
	}

	if !p.IsActive {
		fields = append(fields, "product must be active")
	}

	if len(fields) > 0 {
		return &ValidationError{ProductID: p.ID, Fields: fields}
	}
	return nil
}

func hasFreeCream(options []string) bool {
	for _, opt := range options {
		m := surchargeSuffix.FindStringSubmatch(opt)
		if m == nil {
			return true
		}
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n == 0 {
			return true
		}
	}
	return false
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
