package cart

import (
	"errors"
	"fmt"
)

const (
	MaxLineQuantity = 10
	MaxLoafQuantity = 5
	MaxLines        = 20
	MaxTotalItems   = 50
)

var (
	ErrLineNotFound = errors.New("cart line not found")
	ErrEmptyCart    = errors.New("cart is empty")
)

// ValidationError rejects a change that would break a cart limit. The cart is
// left as it was.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid cart %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
