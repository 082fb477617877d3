package order

import (
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
)

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrOrderNotFound           = errors.New("order not found")
	ErrTransactionFailure      = errors.New("order could not be placed, please try again")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrStatusConflict          = errors.New("order status was changed by another request")
)

// ProductNotFoundError means a cart line points at a product that no longer
// exists.
type ProductNotFoundError struct {
	ProductID uuid.UUID
	Name      string
}

func (e *ProductNotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("product %s is no longer available", e.ProductID)
	}
	return fmt.Sprintf("product %q is no longer available", e.Name)
}

// InsufficientStockError reports the most that could have been bought of the
// product when the checkout ran.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: only %d available", e.Name, e.Available)
}

// IsBusinessError reports whether err is a checkout rule violation that is
// safe to show to the caller as is.
func IsBusinessError(err error) bool {
	var notFound *ProductNotFoundError
	var noStock *InsufficientStockError
	return errors.Is(err, ErrEmptyCart) || errors.As(err, &notFound) || errors.As(err, &noStock)
}
