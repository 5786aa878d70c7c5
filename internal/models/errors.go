package models

import "fmt"

// EmptyCartError is returned when an order is requested from a cart
// with no lines. No order is created.
type EmptyCartError struct {
	UserID int64
}

func (e *EmptyCartError) Error() string {
	return fmt.Sprintf("cart is empty for user %d", e.UserID)
}

// EmptyOrderError is returned when a direct order carries no items.
type EmptyOrderError struct{}

func (e *EmptyOrderError) Error() string {
	return "no items provided"
}

// ProductUnavailableError names a product that is missing from the
// catalog or marked inactive.
type ProductUnavailableError struct {
	ProductID int64
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %d not available", e.ProductID)
}

// InsufficientStockError names the product whose stock cannot cover the
// requested quantity, along with what remained at the time of the check.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available=%d, requested=%d",
		e.ProductName, e.Available, e.Requested)
}

// InvalidQuantityError rejects an order or cart line whose quantity is
// not a positive integer. HTTP bindings already enforce this; the check
// guards callers that bypass them.
type InvalidQuantityError struct {
	ProductName string
	Quantity    int
}

func (e *InvalidQuantityError) Error() string {
	if e.ProductName == "" {
		return fmt.Sprintf("invalid quantity %d", e.Quantity)
	}
	return fmt.Sprintf("invalid quantity %d for %s", e.Quantity, e.ProductName)
}

// InvalidStatusError is returned when a status transition names a value
// outside the enumerated set, or a transition the state machine forbids.
type InvalidStatusError struct {
	From string
	To   string
}

func (e *InvalidStatusError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("invalid order status: %q", e.To)
	}
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// StorageFailureError wraps any persistence fault during the order write
// phase. The write phase is rolled back as a whole, so callers may
// safely retry the entire operation.
type StorageFailureError struct {
	Err error
}

func (e *StorageFailureError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageFailureError) Unwrap() error {
	return e.Err
}
