package store

import (
	"context"
	"errors"

	"shop-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CreateOrderOptions controls which side effects accompany order
// persistence. Cart orders deduct stock and clear the cart; direct
// orders do neither.
type CreateOrderOptions struct {
	DeductStock bool
	ClearCart   bool
}

// Store is the persistence boundary of the order workflow. CreateOrder
// is the only multi-entity mutation: implementations must apply the
// order, its items, the stock decrements, the points credit and the
// cart clear as one atomic unit, re-validating stock under exclusive
// ownership of the touched product rows. On insufficient stock they
// return *models.InsufficientStockError with nothing committed.
type Store interface {
	// Catalog
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)

	// Users
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// Cart
	GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, id, userID int64) (*models.CartItem, error)
	GetCartItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, id, userID int64) error
	ClearCart(ctx context.Context, userID int64) error

	// Orders
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, opts CreateOrderOptions) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderForUser(ctx context.Context, id, userID int64) (*models.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)

	// UpdateOrderStatus is guarded by the status the caller observed:
	// if another transition landed first, implementations return
	// *models.InvalidStatusError against the current value instead of
	// overwriting it.
	UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) error

	Close() error
}
