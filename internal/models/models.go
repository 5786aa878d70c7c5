package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a customer account. Only the fields the order flow
// needs are mapped here; authentication lives elsewhere.
type User struct {
	ID            int64     `db:"id" json:"id"`
	Email         string    `db:"email" json:"email"`
	FullName      string    `db:"full_name" json:"full_name"`
	Phone         string    `db:"phone" json:"phone"`
	IsAdmin       bool      `db:"is_admin" json:"is_admin"`
	StreetAddress string    `db:"street_address" json:"street_address"`
	City          string    `db:"city" json:"city"`
	State         string    `db:"state" json:"state"`
	Pincode       string    `db:"pincode" json:"pincode"`
	Points        int       `db:"points" json:"points"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Product represents a catalog entry. Stock is mutated only by the
// order assembler (decrement) and admin catalog operations.
type Product struct {
	ID            int64               `db:"id" json:"id"`
	CategoryID    int64               `db:"category_id" json:"category_id"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	OriginalPrice decimal.NullDecimal `db:"original_price" json:"original_price"`
	Stock         int                 `db:"stock" json:"stock"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	Size          string              `db:"size" json:"size"`
	SalesCount    int                 `db:"sales_count" json:"sales_count"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// CartItem is one user/product pairing with a quantity, optionally
// carrying a user-selected size distinct from the product's base size.
// Cart items are transient: they are deleted when an order is created.
type CartItem struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	SelectedSize string    `db:"selected_size" json:"selected_size,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Order is immutable after creation except for Status and UpdatedAt.
// The delivery fields and the date/time/day triple are snapshots taken
// at creation time. TotalAmount is always OriginalAmount minus
// DiscountAmount; the three are never recomputed from live prices.
type Order struct {
	ID              int64           `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	OrderNumber     string          `db:"order_number" json:"order_number"`
	OriginalAmount  decimal.Decimal `db:"original_amount" json:"original_amount"`
	DiscountAmount  decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status          string          `db:"status" json:"status"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	DeliveryAddress string          `db:"delivery_address" json:"delivery_address"`
	DeliveryCity    string          `db:"delivery_city" json:"delivery_city"`
	DeliveryState   string          `db:"delivery_state" json:"delivery_state"`
	DeliveryPincode string          `db:"delivery_pincode" json:"delivery_pincode"`
	DeliveryPhone   string          `db:"delivery_phone" json:"delivery_phone"`
	OrderDate       string          `db:"order_date" json:"order_date"`
	OrderTime       string          `db:"order_time" json:"order_time"`
	OrderDay        string          `db:"order_day" json:"order_day"`
	PointsEarned    int             `db:"points_earned" json:"points_earned"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderItem is an immutable line of an order. Name, prices, discount
// percent and size are snapshots copied from the product at order time
// and permanently decoupled from later catalog changes. ProductID is
// nullable so an item can outlive its product.
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	ProductID       *int64          `db:"product_id" json:"product_id,omitempty"`
	ProductName     string          `db:"product_name" json:"product_name"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"price_at_purchase"`
	OriginalPrice   decimal.Decimal `db:"original_price" json:"original_price"`
	DiscountPercent int             `db:"discount_percent" json:"discount_percent"`
	SizeOrdered     string          `db:"size_ordered" json:"size_ordered,omitempty"`
}

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// statusTransitions enumerates the forward chain plus cancellation from
// any non-terminal state. Delivered and cancelled are terminal.
var statusTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// IsValidStatus reports whether s is one of the enumerated order statuses.
func IsValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to
// another. Self-transitions are not allowed.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
