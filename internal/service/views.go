package service

import (
	"shop-service/internal/models"
	"shop-service/internal/pricing"

	"github.com/shopspring/decimal"
)

// View models keep persisted entities and derived values structurally
// separate: computed fields live here, never on the stored records.

// CartItemView is one cart line joined with its product and the values
// derived from it.
type CartItemView struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	SelectedSize    string          `json:"selected_size,omitempty"`
	Product         models.Product  `json:"product"`
	DiscountPercent int             `json:"discount_percent"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

func newCartItemView(item *models.CartItem, product *models.Product) *CartItemView {
	return &CartItemView{
		ID:              item.ID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		SelectedSize:    item.SelectedSize,
		Product:         *product,
		DiscountPercent: pricing.DiscountPercent(product.OriginalPrice, product.Price),
		Subtotal:        product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
	}
}

// OrderItemView is a stored order item plus its line total.
type OrderItemView struct {
	models.OrderItem
	LineTotal decimal.Decimal `json:"line_total"`
}

// OrderView is a stored order with its items.
type OrderView struct {
	models.Order
	Items []OrderItemView `json:"items"`
}

func newOrderView(order *models.Order, items []models.OrderItem) *OrderView {
	view := &OrderView{
		Order: *order,
		Items: make([]OrderItemView, len(items)),
	}
	for i, item := range items {
		view.Items[i] = OrderItemView{
			OrderItem: item,
			LineTotal: item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
	}
	return view
}
