package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder persists an order and its items in a single transaction.
// With DeductStock set it locks each touched product row, re-validates
// availability, and decrements stock while incrementing the sales
// counter; with ClearCart set it deletes the user's cart lines. Points
// are credited to the owning user. Any failure rolls back the entire
// write phase.
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, opts CreateOrderOptions) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if opts.DeductStock {
		if err := deductStockTx(ctx, tx, items); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO orders (
			user_id, order_number, original_amount, discount_amount, total_amount,
			status, payment_method, delivery_address, delivery_city, delivery_state,
			delivery_pincode, delivery_phone, order_date, order_time, order_day,
			points_earned
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.UserID, order.OrderNumber, order.OriginalAmount, order.DiscountAmount,
		order.TotalAmount, order.Status, order.PaymentMethod, order.DeliveryAddress,
		order.DeliveryCity, order.DeliveryState, order.DeliveryPincode,
		order.DeliveryPhone, order.OrderDate, order.OrderTime, order.OrderDay,
		order.PointsEarned,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (
			order_id, product_id, product_name, quantity, price_at_purchase,
			original_price, discount_percent, size_ordered
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.QueryRowxContext(ctx, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].Quantity, items[i].PriceAtPurchase, items[i].OriginalPrice,
			items[i].DiscountPercent, items[i].SizeOrdered,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if order.PointsEarned > 0 {
		_, err = tx.ExecContext(ctx,
			"UPDATE users SET points = points + $1 WHERE id = $2",
			order.PointsEarned, order.UserID)
		if err != nil {
			return fmt.Errorf("failed to credit points: %w", err)
		}
	}

	if opts.ClearCart {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE user_id = $1", order.UserID)
		if err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
	}

	return tx.Commit()
}

type lockedProduct struct {
	Name     string `db:"name"`
	Stock    int    `db:"stock"`
	IsActive bool   `db:"is_active"`
}

// deductStockTx locks the touched product rows in ascending ID order,
// re-validates availability under the lock, and applies the decrements.
// The ordering keeps concurrent multi-product orders deadlock-free.
func deductStockTx(ctx context.Context, tx *sqlx.Tx, items []models.OrderItem) error {
	required := make(map[int64]int)
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		required[*item.ProductID] += item.Quantity
	}

	ids := make([]int64, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		quantity := required[id]

		var p lockedProduct
		err := tx.GetContext(ctx, &p,
			"SELECT name, stock, is_active FROM products WHERE id = $1 FOR UPDATE", id)
		if errors.Is(err, sql.ErrNoRows) {
			return &models.ProductUnavailableError{ProductID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to lock product %d: %w", id, err)
		}

		if !p.IsActive {
			return &models.ProductUnavailableError{ProductID: id}
		}
		if p.Stock < quantity {
			return &models.InsufficientStockError{
				ProductID:   id,
				ProductName: p.Name,
				Available:   p.Stock,
				Requested:   quantity,
			}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1, sales_count = sales_count + $1, updated_at = NOW() WHERE id = $2",
			quantity, id)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for product %d: %w", id, err)
		}
	}

	return nil
}

// GetOrderByID retrieves an order by ID.
func (s *PostgresStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderForUser retrieves an order scoped to its owner.
func (s *PostgresStore) GetOrderForUser(ctx context.Context, id, userID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByUser retrieves a user's orders, newest first.
func (s *PostgresStore) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// ListOrders retrieves all orders, newest first. Admin view.
func (s *PostgresStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// GetOrderItems retrieves all items for an order.
func (s *PostgresStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus updates the status field of an order, guarded by
// the status the caller observed. No other fields are touched after
// creation. A zero-row update means either the order is gone or a
// concurrent transition got there first; the re-read distinguishes the
// two.
func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		toStatus, orderID, fromStatus)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var current string
		err := s.db.GetContext(ctx, &current,
			"SELECT status FROM orders WHERE id = $1", orderID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return &models.InvalidStatusError{From: current, To: toStatus}
	}
	return nil
}
