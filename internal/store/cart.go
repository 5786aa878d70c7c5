package store

import (
	"context"
	"database/sql"
	"errors"

	"shop-service/internal/models"
)

// GetCartItems retrieves all cart lines for a user, oldest first.
func (s *PostgresStore) GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	var items []models.CartItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM cart_items WHERE user_id = $1 ORDER BY created_at", userID)
	return items, err
}

// GetCartItem retrieves one cart line, scoped to its owner.
func (s *PostgresStore) GetCartItem(ctx context.Context, id, userID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE id = $1 AND user_id = $2", id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetCartItemByProduct retrieves the user's cart line for a product, if
// any. Used for quantity merging on repeated add-to-cart.
func (s *PostgresStore) GetCartItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT * FROM cart_items WHERE user_id = $1 AND product_id = $2", userID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateCartItem inserts a new cart line.
func (s *PostgresStore) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, selected_size)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, item, query,
		item.UserID, item.ProductID, item.Quantity, item.SelectedSize)
}

// UpdateCartItem updates quantity and selected size of a cart line.
func (s *PostgresStore) UpdateCartItem(ctx context.Context, item *models.CartItem) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, selected_size = $2 WHERE id = $3 AND user_id = $4",
		item.Quantity, item.SelectedSize, item.ID, item.UserID)
	return err
}

// DeleteCartItem removes a single cart line, scoped to its owner.
func (s *PostgresStore) DeleteCartItem(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCart removes all of the user's cart lines.
func (s *PostgresStore) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID)
	return err
}
