package service

import (
	"context"
	"errors"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// CartService manages the per-user mutable cart. Cart lines are keyed
// by user and product; re-adding a product merges quantities.
type CartService struct {
	store   store.Store
	catalog *CatalogClient
	logger  *zap.Logger
}

// NewCartService creates a new cart service.
func NewCartService(st store.Store, catalog *CatalogClient) *CartService {
	return &CartService{
		store:   st,
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// AddToCartRequest adds a product to the cart, optionally with a
// user-selected size variant.
type AddToCartRequest struct {
	ProductID    int64  `json:"product_id" binding:"required"`
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	SelectedSize string `json:"selected_size,omitempty"`
}

// UpdateCartItemRequest replaces a cart line's quantity.
type UpdateCartItemRequest struct {
	Quantity     int    `json:"quantity" binding:"required,min=1"`
	SelectedSize string `json:"selected_size,omitempty"`
}

// AddToCart adds a product to the user's cart. If the product is
// already in the cart the quantities are summed; the merged quantity is
// validated against current stock.
func (s *CartService) AddToCart(ctx context.Context, userID int64, req *AddToCartRequest) (*CartItemView, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddToCart")
	defer span.End()

	if req.Quantity < 1 {
		return nil, &models.InvalidQuantityError{Quantity: req.Quantity}
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &models.ProductUnavailableError{ProductID: req.ProductID}
	}
	if err != nil {
		return nil, storageErr(err)
	}
	if !product.IsActive {
		return nil, &models.ProductUnavailableError{ProductID: product.ID}
	}

	if product.Stock < req.Quantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   req.Quantity,
		}
	}

	existing, err := s.store.GetCartItemByProduct(ctx, userID, req.ProductID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr(err)
	}

	var item *models.CartItem
	if existing != nil {
		existing.Quantity += req.Quantity
		if req.SelectedSize != "" {
			existing.SelectedSize = req.SelectedSize
		}
		if product.Stock < existing.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   existing.Quantity,
			}
		}
		if err := s.store.UpdateCartItem(ctx, existing); err != nil {
			return nil, storageErr(err)
		}
		item = existing
	} else {
		item = &models.CartItem{
			UserID:       userID,
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			SelectedSize: req.SelectedSize,
		}
		if err := s.store.CreateCartItem(ctx, item); err != nil {
			return nil, storageErr(err)
		}
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Debug("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", req.ProductID),
		zap.Int("quantity", item.Quantity))

	return newCartItemView(item, product), nil
}

// UpdateItem replaces a cart line's quantity, validated against stock.
func (s *CartService) UpdateItem(ctx context.Context, userID, cartItemID int64, req *UpdateCartItemRequest) (*CartItemView, error) {
	if req.Quantity < 1 {
		return nil, &models.InvalidQuantityError{Quantity: req.Quantity}
	}

	item, err := s.store.GetCartItem(ctx, cartItemID, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	product, err := s.catalog.GetProduct(ctx, item.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &models.ProductUnavailableError{ProductID: item.ProductID}
	}
	if err != nil {
		return nil, storageErr(err)
	}

	if product.Stock < req.Quantity {
		return nil, &models.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   req.Quantity,
		}
	}

	item.Quantity = req.Quantity
	if req.SelectedSize != "" {
		item.SelectedSize = req.SelectedSize
	}
	if err := s.store.UpdateCartItem(ctx, item); err != nil {
		return nil, storageErr(err)
	}

	return newCartItemView(item, product), nil
}

// RemoveItem deletes a single cart line.
func (s *CartService) RemoveItem(ctx context.Context, userID, cartItemID int64) error {
	if err := s.store.DeleteCartItem(ctx, cartItemID, userID); err != nil {
		return storageErr(err)
	}
	return nil
}

// Clear deletes all of the user's cart lines.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return storageErr(err)
	}
	return nil
}

// List returns the cart joined with product data and derived values.
func (s *CartService) List(ctx context.Context, userID int64) ([]*CartItemView, error) {
	items, err := s.store.GetCartItems(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	views := make([]*CartItemView, 0, len(items))
	for i := range items {
		product, err := s.catalog.GetProduct(ctx, items[i].ProductID)
		if errors.Is(err, store.ErrNotFound) {
			// Product deleted since it was carted; drop the stale line
			// from the view but keep the stored row for the owner to
			// remove.
			continue
		}
		if err != nil {
			return nil, storageErr(err)
		}
		views = append(views, newCartItemView(&items[i], product))
	}
	return views, nil
}
