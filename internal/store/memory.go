package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"shop-service/internal/models"
)

// MemoryStore implements Store with in-memory maps guarded by a single
// mutex. The mutex gives CreateOrder the same all-or-nothing semantics
// the Postgres transaction provides: validation and mutation happen
// under one critical section, so concurrent orders for the same scarce
// product serialize and the loser observes the updated stock.
//
// Used by tests and as a storage backend for local development.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[int64]*models.User
	products  map[int64]*models.Product
	cartItems map[int64]*models.CartItem
	orders    map[int64]*models.Order
	items     map[int64][]models.OrderItem // orderID -> items

	nextCartItemID  int64
	nextOrderID     int64
	nextOrderItemID int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]*models.User),
		products:  make(map[int64]*models.Product),
		cartItems: make(map[int64]*models.CartItem),
		orders:    make(map[int64]*models.Order),
		items:     make(map[int64][]models.OrderItem),
	}
}

// SeedUser inserts or replaces a user.
func (s *MemoryStore) SeedUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = &user
}

// SeedProduct inserts or replaces a product.
func (s *MemoryStore) SeedProduct(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = &product
}

func (s *MemoryStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := *product
	return &p, nil
}

func (s *MemoryStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result = append(result, *product)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Product, 0, len(s.products))
	for _, product := range s.products {
		result = append(result, *product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) GetCartItems(ctx context.Context, userID int64) ([]models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.CartItem
	for _, item := range s.cartItems {
		if item.UserID == userID {
			result = append(result, *item)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *MemoryStore) GetCartItem(ctx context.Context, id, userID int64) (*models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.cartItems[id]
	if !ok || item.UserID != userID {
		return nil, ErrNotFound
	}
	ci := *item
	return &ci, nil
}

func (s *MemoryStore) GetCartItemByProduct(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.cartItems {
		if item.UserID == userID && item.ProductID == productID {
			ci := *item
			return &ci, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCartItemID++
	item.ID = s.nextCartItemID
	item.CreatedAt = time.Now()

	stored := *item
	s.cartItems[item.ID] = &stored
	return nil
}

func (s *MemoryStore) UpdateCartItem(ctx context.Context, item *models.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.cartItems[item.ID]
	if !ok || existing.UserID != item.UserID {
		return ErrNotFound
	}
	existing.Quantity = item.Quantity
	existing.SelectedSize = item.SelectedSize
	return nil
}

func (s *MemoryStore) DeleteCartItem(ctx context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.cartItems[id]
	if !ok || item.UserID != userID {
		return ErrNotFound
	}
	delete(s.cartItems, id)
	return nil
}

func (s *MemoryStore) ClearCart(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearCartLocked(userID)
	return nil
}

func (s *MemoryStore) clearCartLocked(userID int64) {
	for id, item := range s.cartItems {
		if item.UserID == userID {
			delete(s.cartItems, id)
		}
	}
}

// CreateOrder applies the whole write phase under the store mutex.
// Validation runs first; nothing is mutated unless every touched
// product can cover its quantity.
func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem, opts CreateOrderOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.DeductStock {
		required := make(map[int64]int)
		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			required[*item.ProductID] += item.Quantity
		}

		// First pass: validate everything before touching anything.
		for id, quantity := range required {
			product, ok := s.products[id]
			if !ok || !product.IsActive {
				return &models.ProductUnavailableError{ProductID: id}
			}
			if product.Stock < quantity {
				return &models.InsufficientStockError{
					ProductID:   id,
					ProductName: product.Name,
					Available:   product.Stock,
					Requested:   quantity,
				}
			}
		}

		// Second pass: apply the decrements.
		for id, quantity := range required {
			s.products[id].Stock -= quantity
			s.products[id].SalesCount += quantity
		}
	}

	now := time.Now()
	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	s.orders[order.ID] = &stored

	storedItems := make([]models.OrderItem, len(items))
	for i := range items {
		s.nextOrderItemID++
		items[i].ID = s.nextOrderItemID
		items[i].OrderID = order.ID
		storedItems[i] = items[i]
	}
	s.items[order.ID] = storedItems

	if order.PointsEarned > 0 {
		if user, ok := s.users[order.UserID]; ok {
			user.Points += order.PointsEarned
		}
	}

	if opts.ClearCart {
		s.clearCartLocked(order.UserID)
	}

	return nil
}

func (s *MemoryStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o := *order
	return &o, nil
}

func (s *MemoryStore) GetOrderForUser(ctx context.Context, id, userID int64) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok || order.UserID != userID {
		return nil, ErrNotFound
	}
	o := *order
	return &o, nil
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			result = append(result, *order)
		}
	}
	sortOrdersNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		result = append(result, *order)
	}
	sortOrdersNewestFirst(result)
	return result, nil
}

func sortOrdersNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func (s *MemoryStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[orderID]
	result := make([]models.OrderItem, len(items))
	copy(result, items)
	return result, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, orderID int64, fromStatus, toStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if order.Status != fromStatus {
		return &models.InvalidStatusError{From: order.Status, To: toStatus}
	}
	order.Status = toStatus
	order.UpdatedAt = time.Now()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
