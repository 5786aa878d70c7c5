package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/pricing"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderNotifier is the notification sink consumed by the assembler.
// Delivery is fire-and-forget: publish failures are logged and
// swallowed, never surfaced to the order-creating caller.
type OrderNotifier interface {
	NotifyOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	NotifyOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderService assembles orders out of carts: it validates cart lines
// against the catalog, prices them, persists the immutable order record
// with its snapshots, decrements stock, credits points and clears the
// cart as one unit of work.
type OrderService struct {
	store    store.Store
	catalog  *CatalogClient
	notifier OrderNotifier
	logger   *zap.Logger
}

// NewOrderService creates a new order service. The notifier may be nil.
func NewOrderService(st store.Store, catalog *CatalogClient, notifier OrderNotifier) *OrderService {
	return &OrderService{
		store:    st,
		catalog:  catalog,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// CreateOrderRequest carries the delivery snapshot for a new order.
// Fields left empty fall back to the user's profile.
type CreateOrderRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	DeliveryCity    string `json:"delivery_city"`
	DeliveryState   string `json:"delivery_state"`
	DeliveryPincode string `json:"delivery_pincode"`
	DeliveryPhone   string `json:"delivery_phone"`
	PaymentMethod   string `json:"payment_method"`
}

// DirectOrderItem is a caller-supplied line for an order that bypasses
// the cart. The product reference is optional: legacy entries are
// identified only by their snapshotted name.
type DirectOrderItem struct {
	ProductID     *int64           `json:"product_id,omitempty"`
	ProductName   string           `json:"product_name" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required,min=1"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	SizeOrdered   string           `json:"size_ordered,omitempty"`
}

// DirectOrderRequest carries delivery info plus explicit line items.
type DirectOrderRequest struct {
	CreateOrderRequest
	Items []DirectOrderItem `json:"items"`
}

// CreateOrderFromCart converts the user's cart into an immutable order.
// Validation runs before any mutation; the write phase (order, items,
// stock decrements, points credit, cart clear) is atomic. On any
// validation error zero lines are committed and zero stock is touched.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, userID int64, req *CreateOrderRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrderFromCart")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderCreateLatency.Observe(time.Since(start).Seconds())
	}()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	cartItems, err := s.store.GetCartItems(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	if len(cartItems) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, &models.EmptyCartError{UserID: userID}
	}

	// Checkout reads the touched products in one batch, straight from
	// the store: cached stock could be stale here.
	ids := make([]int64, 0, len(cartItems))
	for _, line := range cartItems {
		ids = append(ids, line.ProductID)
	}
	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, storageErr(err)
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	var originalAmount, discountAmount decimal.Decimal
	totalPoints := 0
	items := make([]models.OrderItem, 0, len(cartItems))
	touched := make([]int64, 0, len(cartItems))

	for _, line := range cartItems {
		product, ok := byID[line.ProductID]
		if !ok {
			util.OrdersFailedTotal.WithLabelValues("product_unavailable").Inc()
			return nil, &models.ProductUnavailableError{ProductID: line.ProductID}
		}
		if !product.IsActive {
			util.OrdersFailedTotal.WithLabelValues("product_unavailable").Inc()
			return nil, &models.ProductUnavailableError{ProductID: product.ID}
		}
		if product.Stock < line.Quantity {
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, &models.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			}
		}

		totals := pricing.ComputeLineTotals(product.Price, product.OriginalPrice, line.Quantity)
		originalAmount = originalAmount.Add(totals.Original)
		discountAmount = discountAmount.Add(totals.Discount)

		// The cart line's selected size wins over the product's base size.
		size := line.SelectedSize
		if size == "" {
			size = product.Size
		}
		totalPoints += pricing.PointsForSize(size, line.Quantity)

		unitOriginal := product.Price
		if product.OriginalPrice.Valid {
			unitOriginal = product.OriginalPrice.Decimal
		}

		productID := product.ID
		items = append(items, models.OrderItem{
			ProductID:       &productID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: product.Price,
			OriginalPrice:   unitOriginal,
			DiscountPercent: pricing.DiscountPercent(product.OriginalPrice, product.Price),
			SizeOrdered:     size,
		})
		touched = append(touched, product.ID)
	}

	order := s.newOrder(user, req, originalAmount, discountAmount, totalPoints)

	err = s.store.CreateOrder(ctx, order, items, store.CreateOrderOptions{
		DeductStock: true,
		ClearCart:   true,
	})
	if err != nil {
		return nil, s.createFailed(err)
	}

	util.OrdersCreatedTotal.Inc()
	util.PointsAwardedTotal.Add(float64(totalPoints))
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", userID),
		zap.String("total_amount", order.TotalAmount.String()),
		zap.Int("points_earned", totalPoints))

	s.catalog.Invalidate(ctx, touched)
	s.notifyCreated(ctx, order, len(items))

	return newOrderView(order, items), nil
}

// CreateOrderDirect assembles an order from caller-supplied items,
// bypassing the cart. It does not enforce availability and does not
// touch stock, but follows the same snapshot, points-award and
// atomicity contract.
func (s *OrderService) CreateOrderDirect(ctx context.Context, userID int64, req *DirectOrderRequest) (*OrderView, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrderDirect")
	defer span.End()

	if len(req.Items) == 0 {
		util.OrdersFailedTotal.WithLabelValues("empty_order").Inc()
		return nil, &models.EmptyOrderError{}
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}

	var originalAmount, discountAmount decimal.Decimal
	totalPoints := 0
	items := make([]models.OrderItem, 0, len(req.Items))

	for _, reqItem := range req.Items {
		if reqItem.Quantity < 1 {
			util.OrdersFailedTotal.WithLabelValues("invalid_quantity").Inc()
			return nil, &models.InvalidQuantityError{ProductName: reqItem.ProductName, Quantity: reqItem.Quantity}
		}

		unitOriginal := decimal.NullDecimal{}
		if reqItem.OriginalPrice != nil {
			unitOriginal = decimal.NullDecimal{Decimal: *reqItem.OriginalPrice, Valid: true}
		}

		totals := pricing.ComputeLineTotals(reqItem.Price, unitOriginal, reqItem.Quantity)
		originalAmount = originalAmount.Add(totals.Original)
		discountAmount = discountAmount.Add(totals.Discount)
		totalPoints += pricing.PointsForSize(reqItem.SizeOrdered, reqItem.Quantity)

		snapshotOriginal := reqItem.Price
		if reqItem.OriginalPrice != nil {
			snapshotOriginal = *reqItem.OriginalPrice
		}

		items = append(items, models.OrderItem{
			ProductID:       reqItem.ProductID,
			ProductName:     reqItem.ProductName,
			Quantity:        reqItem.Quantity,
			PriceAtPurchase: reqItem.Price,
			OriginalPrice:   snapshotOriginal,
			DiscountPercent: pricing.DiscountPercent(unitOriginal, reqItem.Price),
			SizeOrdered:     reqItem.SizeOrdered,
		})
	}

	order := s.newOrder(user, &req.CreateOrderRequest, originalAmount, discountAmount, totalPoints)

	err = s.store.CreateOrder(ctx, order, items, store.CreateOrderOptions{})
	if err != nil {
		return nil, s.createFailed(err)
	}

	util.OrdersCreatedTotal.Inc()
	util.PointsAwardedTotal.Add(float64(totalPoints))
	s.logger.Info("Direct order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", userID))

	s.notifyCreated(ctx, order, len(items))

	return newOrderView(order, items), nil
}

// newOrder builds the order record: totals reconciled from the
// accumulated amounts, delivery snapshot from the request with profile
// fallbacks, and the denormalized creation-time display triple.
func (s *OrderService) newOrder(user *models.User, req *CreateOrderRequest, originalAmount, discountAmount decimal.Decimal, points int) *models.Order {
	now := time.Now()

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cod"
	}

	return &models.Order{
		UserID:          user.ID,
		OrderNumber:     generateOrderNumber(now, user.ID),
		OriginalAmount:  originalAmount,
		DiscountAmount:  discountAmount,
		TotalAmount:     originalAmount.Sub(discountAmount),
		Status:          models.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		DeliveryAddress: fallback(req.DeliveryAddress, user.StreetAddress),
		DeliveryCity:    fallback(req.DeliveryCity, user.City),
		DeliveryState:   fallback(req.DeliveryState, user.State),
		DeliveryPincode: fallback(req.DeliveryPincode, user.Pincode),
		DeliveryPhone:   fallback(req.DeliveryPhone, user.Phone),
		OrderDate:       now.Format("02-01-2006"),
		OrderTime:       now.Format("03:04 PM"),
		OrderDay:        now.Weekday().String(),
		PointsEarned:    points,
	}
}

// generateOrderNumber derives the display identifier from the creation
// timestamp at nanosecond resolution and the owning user, so same-user
// orders in the same process tick cannot collide. A unique index on
// order_number backs this up.
func generateOrderNumber(now time.Time, userID int64) string {
	return fmt.Sprintf("ORD%s%09d%d", now.Format("20060102150405"), now.Nanosecond(), userID)
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

// createFailed maps write-phase errors: domain errors from the stock
// re-validation pass through, anything else is an opaque storage
// failure after a full rollback.
func (s *OrderService) createFailed(err error) error {
	var insufficientStock *models.InsufficientStockError
	var unavailable *models.ProductUnavailableError

	switch {
	case errors.As(err, &insufficientStock):
		util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
		return err
	case errors.As(err, &unavailable):
		util.OrdersFailedTotal.WithLabelValues("product_unavailable").Inc()
		return err
	default:
		util.OrdersFailedTotal.WithLabelValues("storage").Inc()
		s.logger.Error("Order write phase failed, rolled back", zap.Error(err))
		return &models.StorageFailureError{Err: err}
	}
}

func (s *OrderService) notifyCreated(ctx context.Context, order *models.Order, itemCount int) {
	if s.notifier == nil {
		return
	}

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now(),
		},
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		TotalAmount:  order.TotalAmount.String(),
		ItemCount:    itemCount,
		PointsEarned: order.PointsEarned,
		Summary: fmt.Sprintf("Order %s placed: %d item(s), total %s",
			order.OrderNumber, itemCount, order.TotalAmount.String()),
	}

	if err := s.notifier.NotifyOrderCreated(ctx, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Inc()
}

// GetOrder retrieves one of the user's orders with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID, userID int64) (*OrderView, error) {
	order, err := s.store.GetOrderForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, storageErr(err)
	}

	return newOrderView(order, items), nil
}

// ListOrders retrieves the user's order history, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]*OrderView, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.ordersToViews(ctx, orders)
}

// ListAllOrders retrieves every order, newest first. Admin view.
func (s *OrderService) ListAllOrders(ctx context.Context) ([]*OrderView, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return s.ordersToViews(ctx, orders)
}

func (s *OrderService) ordersToViews(ctx context.Context, orders []models.Order) ([]*OrderView, error) {
	views := make([]*OrderView, 0, len(orders))
	for i := range orders {
		items, err := s.store.GetOrderItems(ctx, orders[i].ID)
		if err != nil {
			return nil, storageErr(err)
		}
		views = append(views, newOrderView(&orders[i], items))
	}
	return views, nil
}

// storageErr passes ErrNotFound through and wraps everything else.
func storageErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return &models.StorageFailureError{Err: err}
}
