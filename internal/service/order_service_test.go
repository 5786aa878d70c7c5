package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func nullDec(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(v), Valid: true}
}

func assertDecEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func newTestStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.SeedUser(models.User{
		ID:            1,
		Email:         "asha@example.com",
		FullName:      "Asha Rao",
		Phone:         "9876543210",
		StreetAddress: "12 Lake View Road",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
	})
	st.SeedProduct(models.Product{
		ID:            10,
		Name:          "Cold Pressed Oil",
		Price:         dec("90"),
		OriginalPrice: nullDec("100"),
		Stock:         10,
		IsActive:      true,
		Size:          "2L",
	})
	st.SeedProduct(models.Product{
		ID:       11,
		Name:     "Raw Honey",
		Price:    dec("50"),
		Stock:    5,
		IsActive: true,
	})
	return st
}

func newTestOrderService(st *store.MemoryStore, notifier OrderNotifier) *OrderService {
	return NewOrderService(st, NewCatalogClient(st, nil), notifier)
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	created       []*models.OrderCreatedEvent
	statusChanged []*models.OrderStatusChangedEvent
	err           error
}

func (n *recordingNotifier) NotifyOrderCreated(_ context.Context, event *models.OrderCreatedEvent) error {
	n.created = append(n.created, event)
	return n.err
}

func (n *recordingNotifier) NotifyOrderStatusChanged(_ context.Context, event *models.OrderStatusChangedEvent) error {
	n.statusChanged = append(n.statusChanged, event)
	return n.err
}

func TestCreateOrderFromCart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	notifier := &recordingNotifier{}
	svc := newTestOrderService(st, notifier)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 10, Quantity: 2}))
	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))

	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	assertDecEqual(t, "250", view.OriginalAmount)
	assertDecEqual(t, "20", view.DiscountAmount)
	assertDecEqual(t, "230", view.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, view.Status)
	assert.True(t, strings.HasPrefix(view.OrderNumber, "ORD"))

	// 2L size on the oil, quantity 2.
	assert.Equal(t, 4, view.PointsEarned)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "Cold Pressed Oil", view.Items[0].ProductName)
	assertDecEqual(t, "90", view.Items[0].PriceAtPurchase)
	assertDecEqual(t, "100", view.Items[0].OriginalPrice)
	assert.Equal(t, 10, view.Items[0].DiscountPercent)
	assertDecEqual(t, "180", view.Items[0].LineTotal)
	assert.Equal(t, "2L", view.Items[0].SizeOrdered)
	assertDecEqual(t, "50", view.Items[1].PriceAtPurchase)
	assert.Equal(t, 0, view.Items[1].DiscountPercent)

	// Stock decremented and sales counted.
	oil, err := st.GetProductByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, oil.Stock)
	assert.Equal(t, 2, oil.SalesCount)

	honey, err := st.GetProductByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 4, honey.Stock)

	// Points credited and cart cleared.
	user, err := st.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, user.Points)

	cart, err := st.GetCartItems(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cart)

	require.Len(t, notifier.created, 1)
	assert.Equal(t, models.EventTypeOrderCreated, notifier.created[0].EventType)
	assert.Equal(t, view.OrderNumber, notifier.created[0].OrderNumber)
	assert.Equal(t, "230", notifier.created[0].TotalAmount)
}

func TestCreateOrderFromCartDeliveryDefaults(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))

	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{
		DeliveryCity: "Mysuru",
	})
	require.NoError(t, err)

	// Request wins where set, profile fills the rest.
	assert.Equal(t, "Mysuru", view.DeliveryCity)
	assert.Equal(t, "12 Lake View Road", view.DeliveryAddress)
	assert.Equal(t, "Karnataka", view.DeliveryState)
	assert.Equal(t, "560001", view.DeliveryPincode)
	assert.Equal(t, "9876543210", view.DeliveryPhone)
	assert.Equal(t, "cod", view.PaymentMethod)
	assert.NotEmpty(t, view.OrderDate)
	assert.NotEmpty(t, view.OrderTime)
	assert.NotEmpty(t, view.OrderDay)
}

func TestCreateOrderFromCartEmptyCart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	_, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})

	var emptyCart *models.EmptyCartError
	require.ErrorAs(t, err, &emptyCart)
	assert.Equal(t, int64(1), emptyCart.UserID)
}

func TestCreateOrderFromCartInsufficientStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 10, Quantity: 2}))
	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 6}))

	_, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(11), insufficient.ProductID)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 6, insufficient.Requested)

	// Nothing committed: stock, points and cart all untouched.
	oil, _ := st.GetProductByID(ctx, 10)
	assert.Equal(t, 10, oil.Stock)
	honey, _ := st.GetProductByID(ctx, 11)
	assert.Equal(t, 5, honey.Stock)

	user, _ := st.GetUserByID(ctx, 1)
	assert.Equal(t, 0, user.Points)

	cart, _ := st.GetCartItems(ctx, 1)
	assert.Len(t, cart, 2)

	orders, _ := st.ListOrdersByUser(ctx, 1)
	assert.Empty(t, orders)
}

func TestCreateOrderFromCartProductDeleted(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	// The product vanished from the catalog after it was carted: the
	// batch read comes back without it.
	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 999, Quantity: 1}))

	_, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})

	var unavailable *models.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int64(999), unavailable.ProductID)
}

func TestCreateOrderFromCartInactiveProduct(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	st.SeedProduct(models.Product{ID: 12, Name: "Retired Ghee", Price: dec("300"), Stock: 3})
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 12, Quantity: 1}))

	_, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})

	var unavailable *models.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int64(12), unavailable.ProductID)
}

func TestCreateOrderFromCartConcurrentScarceStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	st.SeedUser(models.User{ID: 2, Email: "ravi@example.com", FullName: "Ravi Kumar"})
	st.SeedProduct(models.Product{ID: 20, Name: "Last Jar", Price: dec("120"), Stock: 1, IsActive: true})
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 20, Quantity: 1}))
	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 2, ProductID: 20, Quantity: 1}))

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, userID := range []int64{1, 2} {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, results[i] = svc.CreateOrderFromCart(ctx, userID, &CreateOrderRequest{})
		}(i, userID)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var insufficient *models.InsufficientStockError
		assert.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	product, err := st.GetProductByID(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)

	all, err := st.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateOrderDirect(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	productID := int64(10)
	original := dec("100")
	view, err := svc.CreateOrderDirect(ctx, 1, &DirectOrderRequest{
		Items: []DirectOrderItem{
			{
				ProductID:     &productID,
				ProductName:   "Cold Pressed Oil",
				Quantity:      3,
				Price:         dec("90"),
				OriginalPrice: &original,
				SizeOrdered:   "4L",
			},
			{
				ProductName: "Hand-Ground Masala",
				Quantity:    1,
				Price:       dec("75"),
			},
		},
	})
	require.NoError(t, err)

	assertDecEqual(t, "375", view.OriginalAmount)
	assertDecEqual(t, "30", view.DiscountAmount)
	assertDecEqual(t, "345", view.TotalAmount)
	assert.Equal(t, 12, view.PointsEarned)

	require.Len(t, view.Items, 2)
	assert.Nil(t, view.Items[1].ProductID)

	// Direct orders never touch stock.
	oil, err := st.GetProductByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, oil.Stock)

	user, err := st.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, user.Points)
}

func TestCreateOrderDirectRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	for _, quantity := range []int{0, -2} {
		_, err := svc.CreateOrderDirect(ctx, 1, &DirectOrderRequest{
			Items: []DirectOrderItem{
				{ProductName: "Hand-Ground Masala", Quantity: quantity, Price: dec("75"), SizeOrdered: "4L"},
			},
		})

		var invalid *models.InvalidQuantityError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, quantity, invalid.Quantity)
	}

	// No order was written and no points moved.
	orders, err := st.ListOrdersByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, orders)

	user, err := st.GetUserByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, user.Points)
}

func TestCreateOrderDirectEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newTestOrderService(newTestStore(), nil)

	_, err := svc.CreateOrderDirect(ctx, 1, &DirectOrderRequest{})

	var emptyOrder *models.EmptyOrderError
	assert.ErrorAs(t, err, &emptyOrder)
}

func TestCreateOrderNotifierFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	svc := newTestOrderService(st, notifier)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))

	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
}

func TestSetStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	notifier := &recordingNotifier{}
	svc := newTestOrderService(st, notifier)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	for _, status := range []string{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		require.NoError(t, svc.SetStatus(ctx, view.ID, status))
	}

	order, err := st.GetOrderByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)

	// Four transitions, four notifications.
	assert.Len(t, notifier.statusChanged, 4)
	assert.Equal(t, models.OrderStatusPending, notifier.statusChanged[0].OldStatus)
	assert.Equal(t, models.OrderStatusConfirmed, notifier.statusChanged[0].NewStatus)

	// Delivered is terminal.
	err = svc.SetStatus(ctx, view.ID, models.OrderStatusCancelled)
	var invalid *models.InvalidStatusError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderStatusDelivered, invalid.From)
}

func TestSetStatusConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	notifier := &recordingNotifier{}
	svc := newTestOrderService(st, notifier)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)
	notifier.created = nil

	// Two admins race the same transition; the guarded write lets
	// exactly one land.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.SetStatus(ctx, view.ID, models.OrderStatusConfirmed)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var invalid *models.InvalidStatusError
		assert.ErrorAs(t, err, &invalid)
	}
	assert.Equal(t, 1, succeeded)

	order, err := st.GetOrderByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.Len(t, notifier.statusChanged, 1)
}

func TestSetStatusUnknownValue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	err = svc.SetStatus(ctx, view.ID, "teleported")
	var invalid *models.InvalidStatusError
	require.ErrorAs(t, err, &invalid)

	order, err := st.GetOrderByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestSetStatusSkippedStage(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	err = svc.SetStatus(ctx, view.ID, models.OrderStatusShipped)
	var invalid *models.InvalidStatusError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.OrderStatusPending, invalid.From)
	assert.Equal(t, models.OrderStatusShipped, invalid.To)
}

func TestSetStatusCancelKeepsStockAndPoints(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 10, Quantity: 2}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(ctx, view.ID, models.OrderStatusCancelled))

	order, err := st.GetOrderByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	// Cancellation is a status change only.
	oil, _ := st.GetProductByID(ctx, 10)
	assert.Equal(t, 8, oil.Stock)
	user, _ := st.GetUserByID(ctx, 1)
	assert.Equal(t, 4, user.Points)
}

func TestSetStatusOrderNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newTestOrderService(newTestStore(), nil)

	err := svc.SetStatus(ctx, 999, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetOrderScopedToUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	st.SeedUser(models.User{ID: 2, Email: "ravi@example.com", FullName: "Ravi Kumar"})
	svc := newTestOrderService(st, nil)

	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
	view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
	require.NoError(t, err)

	got, err := svc.GetOrder(ctx, view.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, view.OrderNumber, got.OrderNumber)
	require.Len(t, got.Items, 1)

	_, err = svc.GetOrder(ctx, view.ID, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestOrderService(st, nil)

	var ids []int64
	for i := 0; i < 3; i++ {
		require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 11, Quantity: 1}))
		view, err := svc.CreateOrderFromCart(ctx, 1, &CreateOrderRequest{})
		require.NoError(t, err)
		ids = append(ids, view.ID)
	}

	views, err := svc.ListOrders(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, ids[2], views[0].ID)
	assert.Equal(t, ids[0], views[2].ID)
}
