package service

import (
	"context"
	"testing"

	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCartService(st *store.MemoryStore) *CartService {
	return NewCartService(st, NewCatalogClient(st, nil))
}

func TestAddToCart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	view, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 10, Quantity: 2, SelectedSize: "5L"})
	require.NoError(t, err)

	assert.Equal(t, int64(10), view.ProductID)
	assert.Equal(t, 2, view.Quantity)
	assert.Equal(t, "5L", view.SelectedSize)
	assert.Equal(t, 10, view.DiscountPercent)
	assertDecEqual(t, "180", view.Subtotal)
}

func TestAddToCartMergesQuantities(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	first, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 10, Quantity: 2})
	require.NoError(t, err)

	merged, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 10, Quantity: 3, SelectedSize: "2L"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 5, merged.Quantity)
	assert.Equal(t, "2L", merged.SelectedSize)

	items, err := st.GetCartItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddToCartMergedQuantityExceedsStock(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 4})
	require.NoError(t, err)

	_, err = svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 2})
	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
	assert.Equal(t, 6, insufficient.Requested)

	// The stored line keeps its pre-merge quantity.
	items, err := st.GetCartItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
}

func TestCartRejectsNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 0})
	var invalid *models.InvalidQuantityError
	require.ErrorAs(t, err, &invalid)

	view, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, 1, view.ID, &UpdateCartItemRequest{Quantity: -1})
	require.ErrorAs(t, err, &invalid)

	items, err := st.GetCartItems(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestCartService(newTestStore())

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 999, Quantity: 1})
	var unavailable *models.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, int64(999), unavailable.ProductID)
}

func TestAddToCartInactiveProduct(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	st.SeedProduct(models.Product{ID: 12, Name: "Retired Ghee", Price: dec("300"), Stock: 3})
	svc := newTestCartService(st)

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 12, Quantity: 1})
	var unavailable *models.ProductUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestUpdateCartItem(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	view, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 1})
	require.NoError(t, err)

	updated, err := svc.UpdateItem(ctx, 1, view.ID, &UpdateCartItemRequest{Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Quantity)
	assertDecEqual(t, "150", updated.Subtotal)

	_, err = svc.UpdateItem(ctx, 1, view.ID, &UpdateCartItemRequest{Quantity: 9})
	var insufficient *models.InsufficientStockError
	assert.ErrorAs(t, err, &insufficient)
}

func TestUpdateCartItemWrongUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	st.SeedUser(models.User{ID: 2, Email: "ravi@example.com", FullName: "Ravi Kumar"})
	svc := newTestCartService(st)

	view, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, 2, view.ID, &UpdateCartItemRequest{Quantity: 2})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveCartItem(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	view, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, 1, view.ID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, 1, view.ID), store.ErrNotFound)
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 10, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 1))

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListCartDropsStaleLines(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	svc := newTestCartService(st)

	_, err := svc.AddToCart(ctx, 1, &AddToCartRequest{ProductID: 11, Quantity: 2})
	require.NoError(t, err)

	// A line whose product has since disappeared from the catalog.
	require.NoError(t, st.CreateCartItem(ctx, &models.CartItem{UserID: 1, ProductID: 999, Quantity: 1}))

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, int64(11), views[0].ProductID)
	assertDecEqual(t, "100", views[0].Subtotal)
}
