package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService *service.OrderService
	cartService  *service.CartService
	store        store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, cartService *service.CartService, st store.Store) *Handler {
	return &Handler{
		orderService: orderService,
		cartService:  cartService,
		store:        st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Catalog browsing needs no identity.
	router.GET("/api/products", h.listProducts)

	authed := router.Group("/api", h.currentUser)
	{
		authed.GET("/cart", h.listCart)
		authed.POST("/cart", h.addToCart)
		authed.PUT("/cart/:id", h.updateCartItem)
		authed.DELETE("/cart/:id", h.removeCartItem)
		authed.DELETE("/cart", h.clearCart)

		authed.POST("/orders", h.createOrder)
		authed.POST("/orders/direct", h.createOrderDirect)
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
	}

	admin := router.Group("/api/admin", h.currentUser, h.requireAdmin)
	{
		admin.GET("/orders", h.listAllOrders)
		admin.PUT("/orders/:id/status", h.updateOrderStatus)
	}
}

// currentUser resolves the authenticated identity. Token verification
// happens upstream; this service receives the user id in a trusted
// header and loads the account behind it.
func (h *Handler) currentUser(c *gin.Context) {
	userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	c.Set("user", user)
	c.Next()
}

func (h *Handler) requireAdmin(c *gin.Context) {
	if !mustUser(c).IsAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}

func mustUser(c *gin.Context) *models.User {
	return c.MustGet("user").(*models.User)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) listCart(c *gin.Context) {
	views, err := h.cartService.List(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) addToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.cartService.AddToCart(c.Request.Context(), mustUser(c).ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	var req service.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.cartService.UpdateItem(c.Request.Context(), mustUser(c).ID, itemID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), mustUser(c).ID, itemID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), mustUser(c).ID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

// createOrder handles cart checkout
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.orderService.CreateOrderFromCart(c.Request.Context(), mustUser(c).ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// createOrderDirect handles checkout with caller-supplied items
func (h *Handler) createOrderDirect(c *gin.Context) {
	var req service.DirectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	view, err := h.orderService.CreateOrderDirect(c.Request.Context(), mustUser(c).ID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) listOrders(c *gin.Context) {
	views, err := h.orderService.ListOrders(c.Request.Context(), mustUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	view, err := h.orderService.GetOrder(c.Request.Context(), orderID, mustUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) listAllOrders(c *gin.Context) {
	views, err := h.orderService.ListAllOrders(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.orderService.SetStatus(c.Request.Context(), orderID, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order status updated to " + req.Status})
}

// writeError maps domain errors to HTTP responses. Each carries the
// error kind and the offending entity; storage internals never leak.
func writeError(c *gin.Context, err error) {
	var emptyCart *models.EmptyCartError
	var emptyOrder *models.EmptyOrderError
	var unavailable *models.ProductUnavailableError
	var insufficientStock *models.InsufficientStockError
	var invalidQuantity *models.InvalidQuantityError
	var invalidStatus *models.InvalidStatusError
	var storageFailure *models.StorageFailureError

	switch {
	case errors.As(err, &emptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.As(err, &emptyOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
	case errors.As(err, &invalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidQuantity.Error()})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Product not available",
			"product_id": unavailable.ProductID,
		})
	case errors.As(err, &insufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "Insufficient stock for " + insufficientStock.ProductName,
			"product_id": insufficientStock.ProductID,
			"available":  insufficientStock.Available,
		})
	case errors.As(err, &invalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": invalidStatus.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &storageFailure):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Temporary storage failure, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
