package models

import "time"

// Event types pushed to the notification sink
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published after an order commits. Delivery is
// fire-and-forget: a publish failure never rolls back the order.
type OrderCreatedEvent struct {
	BaseEvent
	OrderID      int64  `json:"order_id"`
	OrderNumber  string `json:"order_number"`
	UserID       int64  `json:"user_id"`
	TotalAmount  string `json:"total_amount"`
	ItemCount    int    `json:"item_count"`
	PointsEarned int    `json:"points_earned"`
	Summary      string `json:"summary"`
}

// OrderStatusChangedEvent is published after an admin status transition.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      int64  `json:"user_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	Summary     string `json:"summary"`
}
