package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SetStatus moves an order through its lifecycle:
// pending -> confirmed -> processing -> shipped -> delivered, with
// cancellation allowed from any non-terminal state. A status outside
// the enumerated set, or a transition the machine forbids, fails with
// InvalidStatusError and leaves the order untouched.
//
// The transition is a single-field update: stock and points were
// finalized at creation time and cancellation does not reverse them.
func (s *OrderService) SetStatus(ctx context.Context, orderID int64, newStatus string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.SetStatus")
	defer span.End()

	if !models.IsValidStatus(newStatus) {
		return &models.InvalidStatusError{To: newStatus}
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return storageErr(err)
	}

	if !models.CanTransition(order.Status, newStatus) {
		return &models.InvalidStatusError{From: order.Status, To: newStatus}
	}

	// The write re-checks the observed status, so a racing transition
	// cannot be silently overwritten.
	if err := s.store.UpdateOrderStatus(ctx, orderID, order.Status, newStatus); err != nil {
		var invalid *models.InvalidStatusError
		if errors.As(err, &invalid) {
			return err
		}
		return storageErr(err)
	}

	util.StatusTransitionsTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", newStatus))

	s.notifyStatusChanged(ctx, order, newStatus)
	return nil
}

func (s *OrderService) notifyStatusChanged(ctx context.Context, order *models.Order, newStatus string) {
	if s.notifier == nil {
		return
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		OldStatus:   order.Status,
		NewStatus:   newStatus,
		Summary:     fmt.Sprintf("Order %s is now %s", order.OrderNumber, newStatus),
	}

	if err := s.notifier.NotifyOrderStatusChanged(ctx, event); err != nil {
		util.NotificationsFailedTotal.Inc()
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		return
	}
	util.NotificationsPublishedTotal.Inc()
}
