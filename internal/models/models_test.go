package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidStatus(t *testing.T) {
	for _, status := range []string{
		OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
	} {
		assert.True(t, IsValidStatus(status), status)
	}
	assert.False(t, IsValidStatus("refunded"))
	assert.False(t, IsValidStatus(""))
	assert.False(t, IsValidStatus("Pending"))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusConfirmed, OrderStatusConfirmed, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestInvalidStatusErrorMessage(t *testing.T) {
	withFrom := &InvalidStatusError{From: OrderStatusDelivered, To: OrderStatusCancelled}
	assert.Contains(t, withFrom.Error(), OrderStatusDelivered)
	assert.Contains(t, withFrom.Error(), OrderStatusCancelled)

	unknownValue := &InvalidStatusError{To: "teleported"}
	assert.Contains(t, unknownValue.Error(), "invalid order status")
}

func TestInvalidQuantityErrorMessage(t *testing.T) {
	named := &InvalidQuantityError{ProductName: "Raw Honey", Quantity: 0}
	assert.Contains(t, named.Error(), "Raw Honey")

	unnamed := &InvalidQuantityError{Quantity: -1}
	assert.Equal(t, "invalid quantity -1", unnamed.Error())
}

func TestStorageFailureErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &StorageFailureError{Err: cause}
	assert.ErrorIs(t, err, cause)
}
