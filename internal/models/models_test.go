package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_ValueAndScan(t *testing.T) {
	raw, err := Attributes{"size": "M", "color": "red"}.Value()
	require.NoError(t, err)

	var got Attributes
	require.NoError(t, got.Scan(raw))
	assert.Equal(t, Attributes{"size": "M", "color": "red"}, got)

	require.NoError(t, got.Scan(`{"fit":"slim"}`))
	assert.Equal(t, Attributes{"fit": "slim"}, got)

	require.NoError(t, got.Scan(nil))
	assert.Equal(t, Attributes{}, got)

	assert.Error(t, got.Scan(42))
	assert.Error(t, got.Scan([]byte("not json")))
}

func TestAttributes_NilValue(t *testing.T) {
	var a Attributes
	raw, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), raw)
}

func TestAttributes_Clone(t *testing.T) {
	orig := Attributes{"size": "M"}
	clone := orig.Clone()
	clone["size"] = "XL"

	assert.Equal(t, "M", orig["size"])
	assert.NotNil(t, Attributes(nil).Clone())
}

func TestOrderItem_ResolveTotal(t *testing.T) {
	item := OrderItem{UnitPrice: decimal.RequireFromString("19.99"), Quantity: 3}
	item.ResolveTotal()
	assert.Equal(t, "59.97", item.TotalPrice.StringFixed(2))

	explicit := OrderItem{
		UnitPrice:  decimal.RequireFromString("10"),
		Quantity:   2,
		TotalPrice: decimal.RequireFromString("15"),
	}
	explicit.ResolveTotal()
	assert.Equal(t, "15", explicit.TotalPrice.String())
}

func TestCartLine_LineTotal(t *testing.T) {
	line := CartLine{Price: decimal.RequireFromString("2.50"), Quantity: 4}
	assert.Equal(t, "10.00", line.LineTotal().StringFixed(2))
}

func TestTargetStatus(t *testing.T) {
	cases := map[string]string{
		EventTypePaymentSucceeded: OrderStatusPaid,
		EventTypePaymentFailed:    OrderStatusCancelled,
		EventTypeOrderCancelled:   OrderStatusCancelled,
		EventTypeOrderProcessing:  OrderStatusProcessing,
		EventTypeOrderShipped:     OrderStatusShipped,
		EventTypeOrderDelivered:   OrderStatusDelivered,
		EventTypeOrderRefunded:    OrderStatusRefunded,
	}
	for eventType, want := range cases {
		got, ok := TargetStatus(eventType)
		assert.True(t, ok, eventType)
		assert.Equal(t, want, got, eventType)
	}

	_, ok := TargetStatus(EventTypeOrderPlaced)
	assert.False(t, ok)
}
