package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"

	// Published by payment and fulfillment collaborators
	EventTypePaymentSucceeded = "PAYMENT_SUCCEEDED"
	EventTypePaymentFailed    = "PAYMENT_FAILED"
	EventTypeOrderProcessing  = "ORDER_PROCESSING"
	EventTypeOrderShipped     = "ORDER_SHIPPED"
	EventTypeOrderDelivered   = "ORDER_DELIVERED"
	EventTypeOrderRefunded    = "ORDER_REFUNDED"
	EventTypeOrderCancelled   = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderStatusEvent is an inbound request to move an order along its lifecycle
type OrderStatusEvent struct {
	BaseEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason,omitempty"`
	TxID        string `json:"tx_id,omitempty"`
}

// OrderStatusChangedEvent published after a lifecycle transition is applied
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// TargetStatus maps an inbound lifecycle event to the order status it requests
func TargetStatus(eventType string) (string, bool) {
	switch eventType {
	case EventTypePaymentSucceeded:
		return OrderStatusPaid, true
	case EventTypePaymentFailed, EventTypeOrderCancelled:
		return OrderStatusCancelled, true
	case EventTypeOrderProcessing:
		return OrderStatusProcessing, true
	case EventTypeOrderShipped:
		return OrderStatusShipped, true
	case EventTypeOrderDelivered:
		return OrderStatusDelivered, true
	case EventTypeOrderRefunded:
		return OrderStatusRefunded, true
	}
	return "", false
}
