package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// EventHandler decodes inbound lifecycle events and hands them to the
// registered callback
type EventHandler struct {
	onOrderStatus func(context.Context, *models.OrderStatusEvent) error
	logger        *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Named("event-handler")}
}

// OnOrderStatus registers a handler for payment and fulfillment events
func (eh *EventHandler) OnOrderStatus(handler func(context.Context, *models.OrderStatusEvent) error) {
	eh.onOrderStatus = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	if _, ok := models.TargetStatus(baseEvent.EventType); !ok {
		eh.logger.Info("Unhandled event type", zap.String("event_type", baseEvent.EventType))
		return nil
	}
	if eh.onOrderStatus == nil {
		return nil
	}

	var event models.OrderStatusEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
	}
	return eh.onOrderStatus(ctx, &event)
}
