package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var transitions = map[string][]string{
	models.OrderStatusPending:    {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:       {models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusRefunded},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusRefunded},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusRefunded},
	models.OrderStatusDelivered:  {models.OrderStatusRefunded},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// LifecycleStore is the persistence the lifecycle manager needs
type LifecycleStore interface {
	UpdateOrderStatusTx(ctx context.Context, orderNumber, target string, check func(from, to string) error) (string, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StatusChangePublisher announces applied status transitions
type StatusChangePublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderLifecycle applies payment and fulfillment events to orders
type OrderLifecycle struct {
	store          LifecycleStore
	eventPublisher StatusChangePublisher
	logger         *zap.Logger
}

// NewOrderLifecycle creates a new lifecycle manager. eventPublisher may be nil.
func NewOrderLifecycle(store LifecycleStore, eventPublisher StatusChangePublisher) *OrderLifecycle {
	return &OrderLifecycle{
		store:          store,
		eventPublisher: eventPublisher,
		logger:         util.Named("order-lifecycle"),
	}
}

// TransitionOrder moves an order to target if the lifecycle allows it and
// returns the previous status
func (ol *OrderLifecycle) TransitionOrder(ctx context.Context, orderNumber, target string) (string, error) {
	from, err := ol.store.UpdateOrderStatusTx(ctx, orderNumber, target, checkTransition)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(from, target).Inc()
	ol.logger.Info("Order status changed",
		zap.String("order_number", orderNumber),
		zap.String("from", from),
		zap.String("to", target))

	if ol.eventPublisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderNumber: orderNumber,
			From:        from,
			To:          target,
		}
		if err := ol.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
			ol.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return from, nil
}

// HandleOrderStatus applies an inbound lifecycle event exactly once. Events
// that can never apply (unknown order, illegal transition) are recorded as
// processed so the consumer does not retry them forever.
func (ol *OrderLifecycle) HandleOrderStatus(ctx context.Context, event *models.OrderStatusEvent) (err error) {
	ctx, span := util.StartSpan(ctx, "OrderLifecycle.HandleOrderStatus",
		attribute.String("event_type", event.EventType),
		attribute.String("order_number", event.OrderNumber))
	defer func() { util.EndSpan(span, err) }()

	target, ok := models.TargetStatus(event.EventType)
	if !ok {
		return nil
	}

	processed, err := ol.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		ol.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	_, err = ol.TransitionOrder(ctx, event.OrderNumber, target)
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrInvalidTransition):
		ol.logger.Warn("Discarding order status event",
			zap.String("event_id", event.EventID),
			zap.String("event_type", event.EventType),
			zap.String("order_number", event.OrderNumber),
			zap.String("reason", event.Reason),
			zap.Error(err))
	case err != nil:
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if err := ol.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		ol.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
