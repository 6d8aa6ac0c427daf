package worker

import (
	"context"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageSource is a stream of Kafka messages
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// OrderStatusHandler applies one lifecycle event to an order
type OrderStatusHandler interface {
	HandleOrderStatus(ctx context.Context, event *models.OrderStatusEvent) error
}

// OrderStatusWorker applies payment and fulfillment events from Kafka
type OrderStatusWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewOrderStatusWorker creates a new order status worker
func NewOrderStatusWorker(consumer MessageSource, lifecycle OrderStatusHandler) *OrderStatusWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderStatus(lifecycle.HandleOrderStatus)

	return &OrderStatusWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("order-status-worker"),
	}
}

// Start consumes until ctx is cancelled
func (w *OrderStatusWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order status worker")
	return w.consumer.StartConsuming(ctx, w.handle)
}

// Stop stops the worker
func (w *OrderStatusWorker) Stop() error {
	w.logger.Info("Stopping order status worker")
	return w.consumer.Close()
}

func (w *OrderStatusWorker) handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := util.StartSpan(ctx, "OrderStatusWorker.handle")
	err := w.eventHandler.HandleMessage(ctx, msg)
	util.EndSpan(span, err)
	return err
}
