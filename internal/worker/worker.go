package worker

import (
	"context"

	"cart-service/internal/broker"
	"cart-service/internal/service"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// FulfillmentWorker consumes CheckoutCompleted events and fulfills paid sessions
type FulfillmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(
	consumer *broker.Consumer,
	fulfillmentService *service.FulfillmentService,
) *FulfillmentWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnCheckoutCompleted(fulfillmentService.HandleFulfillment)

	return &FulfillmentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.Named("fulfillment-worker"),
	}
}

// Start starts the worker
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting fulfillment worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *FulfillmentWorker) Stop() error {
	w.logger.Info("Stopping fulfillment worker")
	return w.consumer.Close()
}
