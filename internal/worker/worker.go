// Package worker runs the stock alert consumer: it follows order events and
// raises a low-stock alert when a sold publication drops below the threshold.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-service/internal/broker"
	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockAlertWorker consumes OrderPlaced events and checks the remaining
// stock of every publication they touched.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	publisher    *broker.EventPublisher
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, st *store.Store, publisher *broker.EventPublisher, threshold int) *StockAlertWorker {
	if threshold <= 0 {
		threshold = 5
	}

	w := &StockAlertWorker{
		consumer:  consumer,
		store:     st,
		publisher: publisher,
		threshold: threshold,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	w.eventHandler = eventHandler
	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

// handleOrderPlaced re-reads stock for each line of the order and raises
// alerts. Processing is idempotent per event id, so redelivered messages do
// not alert twice.
func (w *StockAlertWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	for _, line := range event.Lines {
		pub, err := w.store.GetPublicationByID(ctx, line.PublicationID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if pub.StockQuantity < w.threshold {
			w.raiseAlert(ctx, pub)
		}
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *StockAlertWorker) raiseAlert(ctx context.Context, pub *models.Publication) {
	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Low stock",
		zap.Int64("publication_id", pub.ID),
		zap.String("title", pub.Title),
		zap.Int("stock_quantity", pub.StockQuantity))

	if w.publisher == nil {
		return
	}

	alert := &models.LowStockEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeLowStock,
			Timestamp: time.Now(),
		},
		PublicationID: pub.ID,
		Title:         pub.Title,
		StockQuantity: pub.StockQuantity,
		Threshold:     w.threshold,
	}
	if err := w.publisher.PublishLowStock(ctx, alert); err != nil {
		w.logger.Error("Failed to publish LowStock event", zap.Error(err))
	}
}
