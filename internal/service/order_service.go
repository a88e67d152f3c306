package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"library-service/internal/cart"
	"library-service/internal/models"
	"library-service/internal/session"
	"library-service/internal/store"
	"library-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderEventPublisher publishes order lifecycle events. Publishing is best
// effort and never changes a checkout's outcome.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// OrderService implements the order placement workflow and order queries.
type OrderService struct {
	checkout  store.CheckoutStore
	store     *store.Store
	publisher OrderEventPublisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewOrderService creates a new order service. st may be nil when only the
// checkout path is exercised; publisher may be nil to disable events.
func NewOrderService(checkout store.CheckoutStore, st *store.Store, publisher OrderEventPublisher, timeout time.Duration) *OrderService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderService{
		checkout:  checkout,
		store:     st,
		publisher: publisher,
		timeout:   timeout,
		logger:    util.GetLogger(),
	}
}

// Checkout converts the session's cart into a persisted order.
//
// The whole operation runs in one transaction: stock is re-read under row
// locks (the cart's advisory check does not protect this step), the order
// and its lines are inserted, and each publication's stock is decremented.
// Order creation, line creation and stock decrement are never partially
// visible. On success the cart is cleared; on any failure it is left
// untouched so the user can retry.
func (s *OrderService) Checkout(ctx context.Context, sess *session.Session, paymentMethod, shippingAddress string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if sess == nil || sess.User == nil {
		util.CheckoutsFailedTotal.WithLabelValues("unauthenticated").Inc()
		return nil, models.ErrUnauthenticated
	}
	if sess.Cart.IsEmpty() {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, models.ErrEmptyCart
	}

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	// Bounded: a checkout that cannot acquire its locks in time fails
	// instead of blocking indefinitely.
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	lines := sess.Cart.Lines()
	order, err := s.placeOrder(ctx, sess.User, lines, sess.Cart.Total(), paymentMethod, shippingAddress)
	if err != nil {
		s.countFailure(err)
		return nil, err
	}

	sess.Cart.Clear()
	util.CheckoutsTotal.Inc()
	s.logger.Info("Order placed",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", order.UserID),
		zap.Int64("total_amount", order.TotalAmount))

	s.publishOrderPlaced(ctx, order, lines)
	return order, nil
}

// placeOrder runs the transactional part of checkout. On any error the
// transaction is rolled back in full: no order, no lines, no stock change.
func (s *OrderService) placeOrder(ctx context.Context, user *models.User, lines []cart.Line, total int64, paymentMethod, shippingAddress string) (*models.Order, error) {
	tx, err := s.checkout.BeginCheckout(ctx)
	if err != nil {
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Authoritative stock re-check, inside the same transaction as the
	// decrement below.
	for _, line := range lines {
		stock, err := tx.StockForUpdate(ctx, line.PublicationID)
		if err != nil {
			return nil, err
		}
		if line.Quantity > stock {
			util.StockConflictsTotal.Inc()
			return nil, &models.InsufficientStockError{
				PublicationID: line.PublicationID,
				Title:         line.Title,
				Requested:     line.Quantity,
				Available:     stock,
			}
		}
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(user.ID),
		UserID:          user.ID,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: shippingAddress,
	}
	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, line := range lines {
		ol := &models.OrderLine{
			OrderID:       order.ID,
			PublicationID: line.PublicationID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
		}
		if err := tx.InsertOrderLine(ctx, ol); err != nil {
			return nil, err
		}
		if err := tx.DecrementStock(ctx, line.PublicationID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return order, nil
}

// newOrderNumber builds an order number unique per user and ordered by
// creation date.
func newOrderNumber(userID int64) string {
	return fmt.Sprintf("ORD-%s-%04d-%s",
		time.Now().UTC().Format("20060102"), userID, uuid.New().String()[:8])
}

func (s *OrderService) countFailure(err error) {
	switch {
	case models.IsInsufficientStock(err):
		util.CheckoutsFailedTotal.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, models.ErrNotFound):
		util.CheckoutsFailedTotal.WithLabelValues("not_found").Inc()
	default:
		util.CheckoutsFailedTotal.WithLabelValues("persistence_error").Inc()
	}
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order, lines []cart.Line) {
	if s.publisher == nil {
		return
	}

	eventLines := make([]models.OrderLineData, 0, len(lines))
	for _, l := range lines {
		eventLines = append(eventLines, models.OrderLineData{
			PublicationID: l.PublicationID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Lines:       eventLines,
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// GetOrder retrieves an order and its lines. Only the owner or LIBRARIAN+
// may read it.
func (s *OrderService) GetOrder(ctx context.Context, actor *models.User, orderID int64) (*models.Order, []models.OrderLine, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != actor.ID && actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, nil, models.ErrPermissionDenied
	}

	lines, err := s.store.GetOrderLinesByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// ListMyOrders retrieves the actor's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, actor *models.User) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, actor.ID)
}

// ListOrders retrieves recent orders across all users. LIBRARIAN+.
func (s *OrderService) ListOrders(ctx context.Context, actor *models.User, limit int) ([]models.Order, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	return s.store.ListOrders(ctx, limit)
}

// SearchOrders matches orders by number or owner email. LIBRARIAN+.
func (s *OrderService) SearchOrders(ctx context.Context, actor *models.User, keyword string) ([]models.Order, error) {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return nil, models.ErrPermissionDenied
	}
	return s.store.SearchOrders(ctx, keyword)
}

// ChangeStatus transitions an order to a new status. LIBRARIAN+.
func (s *OrderService) ChangeStatus(ctx context.Context, actor *models.User, orderID int64, status string) error {
	if actor.Role.Rank() < models.RoleLibrarian.Rank() {
		return models.ErrPermissionDenied
	}
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("unknown order status %q", status)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}

	util.OrderStatusChangesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("old_status", order.Status),
		zap.String("new_status", status))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			OldStatus:   order.Status,
			NewStatus:   status,
			ChangedBy:   actor.ID,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}
	return nil
}
