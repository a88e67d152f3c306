package store

import (
	"context"
	"database/sql"
	"fmt"

	"library-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CheckoutTx is the transactional scope the checkout workflow runs in. The
// stock re-check, order insert, line inserts and stock decrements all happen
// inside one CheckoutTx; Commit makes them visible together, Rollback makes
// none of them visible.
type CheckoutTx interface {
	// StockForUpdate reads the current stock of a publication and locks its
	// row until the transaction ends, serializing concurrent checkouts on it.
	StockForUpdate(ctx context.Context, publicationID int64) (int, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	InsertOrderLine(ctx context.Context, line *models.OrderLine) error
	DecrementStock(ctx context.Context, publicationID int64, quantity int) error
	Commit() error
	Rollback() error
}

// CheckoutStore is the persistence boundary consumed by the order workflow.
type CheckoutStore interface {
	BeginCheckout(ctx context.Context) (CheckoutTx, error)
}

// lockTimeout bounds how long a checkout waits for a row lock. Exceeding it
// fails the transaction rather than blocking indefinitely.
const lockTimeout = "5s"

type checkoutTx struct {
	tx *sqlx.Tx
}

// BeginCheckout opens the checkout transaction with a bounded lock wait.
func (s *Store) BeginCheckout(ctx context.Context) (CheckoutTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, models.WrapPersistence("BeginCheckout", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%s'", lockTimeout)); err != nil {
		_ = tx.Rollback()
		return nil, models.WrapPersistence("BeginCheckout", err)
	}
	return &checkoutTx{tx: tx}, nil
}

func (t *checkoutTx) StockForUpdate(ctx context.Context, publicationID int64) (int, error) {
	var stock int
	err := t.tx.GetContext(ctx, &stock,
		"SELECT stock_quantity FROM publications WHERE id = $1 FOR UPDATE", publicationID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("publication %d: %w", publicationID, models.ErrNotFound)
	}
	if err != nil {
		return 0, models.WrapPersistence("StockForUpdate", err)
	}
	return stock, nil
}

func (t *checkoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, total_amount, status, payment_method, shipping_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := t.tx.GetContext(ctx, order, query,
		order.OrderNumber, order.UserID, order.TotalAmount, order.Status,
		order.PaymentMethod, order.ShippingAddress)
	return models.WrapPersistence("InsertOrder", err)
}

func (t *checkoutTx) InsertOrderLine(ctx context.Context, line *models.OrderLine) error {
	query := `
		INSERT INTO order_lines (order_id, publication_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := t.tx.GetContext(ctx, &line.ID, query,
		line.OrderID, line.PublicationID, line.Quantity, line.UnitPrice)
	return models.WrapPersistence("InsertOrderLine", err)
}

func (t *checkoutTx) DecrementStock(ctx context.Context, publicationID int64, quantity int) error {
	// The WHERE guard backs up the FOR UPDATE check: stock can never go
	// negative even if a caller skips StockForUpdate.
	res, err := t.tx.ExecContext(ctx, `
		UPDATE publications
		SET stock_quantity = stock_quantity - $1, updated_at = NOW()
		WHERE id = $2 AND stock_quantity >= $1`,
		quantity, publicationID)
	if err != nil {
		return models.WrapPersistence("DecrementStock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.WrapPersistence("DecrementStock", err)
	}
	if n == 0 {
		return &models.InsufficientStockError{
			PublicationID: publicationID,
			Requested:     quantity,
		}
	}
	return nil
}

func (t *checkoutTx) Commit() error {
	return models.WrapPersistence("Commit", t.tx.Commit())
}

func (t *checkoutTx) Rollback() error {
	return t.tx.Rollback()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetOrderByID", err)
	}
	return &order, nil
}

// GetOrderByNumber retrieves an order by its order number
func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE order_number = $1", number)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", number, models.ErrNotFound)
	}
	if err != nil {
		return nil, models.WrapPersistence("GetOrderByNumber", err)
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, models.WrapPersistence("GetOrdersByUserID", err)
}

// ListOrders retrieves the most recent orders across all users
func (s *Store) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1", limit)
	return orders, models.WrapPersistence("ListOrders", err)
}

// SearchOrders matches orders by order number or owner email fragment
func (s *Store) SearchOrders(ctx context.Context, keyword string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT o.* FROM orders o
		JOIN users u ON u.id = o.user_id
		WHERE o.order_number ILIKE $1 OR u.email ILIKE $1
		ORDER BY o.created_at DESC`, "%"+keyword+"%")
	return orders, models.WrapPersistence("SearchOrders", err)
}

// UpdateOrderStatus transitions an order to a new status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return models.WrapPersistence("UpdateOrderStatus", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	return nil
}

// GetOrderLinesByOrderID retrieves all lines for an order
func (s *Store) GetOrderLinesByOrderID(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := s.db.SelectContext(ctx, &lines,
		"SELECT * FROM order_lines WHERE order_id = $1 ORDER BY id", orderID)
	return lines, models.WrapPersistence("GetOrderLinesByOrderID", err)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, models.WrapPersistence("IsEventProcessed", err)
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return models.WrapPersistence("MarkEventProcessed", err)
}
