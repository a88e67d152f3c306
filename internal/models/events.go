package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeLowStock           = "LOW_STOCK"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderLineData represents line data carried in events
type OrderLineData struct {
	PublicationID int64 `json:"publication_id"`
	Quantity      int   `json:"quantity"`
	UnitPrice     int64 `json:"unit_price"`
}

// OrderPlacedEvent published after a checkout commits
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	TotalAmount int64           `json:"total_amount"`
	Lines       []OrderLineData `json:"lines"`
}

// OrderStatusChangedEvent published on administrative status transitions
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
	ChangedBy   int64  `json:"changed_by"`
}

// LowStockEvent published by the stock alert worker when a publication's
// remaining stock drops below the configured threshold
type LowStockEvent struct {
	BaseEvent
	PublicationID int64  `json:"publication_id"`
	Title         string `json:"title"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}
