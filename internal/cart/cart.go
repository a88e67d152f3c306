// Package cart implements the per-session shopping cart. A cart is owned
// exclusively by one user session and is never persisted; every check here is
// advisory until checkout, which re-validates stock authoritatively.
package cart

import (
	"library-service/internal/models"
	"library-service/internal/util"
)

// Line pairs a publication with a requested quantity and the unit price
// snapshotted at add-time. Checkout charges the snapshot price, not the
// current catalog price.
type Line struct {
	PublicationID int64  `json:"publication_id"`
	Title         string `json:"title"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
}

// Total returns quantity x unit price for this line.
func (l Line) Total() int64 {
	return int64(l.Quantity) * l.UnitPrice
}

// Cart is an ordered list of lines.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends a line for pub, snapshotting its current price. The stock
// check is advisory: stock may still change before checkout.
func (c *Cart) Add(pub *models.Publication, quantity int) error {
	if quantity <= 0 {
		util.CartAddsRejectedTotal.WithLabelValues("invalid_quantity").Inc()
		return models.ErrInvalidQuantity
	}
	if quantity > pub.StockQuantity {
		util.CartAddsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		return &models.InsufficientStockError{
			PublicationID: pub.ID,
			Title:         pub.Title,
			Requested:     quantity,
			Available:     pub.StockQuantity,
		}
	}

	c.lines = append(c.lines, Line{
		PublicationID: pub.ID,
		Title:         pub.Title,
		Quantity:      quantity,
		UnitPrice:     pub.Price,
	})
	util.CartAddsTotal.Inc()
	return nil
}

// Remove deletes the line at index and returns it.
func (c *Cart) Remove(index int) (Line, error) {
	if index < 0 || index >= len(c.lines) {
		return Line{}, models.ErrIndexOutOfRange
	}
	line := c.lines[index]
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return line, nil
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (c *Cart) Clear() {
	c.lines = nil
}

// Total returns the sum of line totals, 0 for an empty cart.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}
