package cart

import (
	"errors"
	"testing"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPublication() *models.Publication {
	return &models.Publication{
		ID:            1,
		Title:         "Clean Code",
		Price:         120000,
		StockQuantity: 5,
	}
}

func TestAddSnapshotsPrice(t *testing.T) {
	pub := testPublication()
	c := New()

	require.NoError(t, c.Add(pub, 2))

	// A later catalog price change must not affect the captured line.
	pub.Price = 999999

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(120000), lines[0].UnitPrice)
	assert.Equal(t, int64(240000), c.Total())
}

func TestAddRejectsInvalidQuantity(t *testing.T) {
	pub := testPublication()
	c := New()

	assert.ErrorIs(t, c.Add(pub, 0), models.ErrInvalidQuantity)
	assert.ErrorIs(t, c.Add(pub, -1), models.ErrInvalidQuantity)
	assert.True(t, c.IsEmpty())
}

func TestAddRejectsOverStock(t *testing.T) {
	pub := testPublication()
	c := New()

	err := c.Add(pub, pub.StockQuantity+1)
	require.Error(t, err)

	var ise *models.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, pub.ID, ise.PublicationID)
	assert.Equal(t, 6, ise.Requested)
	assert.Equal(t, 5, ise.Available)
	assert.True(t, c.IsEmpty())

	// Exactly the available stock is still accepted.
	assert.NoError(t, c.Add(pub, pub.StockQuantity))
}

func TestRemove(t *testing.T) {
	a := &models.Publication{ID: 1, Title: "A", Price: 100, StockQuantity: 10}
	b := &models.Publication{ID: 2, Title: "B", Price: 200, StockQuantity: 10}

	c := New()
	require.NoError(t, c.Add(a, 1))
	require.NoError(t, c.Add(b, 3))

	removed, err := c.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed.PublicationID)

	require.Equal(t, 1, c.Len())
	assert.Equal(t, int64(600), c.Total())

	_, err = c.Remove(1)
	assert.ErrorIs(t, err, models.ErrIndexOutOfRange)
	_, err = c.Remove(-1)
	assert.ErrorIs(t, err, models.ErrIndexOutOfRange)
}

func TestClearIsIdempotent(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(testPublication(), 1))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.Total())

	// Clearing an already-empty cart is a no-op.
	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestTotalEmptyCart(t *testing.T) {
	assert.Equal(t, int64(0), New().Total())
}
