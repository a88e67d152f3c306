package store

import (
	"context"
	"testing"

	"library-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportAggregatesUnaffectedByReviews(t *testing.T) {
	t.Skip("Integration test - requires database")

	store, err := NewStore(testDatabaseURL)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	pub := &models.Publication{Title: "Reviewed Bestseller", Price: 10000, StockQuantity: 10}
	require.NoError(t, store.CreatePublication(ctx, pub))

	buyer := &models.User{Email: "buyer@library.example", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, buyer))
	reviewer := &models.User{Email: "reviewer@library.example", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, reviewer))

	tx, err := store.BeginCheckout(ctx)
	require.NoError(t, err)
	order := &models.Order{
		OrderNumber: "ORD-TEST-0003",
		UserID:      buyer.ID,
		TotalAmount: 3 * pub.Price,
		Status:      models.OrderStatusDelivered,
	}
	require.NoError(t, tx.InsertOrder(ctx, order))
	line := &models.OrderLine{OrderID: order.ID, PublicationID: pub.ID, Quantity: 3, UnitPrice: pub.Price}
	require.NoError(t, tx.InsertOrderLine(ctx, line))
	require.NoError(t, tx.DecrementStock(ctx, pub.ID, 3))
	require.NoError(t, tx.Commit())

	// Two reviews on the same publication and user must not multiply the
	// sold/spent aggregates.
	require.NoError(t, store.UpsertReview(ctx, &models.Review{UserID: buyer.ID, PublicationID: pub.ID, Rating: 5}))
	require.NoError(t, store.UpsertReview(ctx, &models.Review{UserID: reviewer.ID, PublicationID: pub.ID, Rating: 3}))

	top, err := store.GetTopPublications(ctx, 100)
	require.NoError(t, err)
	for _, row := range top {
		if row.PublicationID == pub.ID {
			assert.Equal(t, 3, row.UnitsSold)
			assert.Equal(t, 3*pub.Price, row.Revenue)
			assert.InDelta(t, 4.0, row.AverageRating, 0.001)
		}
	}

	activity, err := store.GetUserActivity(ctx, 100)
	require.NoError(t, err)
	for _, row := range activity {
		if row.UserID == buyer.ID {
			assert.Equal(t, 1, row.OrdersCount)
			assert.Equal(t, 3*pub.Price, row.TotalSpent)
			assert.Equal(t, 1, row.ReviewsCount)
		}
	}
}
