package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"library-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderPlacedMessage(t *testing.T) kafka.Message {
	t.Helper()
	event := models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     42,
		OrderNumber: "ORD-20260830-0007-deadbeef",
		UserID:      7,
		TotalAmount: 2500,
		Lines: []models.OrderLineData{
			{PublicationID: 3, Quantity: 2, UnitPrice: 1250},
		},
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesOrderPlaced(t *testing.T) {
	eh := NewEventHandler()

	var got *models.OrderPlacedEvent
	eh.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		got = event
		return nil
	})

	err := eh.HandleMessage(context.Background(), orderPlacedMessage(t))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, int64(42), got.OrderID)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(3), got.Lines[0].PublicationID)
}

func TestHandleMessageIgnoresUnknownType(t *testing.T) {
	eh := NewEventHandler()

	called := false
	eh.OnOrderPlaced(func(ctx context.Context, event *models.OrderPlacedEvent) error {
		called = true
		return nil
	})

	value, err := json.Marshal(models.BaseEvent{EventID: "evt-2", EventType: "SOMETHING_ELSE"})
	require.NoError(t, err)

	err = eh.HandleMessage(context.Background(), kafka.Message{Value: value})
	assert.NoError(t, err)
	assert.False(t, called)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)
}

func TestHandleMessageNoHandlerRegistered(t *testing.T) {
	eh := NewEventHandler()
	err := eh.HandleMessage(context.Background(), orderPlacedMessage(t))
	assert.NoError(t, err)
}
