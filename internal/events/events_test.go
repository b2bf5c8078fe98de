package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var created []*Event
	bus.Subscribe(EventBookingCreated, func(e *Event) error {
		created = append(created, e)
		return nil
	})

	var cancelled int
	bus.Subscribe(EventBookingCancelled, func(e *Event) error {
		cancelled++
		return nil
	})

	payload := BookingEventPayload{
		BookingID:    "b-1",
		CatalogID:    "crew-6",
		CustomerName: "Dana Crew",
		Status:       "pending",
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.Len(t, created, 1)
	assert.Equal(t, 0, cancelled, "handler must only see its own event type")

	var got BookingEventPayload
	require.NoError(t, json.Unmarshal(created[0].Payload, &got))
	assert.Equal(t, "b-1", got.BookingID)
	assert.Equal(t, "crew-6", got.CatalogID)
	assert.False(t, created[0].CreatedAt.IsZero())
}

func TestEventBus_NilBusIsSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, "x"))
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventUnitUpdated, func(e *Event) error {
			calls++
			return nil
		})
	}

	require.NoError(t, bus.PublishJSON(EventUnitUpdated, map[string]string{"unit_id": "u-1"}))
	assert.Equal(t, 3, calls)
}
