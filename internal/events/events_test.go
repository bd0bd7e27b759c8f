package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var got []SlotEvent
	bus.Subscribe(TypeSlotBooked, func(e Event) error {
		var payload SlotEvent
		require.NoError(t, json.Unmarshal(e.Payload, &payload))
		got = append(got, payload)
		return nil
	})

	err := bus.PublishJSON(TypeSlotBooked, SlotEvent{Date: "2026-02-01", Time: "12:00 PM"})
	require.NoError(t, err)

	// Other types do not reach this subscriber.
	err = bus.PublishJSON(TypeSlotReleased, SlotEvent{Date: "2026-02-01", Time: "12:00 PM"})
	require.NoError(t, err)

	assert.Len(t, got, 1)
	assert.Equal(t, "12:00 PM", got[0].Time)
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	calls := 0
	bus.Subscribe(TypeBookingConfirmed, func(Event) error { calls++; return nil })
	bus.Subscribe(TypeBookingConfirmed, func(Event) error { calls++; return nil })

	require.NoError(t, bus.PublishJSON(TypeBookingConfirmed, BookingEvent{BookingID: "b1"}))
	assert.Equal(t, 2, calls)
}
