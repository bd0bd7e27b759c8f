// Package events is the in-process pub/sub fabric between the booking
// core and its side-effect consumers (websocket hub, mail dispatch).
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Event types emitted by the booking core.
const (
	TypeSlotBooked       = "slot.booked"
	TypeSlotReleased     = "slot.released"
	TypeBookingConfirmed = "booking.confirmed"
)

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON marshals payload and publishes it under eventType.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	b.Publish(Event{Type: eventType, Payload: data})
	return nil
}

// SlotEvent is the payload for slot.booked / slot.released.
type SlotEvent struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// BookingEvent is the payload for booking.confirmed.
type BookingEvent struct {
	BookingID   string `json:"booking_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MeetingLink string `json:"meeting_link"`
}
