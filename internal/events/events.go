package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventUserRegistered = "user_registered"
	EventBookingCreated = "booking_created"
)

// UserEventPayload is published on registration.
type UserEventPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// BookingEventPayload describes the minimal booking snapshot for event
// consumers (notifier, ledger sync).
type BookingEventPayload struct {
	BookingID int64   `json:"booking_id"`
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username,omitempty"`
	RoomName  string  `json:"room_name"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Nights    int64   `json:"nights"`
	TotalCost float64 `json:"total_cost"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

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
func (b *EventBus) Publish(event *Event) {
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

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
