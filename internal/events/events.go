package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingSubmitted = "booking_submitted"
	EventEntryDeleted     = "entry_deleted"
	EventEntryRelabeled   = "entry_relabeled"
	EventSessionExpired   = "session_expired"
	EventUserChanged      = "user_changed"
)

// BookingEventPayload describes a change of the court grid for event consumers.
type BookingEventPayload struct {
	SessionID   string    `json:"session_id,omitempty"`
	UserEmail   string    `json:"user_email"`
	CourtID     int64     `json:"court_id"`
	Date        time.Time `json:"date"`
	StartHour   int       `json:"start_hour"`
	EndHour     int       `json:"end_hour"`
	EntryTypeID int64     `json:"entry_type_id,omitempty"`
	Result      string    `json:"result,omitempty"`
}

// UserEventPayload describes a session or profile change.
type UserEventPayload struct {
	SessionID string `json:"session_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	UserEmail string `json:"user_email"`
	Change    string `json:"change,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// ErrorHandler receives handler failures; the bus itself never stops on them.
type ErrorHandler func(event *Event, err error)

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	onError     ErrorHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError installs the handler failure callback.
func (b *EventBus) OnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	ev, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&ev)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
