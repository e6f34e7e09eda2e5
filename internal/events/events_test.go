package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingSubmitted, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	err := bus.PublishJSON(EventBookingSubmitted, BookingEventPayload{UserEmail: "anna@club.at", CourtID: 3, Date: day, StartHour: 10, EndHour: 12})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingSubmitted {
		t.Errorf("expected type %s, got %s", EventBookingSubmitted, received.Type)
	}

	var decoded BookingEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.CourtID != 3 || decoded.EndHour != 12 || !decoded.Date.Equal(day) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe(EventEntryDeleted, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventEntryDeleted, func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: EventEntryDeleted})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	var failed []error
	var second bool

	bus.OnError(func(_ *Event, err error) { failed = append(failed, err) })
	bus.Subscribe(EventSessionExpired, func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe(EventSessionExpired, func(_ *Event) error { second = true; return nil })

	bus.Publish(&Event{Type: EventSessionExpired})

	if len(failed) != 1 || !second {
		t.Errorf("expected one reported error and the second handler to run, got %v %v", failed, second)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventEntryRelabeled, nil); err != nil {
		t.Errorf("nil bus PublishJSON failed: %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventEntryRelabeled, BookingEventPayload{EntryTypeID: 4})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded BookingEventPayload
	if err := event.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.EntryTypeID != 4 {
		t.Errorf("expected EntryTypeID 4, got %d", decoded.EntryTypeID)
	}

	if _, err := NewJSONEvent("bad", make(chan int)); err == nil {
		t.Error("expected marshal error for channel payload")
	}
}
