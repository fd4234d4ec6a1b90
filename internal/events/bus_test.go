package events

import (
	"errors"
	"testing"
	"time"
)

func TestPublishDeliversToTypeSubscribers(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventAlertRaised, func(e Event) { got <- e })

	bus.PublishAlertRaised("u1", "BTCUSDT", nil)

	select {
	case e := <-got:
		if e.Data["user_id"] != "u1" || e.Data["symbol"] != "BTCUSDT" {
			t.Errorf("unexpected payload: %+v", e.Data)
		}
		if e.Timestamp.IsZero() {
			t.Error("timestamp not set on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("alert event not delivered")
	}
}

func TestPublishErrorCarriesSourceAndError(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.SubscribeAll(func(e Event) { got <- e })

	bus.PublishError("database", "failed to persist alert", errors.New("connection refused"))

	select {
	case e := <-got:
		if e.Type != EventError {
			t.Errorf("type = %s, want %s", e.Type, EventError)
		}
		if e.Data["source"] != "database" {
			t.Errorf("source = %v", e.Data["source"])
		}
		if e.Data["error"] != "connection refused" {
			t.Errorf("error = %v", e.Data["error"])
		}
	case <-time.After(time.Second):
		t.Fatal("error event not delivered")
	}
}
