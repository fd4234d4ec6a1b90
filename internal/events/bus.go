package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventAlertRaised     EventType = "ALERT_RAISED"
	EventTradeBlocked    EventType = "TRADE_BLOCKED"
	EventReportGenerated EventType = "REPORT_GENERATED"
	EventTextAnalyzed    EventType = "TEXT_ANALYZED"
	EventError           EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	// Set timestamp if not provided
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Notify specific subscribers
	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	// Notify all-event subscribers
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishAlertRaised publishes a behavioral alert event
func (eb *EventBus) PublishAlertRaised(userID, symbol string, alert interface{}) {
	eb.Publish(Event{
		Type: EventAlertRaised,
		Data: map[string]interface{}{
			"user_id": userID,
			"symbol":  symbol,
			"alert":   alert,
		},
	})
}

// PublishTradeBlocked publishes a trade blocked event
func (eb *EventBus) PublishTradeBlocked(userID, symbol string, overallRisk float64) {
	eb.Publish(Event{
		Type: EventTradeBlocked,
		Data: map[string]interface{}{
			"user_id":      userID,
			"symbol":       symbol,
			"overall_risk": overallRisk,
		},
	})
}

// PublishReportGenerated publishes a behavioral report event
func (eb *EventBus) PublishReportGenerated(userID, reportID string, riskScore float64) {
	eb.Publish(Event{
		Type: EventReportGenerated,
		Data: map[string]interface{}{
			"user_id":    userID,
			"report_id":  reportID,
			"risk_score": riskScore,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
