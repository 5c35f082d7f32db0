// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Common event types
const (
	SessionStarted      Type = "session_started"
	SessionEnded        Type = "session_ended"
	BoatJoined          Type = "boat_joined"
	BoatLeft            Type = "boat_left"
	BoatStateReplicated Type = "boat_state_replicated"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Bus manages event subscriptions and dispatching. Dispatch is
// synchronous: handlers run on the publisher's goroutine.
type Bus struct {
	handlers map[Type][]Handler
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers, ok := b.handlers[event.GetType()]
	b.mu.RUnlock()

	if !ok {
		return
	}

	for _, handler := range handlers {
		handler(event)
	}
}

// BoatEvent contains information about boat lifecycle and replication events
type BoatEvent struct {
	BaseEvent
	BoatID string
}

// NewBoatEvent creates a new boat event
func NewBoatEvent(eventType Type, source interface{}, boatID string) *BoatEvent {
	return &BoatEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		BoatID: boatID,
	}
}

// SessionEvent contains information about session lifecycle events
type SessionEvent struct {
	BaseEvent
	Tick uint64
}

// NewSessionEvent creates a new session event
func NewSessionEvent(eventType Type, source interface{}, tick uint64) *SessionEvent {
	return &SessionEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Tick: tick,
	}
}
