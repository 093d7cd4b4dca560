// Package events carries marketplace domain events between modules in the
// same process. Leads and allocation publish, notification subscribes.
package events

import (
	"context"
	"time"
)

// Event is a named fact that already happened.
type Event interface {
	// EventName is the subscription key, e.g. "allocation.purchase.completed".
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent stamps an event with its UTC creation time.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now().UTC()}
}

// Handler reacts to one event. A returned error is logged by the bus, never
// sent back to the publisher of an async event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events by name.
//
// Publish is fire and forget: handlers run in their own goroutines on a
// context that survives request cancellation, so a slow mail provider never
// holds up a checkout confirmation. Wait drains those goroutines and is
// called on shutdown and in tests. PublishSync runs handlers inline and is
// meant for callers that must know the outcome.
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
	Wait()
}
