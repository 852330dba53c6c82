package interfaces

import (
	"context"
)

// Event is a catalog event delivered through the EventBus.
type Event interface {
	// EventType returns the routing name of the event, e.g. "catalog.scan.completed"
	EventType() string

	// Timestamp returns when the event occurred in unix nanoseconds
	Timestamp() int64

	// AggregateID identifies what the event is about (a source, library or item)
	AggregateID() string
}

// EventHandler handles events of a specific type.
type EventHandler interface {
	Handle(ctx context.Context, event Event) error

	// EventType returns the type of events this handler processes
	EventType() string
}

// EventBus provides pub/sub functionality for catalog events.
type EventBus interface {
	// Publish delivers the event to every subscriber synchronously
	Publish(ctx context.Context, event Event) error

	// PublishAsync delivers the event on a background goroutine
	PublishAsync(ctx context.Context, event Event)

	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error

	Start(ctx context.Context) error

	// Stop waits for in-flight async deliveries to finish
	Stop() error
}
