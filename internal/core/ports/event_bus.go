package ports

import "context"

// TopicAll subscribes a handler to every topic.
const TopicAll = "*"

// Event is a generic wrapper for any event payload
type Event struct {
	Topic string
	Data  any
}

// EventHandler is a function that can handle a specific event
type EventHandler func(ctx context.Context, event Event) error

// EventBus defines the interface for our in-process pub/sub system
type EventBus interface {
	// Publish sends an event to all subscribers of a topic
	Publish(ctx context.Context, topic string, data any) error

	// Subscribe registers a handler for a specific topic, or TopicAll
	Subscribe(topic string, handler EventHandler)

	// Drain waits for in-flight handlers to finish or ctx to end.
	Drain(ctx context.Context) error
}
