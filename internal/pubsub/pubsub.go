package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g., "audit.report.embedded").
	Topic string
	// UserID identifies the user who caused the message, if any.
	UserID string
	// Payload contains the raw message data, usually JSON.
	Payload []byte
	// Metadata carries arbitrary key-value context, including trace propagation headers.
	Metadata map[string]string
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the Pub/Sub system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the Pub/Sub system.
type Subscriber interface {
	// Subscribe starts consuming topic in the background and returns once the
	// subscription is active. Consumption stops when ctx is canceled or the
	// subscriber is closed.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
