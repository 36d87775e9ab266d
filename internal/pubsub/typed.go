package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event binds a topic name to its payload type so publishers and
// subscribers cannot disagree on the shape of a message.
type Event[T any] struct {
	topicName string
}

// NewEvent defines a typed topic.
func NewEvent[T any](name string) Event[T] {
	return Event[T]{topicName: name}
}

// Name returns the topic name.
func (e Event[T]) Name() string {
	return e.topicName
}

// Publish sends a typed event. The compiler ensures 'payload' matches 'T'.
func Publish[T any](ctx context.Context, p Publisher, event Event[T], userID string, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %w", event.Name(), err)
	}

	return p.Publish(ctx, Message{
		Topic:   event.Name(),
		UserID:  userID,
		Payload: data,
	})
}

// Subscribe decodes each message on the event's topic into T before calling
// handler. Messages that do not decode are reported as handler errors.
func Subscribe[T any](ctx context.Context, s Subscriber, event Event[T], handler func(ctx context.Context, msg Message, payload T) error) error {
	return s.Subscribe(ctx, event.Name(), func(ctx context.Context, msg Message) error {
		var payload T
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("pubsub: decode %s: %w", event.Name(), err)
		}
		return handler(ctx, msg, payload)
	})
}
