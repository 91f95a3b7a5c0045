// Package bus abstracts event publication and subscription so the saga's
// correctness does not depend on any specific broker beyond at-least-once
// delivery and per-key ordering.
package bus

import "context"

// Message is one delivered event. Key is the transaction id the event
// belongs to.
type Message struct {
	Topic string
	Key   string
	Value []byte
}

// Handler processes one message. A returned error is logged by the
// transport; the message is still acknowledged so a poison message cannot
// stall the consumer group. Handlers must therefore be idempotent per key.
type Handler func(ctx context.Context, msg Message) error

// Publisher publishes a JSON-encoded payload to a topic under a key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Subscriber registers a handler for a topic. Registration must happen
// before the transport starts consuming.
type Subscriber interface {
	Subscribe(topic string, h Handler)
}
