package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// MemoryBus is an in-process bus for tests and single-binary runs. Delivery
// is synchronous in the publisher's goroutine, which trivially preserves
// per-key ordering. Handler errors are logged and the message is still
// considered delivered, matching the Kafka transport's ack policy.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string][]Handler)}
}

func (b *MemoryBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *MemoryBus) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[topic]))
	copy(handlers, b.handlers[topic])
	b.mu.RUnlock()

	msg := Message{Topic: topic, Key: key, Value: data}
	for _, h := range handlers {
		if errHandle := h(ctx, msg); errHandle != nil {
			log.Printf("handler error on %s key=%s: %v", topic, key, errHandle)
		}
	}
	return nil
}
