package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// fetchRetryDelay keeps a broker outage from spinning the consume loop hot.
const fetchRetryDelay = time.Second

// KafkaBus publishes and consumes saga events over Kafka. Writers use the
// hash balancer so all events of one transaction land on the same partition,
// which serializes handling per saga.
type KafkaBus struct {
	brokers []string
	groupID string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	subs    []subscription
}

type subscription struct {
	topic   string
	handler Handler
}

func NewKafkaBus(groupID string, brokers ...string) *KafkaBus {
	return &KafkaBus{
		brokers: brokers,
		groupID: groupID,
		writers: make(map[string]*kafka.Writer),
	}
}

func (b *KafkaBus) writer(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(b.brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
		b.writers[topic] = w
	}
	return w
}

func (b *KafkaBus) Publish(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}
	return b.writer(topic).WriteMessages(ctx, msg)
}

func (b *KafkaBus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{topic: topic, handler: h})
}

// Run consumes all subscribed topics until ctx is cancelled. One reader per
// topic; messages are committed after handling even when the handler fails,
// trading strict delivery for consumer-group liveness. Redelivery still
// happens when a process dies between fetch and commit, which is why every
// handler is idempotent.
func (b *KafkaBus) Run(ctx context.Context) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub subscription) {
			defer wg.Done()
			b.consume(ctx, sub)
		}(sub)
	}
	wg.Wait()
}

func (b *KafkaBus) consume(ctx context.Context, sub subscription) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.brokers,
		Topic:    sub.topic,
		GroupID:  b.groupID,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Printf("error closing reader for %s: %v", sub.topic, err)
		}
	}()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("error fetching message from %s: %v", sub.topic, err)
			select {
			case <-time.After(fetchRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		msg := Message{Topic: sub.topic, Key: string(m.Key), Value: m.Value}
		if errHandle := sub.handler(ctx, msg); errHandle != nil {
			log.Printf("handler error on %s key=%s: %v", sub.topic, msg.Key, errHandle)
		}

		if errCommit := reader.CommitMessages(ctx, m); errCommit != nil {
			log.Printf("error committing message on %s: %v", sub.topic, errCommit)
		}
	}
}

// Close flushes and closes all writers.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for topic, w := range b.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer for %s: %w", topic, err)
		}
	}
	return firstErr
}
