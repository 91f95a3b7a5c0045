package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus_DeliversToAllSubscribers(t *testing.T) {
	b := NewMemoryBus()

	var first, second []string
	b.Subscribe("orders", func(_ context.Context, msg Message) error {
		first = append(first, msg.Key)
		return nil
	})
	b.Subscribe("orders", func(_ context.Context, msg Message) error {
		second = append(second, msg.Key)
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "orders", "tx-1", map[string]string{"a": "b"}))

	assert.Equal(t, []string{"tx-1"}, first)
	assert.Equal(t, []string{"tx-1"}, second)
}

func TestMemoryBus_TopicIsolation(t *testing.T) {
	b := NewMemoryBus()

	delivered := 0
	b.Subscribe("payments", func(context.Context, Message) error {
		delivered++
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "orders", "tx-1", "payload"))
	assert.Zero(t, delivered)
}

func TestMemoryBus_HandlerErrorDoesNotStopDelivery(t *testing.T) {
	b := NewMemoryBus()

	delivered := false
	b.Subscribe("orders", func(context.Context, Message) error {
		return errors.New("boom")
	})
	b.Subscribe("orders", func(context.Context, Message) error {
		delivered = true
		return nil
	})

	// Handler errors are logged, not propagated; the ack policy treats the
	// message as consumed either way.
	require.NoError(t, b.Publish(context.Background(), "orders", "tx-1", "payload"))
	assert.True(t, delivered)
}

func TestMemoryBus_MarshalsPayload(t *testing.T) {
	b := NewMemoryBus()

	var got []byte
	b.Subscribe("orders", func(_ context.Context, msg Message) error {
		got = msg.Value
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "orders", "tx-1", struct {
		Name string `json:"name"`
	}{Name: "checkout"}))

	assert.JSONEq(t, `{"name":"checkout"}`, string(got))
}
