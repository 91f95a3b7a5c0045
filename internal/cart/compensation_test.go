package cart

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventMessage(t *testing.T, topic string, payload any) bus.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return bus.Message{Topic: topic, Value: data}
}

func seedStampedCart(t *testing.T, repo *repository.MemoryRepository, txID string) {
	t.Helper()
	cart := domain.NewCart("user123")
	cart.Items = []domain.CartLine{
		{ProductID: 1, Color: "black", UnitPrice: "19.99", Quantity: 2},
		{ProductID: 2, Color: "red", UnitPrice: "49.99", Quantity: 1},
	}
	cart.TransactionID = txID
	seedCart(t, repo, cart)
}

func TestHandleOrderCompleted_RemovesSelectedLines(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	seedStampedCart(t, repo, "tx-1")

	msg := eventMessage(t, events.TopicOrderCompleted, events.OrderCompleted{
		TransactionID: "tx-1",
		UserID:        "user123",
		SelectedItems: []domain.LineKey{{ProductID: 1, Color: "black"}},
	})
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), msg))

	cart, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(2), cart.Items[0].ProductID)
	assert.Equal(t, "49.99", cart.TotalPrice)
	assert.Empty(t, cart.TransactionID)
}

func TestHandleOrderCompleted_WholeCartCheckoutClearsEverything(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	seedStampedCart(t, repo, "tx-1")

	msg := eventMessage(t, events.TopicOrderCompleted, events.OrderCompleted{
		TransactionID: "tx-1",
		UserID:        "user123",
	})
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), msg))

	cart, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0", cart.TotalPrice)
	assert.Empty(t, cart.TransactionID)
}

func TestHandleOrderCompleted_TransactionMismatchIsNoOp(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	seedStampedCart(t, repo, "tx-current")

	msg := eventMessage(t, events.TopicOrderCompleted, events.OrderCompleted{
		TransactionID: "tx-stale",
		UserID:        "user123",
	})
	require.NoError(t, svc.HandleOrderCompleted(context.Background(), msg))

	cart, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, "tx-current", cart.TransactionID)
	// A no-op must not bump the version either.
	assert.Equal(t, int64(1), cart.Version)
}

func TestHandleCheckoutFailed_ClearsStampKeepsItems(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	seedStampedCart(t, repo, "tx-1")

	msg := eventMessage(t, events.TopicCheckoutFailed, events.CheckoutFailed{
		TransactionID: "tx-1",
		UserID:        "user123",
		Reason:        "card declined",
	})
	require.NoError(t, svc.HandleCheckoutFailed(context.Background(), msg))

	cart, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Empty(t, cart.TransactionID)
}

func TestHandleCheckoutFailed_TransactionMismatchIsNoOp(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	seedStampedCart(t, repo, "tx-current")

	msg := eventMessage(t, events.TopicCheckoutFailed, events.CheckoutFailed{
		TransactionID: "tx-stale",
		UserID:        "user123",
	})
	require.NoError(t, svc.HandleCheckoutFailed(context.Background(), msg))

	cart, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, "tx-current", cart.TransactionID)
	assert.Equal(t, int64(1), cart.Version)
}

func TestHandleOrderCompleted_MalformedPayload(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	err := svc.HandleOrderCompleted(context.Background(), bus.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
