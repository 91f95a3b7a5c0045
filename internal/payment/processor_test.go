package payment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	m         sync.Mutex
	paymentID string
	err       error
	calls     int
	lastReq   ChargeRequest
}

func (g *mockGateway) Charge(_ context.Context, req ChargeRequest) (string, error) {
	g.m.Lock()
	defer g.m.Unlock()
	g.calls++
	g.lastReq = req
	if g.err != nil {
		return "", g.err
	}
	return g.paymentID, nil
}

type recordedMessage struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	m        sync.Mutex
	messages []recordedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, topic, _ string, payload any) error {
	p.m.Lock()
	defer p.m.Unlock()
	p.messages = append(p.messages, recordedMessage{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) published() []recordedMessage {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]recordedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

func reservedMessage(t *testing.T, txID string) bus.Message {
	t.Helper()
	data, err := json.Marshal(events.InventoryReserved{
		TransactionID: txID,
		OrderID:       "order-1",
		Items: []events.Item{
			{ProductID: 1, Color: "black", Price: "19.99", Quantity: 2},
			{ProductID: 2, Color: "red", Price: "49.99", Quantity: 1},
		},
	})
	require.NoError(t, err)
	return bus.Message{Topic: events.TopicInventoryReserved, Key: txID, Value: data}
}

func TestHandleInventoryReserved_ChargesAndRecords(t *testing.T) {
	repo := NewMemoryRepository()
	gateway := &mockGateway{paymentID: "pay-42"}
	pub := &recordingPublisher{}
	p := NewProcessor(repo, gateway, pub)

	require.NoError(t, p.HandleInventoryReserved(context.Background(), reservedMessage(t, "tx-1")))

	assert.Equal(t, 1, gateway.calls)
	assert.Equal(t, "89.97", gateway.lastReq.Amount)
	assert.Equal(t, "tx-1", gateway.lastReq.TransactionID)

	stored, err := repo.GetByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
	assert.Equal(t, "pay-42", stored.PaymentID)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicPaymentSucceeded, msgs[0].topic)
	ev := msgs[0].payload.(events.PaymentSucceeded)
	assert.Equal(t, "pay-42", ev.PaymentID)
}

func TestHandleInventoryReserved_DuplicateReplaysOutcome(t *testing.T) {
	repo := NewMemoryRepository()
	gateway := &mockGateway{paymentID: "pay-42"}
	pub := &recordingPublisher{}
	p := NewProcessor(repo, gateway, pub)

	msg := reservedMessage(t, "tx-1")
	require.NoError(t, p.HandleInventoryReserved(context.Background(), msg))
	require.NoError(t, p.HandleInventoryReserved(context.Background(), msg))

	// The second delivery re-emits the recorded outcome without charging.
	assert.Equal(t, 1, gateway.calls)
	msgs := pub.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, events.TopicPaymentSucceeded, msgs[1].topic)
}

func TestHandleInventoryReserved_ChargeFailure(t *testing.T) {
	repo := NewMemoryRepository()
	gateway := &mockGateway{err: errors.New("card declined")}
	pub := &recordingPublisher{}
	p := NewProcessor(repo, gateway, pub)

	require.NoError(t, p.HandleInventoryReserved(context.Background(), reservedMessage(t, "tx-1")))

	// The row never stays PENDING.
	stored, err := repo.GetByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "card declined", stored.FailureReason)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicPaymentFailed, msgs[0].topic)
	ev := msgs[0].payload.(events.PaymentFailed)
	assert.Equal(t, "card declined", ev.Reason)
}

func TestHandleInventoryReserved_FailureIsReplayedNotRetried(t *testing.T) {
	repo := NewMemoryRepository()
	gateway := &mockGateway{err: errors.New("card declined")}
	pub := &recordingPublisher{}
	p := NewProcessor(repo, gateway, pub)

	msg := reservedMessage(t, "tx-1")
	require.NoError(t, p.HandleInventoryReserved(context.Background(), msg))

	// Even if the gateway would now succeed, the recorded FAILED outcome wins.
	gateway.m.Lock()
	gateway.err = nil
	gateway.paymentID = "pay-42"
	gateway.m.Unlock()

	require.NoError(t, p.HandleInventoryReserved(context.Background(), msg))
	assert.Equal(t, 1, gateway.calls)

	msgs := pub.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, events.TopicPaymentFailed, msgs[1].topic)
}

func TestHandleInventoryReserved_ResumesPendingRow(t *testing.T) {
	repo := NewMemoryRepository()
	gateway := &mockGateway{paymentID: "pay-42"}
	pub := &recordingPublisher{}
	p := NewProcessor(repo, gateway, pub)

	// A crash after Create but before the charge left the row PENDING.
	require.NoError(t, repo.Create(context.Background(), &domain.Payment{
		TransactionID: "tx-1",
		OrderID:       "order-1",
		Amount:        "89.97",
		Status:        domain.PaymentStatusPending,
	}))

	require.NoError(t, p.HandleInventoryReserved(context.Background(), reservedMessage(t, "tx-1")))

	assert.Equal(t, 1, gateway.calls)
	stored, err := repo.GetByTransaction(context.Background(), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSuccess, stored.Status)
}

func TestTotalAmount_InvalidPrice(t *testing.T) {
	_, err := totalAmount([]events.Item{{ProductID: 1, Price: "oops", Quantity: 1}})
	assert.Error(t, err)
}
