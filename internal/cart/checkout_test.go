package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTwoLineCart(t *testing.T, repo *repository.MemoryRepository, guard *mockGuard) {
	t.Helper()
	guard.set(1, "black", "Wireless Mouse", "19.99", 10)
	guard.set(2, "red", "Keyboard", "49.99", 5)

	cart := domain.NewCart("user123")
	cart.Items = []domain.CartLine{
		{ProductID: 1, Color: "black", ProductName: "Wireless Mouse", UnitPrice: "19.99", Quantity: 2},
		{ProductID: 2, Color: "red", ProductName: "Keyboard", UnitPrice: "49.99", Quantity: 1},
	}
	seedCart(t, repo, cart)
}

func TestInitiateCheckout_WholeCart(t *testing.T) {
	svc, repo, _, guard, pub := newTestService()
	seedTwoLineCart(t, repo, guard)

	txID, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{
		UserID:          "user123",
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)
	require.NotEmpty(t, txID)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, events.TopicCheckoutInitiated, msgs[0].topic)
	assert.Equal(t, txID, msgs[0].key)

	ev, ok := msgs[0].payload.(events.CheckoutInitiated)
	require.True(t, ok)
	assert.Equal(t, txID, ev.TransactionID)
	assert.Equal(t, "user123", ev.UserID)
	require.Len(t, ev.Items, 2)
	assert.Equal(t, 10, ev.Items[0].Available)
	assert.Empty(t, ev.SelectedItems)

	stored, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, txID, stored.TransactionID)
}

func TestInitiateCheckout_Selection(t *testing.T) {
	svc, repo, _, guard, pub := newTestService()
	seedTwoLineCart(t, repo, guard)

	selection := []domain.LineKey{{ProductID: 2, Color: "red"}}
	txID, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{
		UserID:    "user123",
		Selection: selection,
	})
	require.NoError(t, err)

	ev := pub.published()[0].payload.(events.CheckoutInitiated)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, int64(2), ev.Items[0].ProductID)
	assert.Equal(t, selection, ev.SelectedItems)
	assert.NotEmpty(t, txID)
}

func TestInitiateCheckout_EmptyCart(t *testing.T) {
	svc, _, _, _, pub := newTestService()

	_, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{UserID: "user123"})
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, pub.published())
}

func TestInitiateCheckout_AlreadyPending(t *testing.T) {
	svc, repo, _, guard, _ := newTestService()
	seedTwoLineCart(t, repo, guard)

	_, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{UserID: "user123"})
	require.NoError(t, err)

	_, err = svc.InitiateCheckout(context.Background(), CheckoutRequest{UserID: "user123"})
	assert.ErrorIs(t, err, ErrCheckoutInFlight)
}

func TestInitiateCheckout_SelectionMatchesNothing(t *testing.T) {
	svc, repo, _, guard, pub := newTestService()
	seedTwoLineCart(t, repo, guard)

	_, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{
		UserID:    "user123",
		Selection: []domain.LineKey{{ProductID: 42, Color: "green"}},
	})
	assert.ErrorIs(t, err, ErrNoValidItemsSelected)
	assert.Empty(t, pub.published())
}

func TestInitiateCheckout_RevalidatesAvailability(t *testing.T) {
	svc, repo, _, guard, pub := newTestService()
	seedTwoLineCart(t, repo, guard)

	// Stock dropped below the cart quantity since the item was added.
	guard.set(1, "black", "Wireless Mouse", "19.99", 1)

	_, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{UserID: "user123"})
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.Empty(t, pub.published())

	stored, err := repo.GetCart(context.Background(), "user123")
	require.NoError(t, err)
	assert.Empty(t, stored.TransactionID)
}

func TestInitiateCheckout_PublishFailureReleasesStamp(t *testing.T) {
	svc, repo, _, guard, pub := newTestService()
	seedTwoLineCart(t, repo, guard)
	pub.err = errors.New("broker down")

	_, err := svc.InitiateCheckout(context.Background(), CheckoutRequest{UserID: "user123"})
	require.Error(t, err)

	stored, errGet := repo.GetCart(context.Background(), "user123")
	require.NoError(t, errGet)
	assert.Empty(t, stored.TransactionID)
	assert.Len(t, stored.Items, 2)
}
