package order

import (
	"context"
	"errors"

	"github.com/fjod/go_checkout/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateOrder  = errors.New("order already exists for transaction")
	ErrStaleTransition = errors.New("order status changed concurrently")
)

// OrderRepository persists one order per transaction id. UpdateStatus is a
// conditional transition: it only applies when the stored status still
// matches from, so duplicate or out-of-order events surface as
// ErrStaleTransition instead of clobbering a terminal state.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByTransaction(ctx context.Context, transactionID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, transactionID string, from, to domain.CheckoutStatus, paymentID string) error
}
