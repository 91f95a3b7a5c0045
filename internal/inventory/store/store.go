package store

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_checkout/internal/domain"
)

// Common errors returned by the store
var (
	ErrDuplicateReservation = errors.New("reservation already exists")
	ErrReservationNotFound  = errors.New("reservation not found")
)

// ReservationStore persists inventory holds. Rows are keyed by
// (orderID, productID, color) and transition-only: RESERVED rows become
// CONFIRMED or CANCELLED, never mutate otherwise.
type ReservationStore interface {
	// Insert creates a RESERVED row, returning ErrDuplicateReservation when
	// the key already exists (duplicate saga delivery).
	Insert(ctx context.Context, res *domain.Reservation) error

	// ListByOrder returns all reservation rows for an order.
	ListByOrder(ctx context.Context, orderID string) ([]domain.Reservation, error)

	// UpdateStatusByOrder moves every row of an order from one status to
	// another, returning how many rows changed. Used for confirm on
	// completion and compensating cancel on failure or partial rollback.
	UpdateStatusByOrder(ctx context.Context, orderID string, from, to domain.ReservationStatus) (int64, error)

	// CancelExpired cancels RESERVED rows whose expiry is before now. The
	// expiry sweep (external or the manager's own ticker) calls this.
	CancelExpired(ctx context.Context, now time.Time) (int64, error)
}
