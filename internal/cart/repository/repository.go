package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_checkout/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrVersionConflict = errors.New("cart version conflict")
)

// CartRepository defines the interface for cart persistence. SaveCart is a
// version-checked write: it persists the cart only if the stored version
// still matches cart.Version, returning ErrVersionConflict otherwise. On
// success the cart's Version is advanced in place.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
}
