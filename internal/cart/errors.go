package cart

import "errors"

var (
	// ErrConcurrentModification is surfaced after the bounded optimistic
	// retries are exhausted.
	ErrConcurrentModification = errors.New("cart was modified concurrently")

	// ErrCheckoutInFlight rejects item mutations while a saga is pending.
	ErrCheckoutInFlight = errors.New("checkout already in progress for this cart")

	ErrEmptyCart             = errors.New("cart is empty, nothing to checkout")
	ErrNoValidItemsSelected  = errors.New("selection matches no items in the cart")
	ErrItemNotFound          = errors.New("item not found in cart")
	ErrInvalidItem           = errors.New("invalid item")
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// errNoChange short-circuits applyWithRetry without persisting: the mutation
// decided nothing needs to happen (stale compensation events).
var errNoChange = errors.New("no change")
