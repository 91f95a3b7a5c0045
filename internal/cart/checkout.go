package cart

import (
	"context"
	"log"

	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/google/uuid"
)

// CheckoutRequest carries the caller's checkout intent. An empty Selection
// checks out the whole cart.
type CheckoutRequest struct {
	UserID          string
	Selection       []domain.LineKey
	ShippingAddress string
	PaymentMethod   string
}

// InitiateCheckout validates the selected lines, re-checks availability for
// each one (the numbers used for display may be stale by now), stamps a new
// transaction id onto the cart and emits CheckoutInitiated. The stamp goes
// through the concurrency controller so it cannot race with a concurrent
// item mutation, and it blocks further item mutations until the saga
// resolves.
func (s *CartService) InitiateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	var transactionID string
	var items []events.Item

	_, err := s.applyWithRetry(ctx, req.UserID, func(cart *domain.Cart) error {
		// Reset per attempt: the mutation may run more than once.
		transactionID = ""
		items = nil

		if cart.CheckoutPending() {
			return ErrCheckoutInFlight
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		selected := selectLines(cart, req.Selection)
		if len(selected) == 0 {
			return ErrNoValidItemsSelected
		}

		// Mandatory re-validation of every selected line at checkout time.
		for _, line := range selected {
			avail, err := s.guard.CheckAvailability(ctx, line.ProductID, line.Color)
			if err != nil {
				return err
			}
			if line.Quantity > avail.Quantity {
				return ErrInsufficientInventory
			}
			items = append(items, events.Item{
				ProductID:   line.ProductID,
				Color:       line.Color,
				ProductName: line.ProductName,
				Price:       line.UnitPrice,
				Quantity:    line.Quantity,
				Available:   avail.Quantity,
			})
		}

		transactionID = uuid.New().String()
		cart.TransactionID = transactionID
		return nil
	})
	if err != nil {
		return "", err
	}

	errPublish := s.pub.Publish(ctx, events.TopicCheckoutInitiated, transactionID,
		events.CheckoutInitiated{
			TransactionID:   transactionID,
			UserID:          req.UserID,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			SelectedItems:   req.Selection,
		})
	if errPublish != nil {
		// The saga never started; release the stamp so the cart is usable.
		s.unstamp(ctx, req.UserID, transactionID)
		return "", errPublish
	}

	return transactionID, nil
}

func selectLines(cart *domain.Cart, selection []domain.LineKey) []domain.CartLine {
	if len(selection) == 0 {
		return cart.Items
	}

	var out []domain.CartLine
	for _, key := range selection {
		if line := cart.Line(key.ProductID, key.Color); line != nil {
			out = append(out, *line)
		}
	}
	return out
}

// unstamp clears the transaction stamp if it still matches, best effort.
func (s *CartService) unstamp(ctx context.Context, userID, transactionID string) {
	_, err := s.applyWithRetry(ctx, userID, func(cart *domain.Cart) error {
		if cart.TransactionID != transactionID {
			return errNoChange
		}
		cart.TransactionID = ""
		return nil
	})
	if err != nil {
		log.Printf("failed to release checkout stamp for user=%s tx=%s: %v", userID, transactionID, err)
	}
}
