package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
)

// HandleOrderCompleted drops the checked-out items from the cart and clears
// the transaction stamp. An event whose transaction id no longer matches the
// cart's stamp (stale delivery, or a later transaction superseded it) is a
// logged no-op.
func (s *CartService) HandleOrderCompleted(ctx context.Context, msg bus.Message) error {
	var ev events.OrderCompleted
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal OrderCompleted: %w", err)
	}

	_, err := s.applyWithRetry(ctx, ev.UserID, func(cart *domain.Cart) error {
		if cart.TransactionID != ev.TransactionID {
			log.Printf("transaction mismatch on OrderCompleted for user=%s: cart=%q event=%q, ignoring",
				ev.UserID, cart.TransactionID, ev.TransactionID)
			return errNoChange
		}

		if len(ev.SelectedItems) == 0 {
			cart.Items = nil
		} else {
			for _, key := range ev.SelectedItems {
				cart.RemoveLine(key.ProductID, key.Color)
			}
		}
		cart.TransactionID = ""
		return cart.RecomputeTotal()
	})
	return err
}

// HandleCheckoutFailed clears the transaction stamp only, preserving the
// cart contents so the user can retry. The same transaction-id equality
// check guards against stale or duplicate deliveries.
func (s *CartService) HandleCheckoutFailed(ctx context.Context, msg bus.Message) error {
	var ev events.CheckoutFailed
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal CheckoutFailed: %w", err)
	}

	_, err := s.applyWithRetry(ctx, ev.UserID, func(cart *domain.Cart) error {
		if cart.TransactionID != ev.TransactionID {
			log.Printf("transaction mismatch on CheckoutFailed for user=%s: cart=%q event=%q, ignoring",
				ev.UserID, cart.TransactionID, ev.TransactionID)
			return errNoChange
		}
		cart.TransactionID = ""
		return nil
	})
	return err
}
