package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/fjod/go_checkout/internal/metrics"
)

const (
	orderWaitAttempts = 5
	orderWaitBackoff  = 100 * time.Millisecond
)

// Finalizer owns the per-transaction saga state machine. It creates the
// order when a checkout starts, advances it on each saga event and emits
// the terminal OrderCompleted / CheckoutFailed events that drive
// compensation. Stale or duplicate events fail the conditional status
// transition and are logged no-ops; events that merely outran an earlier
// one are waited out with a bounded retry.
type Finalizer struct {
	repo OrderRepository
	pub  bus.Publisher
	saga *metrics.SagaMetrics
}

func NewFinalizer(repo OrderRepository, pub bus.Publisher, saga *metrics.SagaMetrics) *Finalizer {
	return &Finalizer{repo: repo, pub: pub, saga: saga}
}

func (f *Finalizer) HandleCheckoutInitiated(ctx context.Context, msg bus.Message) error {
	var ev events.CheckoutInitiated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal CheckoutInitiated: %w", err)
	}

	lines := make([]domain.OrderLine, len(ev.Items))
	for i, item := range ev.Items {
		lines[i] = domain.OrderLine{
			ProductID:   item.ProductID,
			Color:       item.Color,
			ProductName: item.ProductName,
			UnitPrice:   item.Price,
			Quantity:    item.Quantity,
		}
	}

	order := &domain.Order{
		ID:              domain.OrderIDFor(ev.TransactionID),
		TransactionID:   ev.TransactionID,
		UserID:          ev.UserID,
		Status:          domain.CheckoutStatusInitiated,
		Items:           lines,
		SelectedItems:   ev.SelectedItems,
		ShippingAddress: ev.ShippingAddress,
		PaymentMethod:   ev.PaymentMethod,
	}

	if err := f.repo.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			log.Printf("order for tx=%s already exists, skipping", ev.TransactionID)
			return nil
		}
		return fmt.Errorf("create order for tx=%s: %w", ev.TransactionID, err)
	}
	return nil
}

func (f *Finalizer) HandleInventoryReserved(ctx context.Context, msg bus.Message) error {
	var ev events.InventoryReserved
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal InventoryReserved: %w", err)
	}

	_, err := f.transition(ctx, ev.TransactionID, domain.CheckoutStatusReserved, "")
	return err
}

func (f *Finalizer) HandleInventoryReservationFailed(ctx context.Context, msg bus.Message) error {
	var ev events.InventoryReservationFailed
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal InventoryReservationFailed: %w", err)
	}
	return f.fail(ctx, ev.TransactionID, ev.OrderID, ev.Reason)
}

func (f *Finalizer) HandlePaymentSucceeded(ctx context.Context, msg bus.Message) error {
	var ev events.PaymentSucceeded
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal PaymentSucceeded: %w", err)
	}

	// PaymentSucceeded can overtake the InventoryReserved handler because
	// every topic has its own reader, so INITIATED here usually means "not
	// yet", not "never".
	order, err := f.awaitOrder(ctx, ev.TransactionID, func(s domain.CheckoutStatus) bool {
		return s != domain.CheckoutStatusInitiated
	})
	if err != nil {
		return err
	}

	advanced := false
	if domain.CanTransitionTo(order.Status, domain.CheckoutStatusCompleted) {
		errUpdate := f.repo.UpdateStatus(ctx, ev.TransactionID, order.Status, domain.CheckoutStatusCompleted, ev.PaymentID)
		switch {
		case errUpdate == nil:
			advanced = true
		case errors.Is(errUpdate, ErrStaleTransition):
			// Lost a race; whoever won emits the terminal event.
			log.Printf("order for tx=%s changed concurrently, dropping COMPLETED transition", ev.TransactionID)
			return nil
		default:
			return fmt.Errorf("complete order for tx=%s: %w", ev.TransactionID, errUpdate)
		}
	} else if order.Status != domain.CheckoutStatusCompleted {
		log.Printf("ignoring stale PaymentSucceeded for tx=%s in status %s", ev.TransactionID, order.Status)
		return nil
	}

	// On a duplicate delivery of an already-COMPLETED order the event is
	// re-emitted, so a crash between the status update and the publish
	// cannot lose OrderCompleted. Downstream consumers tolerate replays.
	if advanced {
		f.saga.SagasCompleted.Inc()
	}
	return f.pub.Publish(ctx, events.TopicOrderCompleted, ev.TransactionID,
		events.OrderCompleted{
			TransactionID: ev.TransactionID,
			UserID:        order.UserID,
			OrderID:       order.ID,
			PaymentID:     ev.PaymentID,
			SelectedItems: order.SelectedItems,
		})
}

func (f *Finalizer) HandlePaymentFailed(ctx context.Context, msg bus.Message) error {
	var ev events.PaymentFailed
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal PaymentFailed: %w", err)
	}
	return f.fail(ctx, ev.TransactionID, ev.OrderID, ev.Reason)
}

// awaitOrder loads the order for a saga event, retrying with backoff while
// the row does not exist yet or ready still rejects its status. Saga topics
// are consumed by independent readers, so an event can arrive before the
// handler for the one preceding it has run; since messages are committed
// regardless of handler outcome, treating that as permanent would wedge the
// saga. A nil ready accepts any stored order.
func (f *Finalizer) awaitOrder(ctx context.Context, transactionID string, ready func(domain.CheckoutStatus) bool) (*domain.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= orderWaitAttempts; attempt++ {
		order, err := f.repo.GetByTransaction(ctx, transactionID)
		switch {
		case err == nil && (ready == nil || ready(order.Status)):
			return order, nil
		case err == nil:
			lastErr = fmt.Errorf("order for tx=%s still %s", transactionID, order.Status)
		case errors.Is(err, ErrOrderNotFound):
			lastErr = fmt.Errorf("load order for tx=%s: %w", transactionID, err)
		default:
			return nil, fmt.Errorf("load order for tx=%s: %w", transactionID, err)
		}

		if attempt < orderWaitAttempts {
			select {
			case <-time.After(time.Duration(attempt) * orderWaitBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

// transition advances the order to next if the saga state machine allows it
// from the currently stored status. A stale or duplicate event loses the
// conditional update and is dropped with a log line. Returns whether the
// stored row actually advanced.
func (f *Finalizer) transition(ctx context.Context, transactionID string, next domain.CheckoutStatus, paymentID string) (bool, error) {
	order, err := f.awaitOrder(ctx, transactionID, nil)
	if err != nil {
		return false, err
	}

	if !domain.CanTransitionTo(order.Status, next) {
		log.Printf("ignoring stale event for tx=%s: %s -> %s is not a legal transition",
			transactionID, order.Status, next)
		return false, nil
	}

	if err := f.repo.UpdateStatus(ctx, transactionID, order.Status, next, paymentID); err != nil {
		if errors.Is(err, ErrStaleTransition) {
			log.Printf("order for tx=%s changed concurrently, dropping %s transition", transactionID, next)
			return false, nil
		}
		return false, fmt.Errorf("transition order for tx=%s to %s: %w", transactionID, next, err)
	}
	return true, nil
}

func (f *Finalizer) fail(ctx context.Context, transactionID, orderID, reason string) error {
	order, err := f.awaitOrder(ctx, transactionID, nil)
	if err != nil {
		return err
	}

	advanced := false
	if domain.CanTransitionTo(order.Status, domain.CheckoutStatusFailed) {
		errUpdate := f.repo.UpdateStatus(ctx, transactionID, order.Status, domain.CheckoutStatusFailed, "")
		switch {
		case errUpdate == nil:
			advanced = true
		case errors.Is(errUpdate, ErrStaleTransition):
			log.Printf("order for tx=%s changed concurrently, dropping failure", transactionID)
			return nil
		default:
			return fmt.Errorf("fail order for tx=%s: %w", transactionID, errUpdate)
		}
	} else if order.Status != domain.CheckoutStatusFailed {
		// A failure event after COMPLETED is stale, never a compensation.
		log.Printf("ignoring stale failure event for tx=%s in status %s", transactionID, order.Status)
		return nil
	}

	identifiers := order.SelectedItems
	if len(identifiers) == 0 {
		identifiers = make([]domain.LineKey, len(order.Items))
		for i, line := range order.Items {
			identifiers[i] = domain.LineKey{ProductID: line.ProductID, Color: line.Color}
		}
	}

	// Re-emitted on duplicate deliveries of an already-FAILED order for the
	// same crash-recovery reason as OrderCompleted.
	if advanced {
		f.saga.SagasFailed.Inc()
	}
	return f.pub.Publish(ctx, events.TopicCheckoutFailed, transactionID,
		events.CheckoutFailed{
			TransactionID:      transactionID,
			UserID:             order.UserID,
			OrderID:            orderID,
			ProductIdentifiers: identifiers,
			Reason:             reason,
		})
}
