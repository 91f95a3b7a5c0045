package inventory

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
	"github.com/fjod/go_checkout/internal/inventory/store"
)

const (
	reserveAttempts = 3
	reserveBackoff  = 100 * time.Millisecond
)

// Manager consumes CheckoutInitiated and turns it into RESERVED rows, or a
// compensated failure. It also reacts to the saga outcome events to confirm
// or cancel the hold. All handlers are idempotent per transaction id: a
// duplicate delivery finds the rows already present and re-emits the outcome
// their stored status implies, without new writes.
type Manager struct {
	store store.ReservationStore
	pub   bus.Publisher
	ttl   time.Duration
}

func NewManager(st store.ReservationStore, pub bus.Publisher, ttl time.Duration) *Manager {
	return &Manager{store: st, pub: pub, ttl: ttl}
}

func (m *Manager) HandleCheckoutInitiated(ctx context.Context, msg bus.Message) error {
	var ev events.CheckoutInitiated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal CheckoutInitiated: %w", err)
	}

	orderID := domain.OrderIDFor(ev.TransactionID)
	expiresAt := time.Now().Add(m.ttl)

	for _, item := range ev.Items {
		res := &domain.Reservation{
			OrderID:   orderID,
			ProductID: item.ProductID,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Status:    domain.ReservationStatusReserved,
			ExpiresAt: expiresAt,
		}

		if err := m.reserveWithRetry(ctx, res); err != nil {
			log.Printf("reservation failed for tx=%s product=%d color=%s: %v",
				ev.TransactionID, item.ProductID, item.Color, err)
			m.rollback(ctx, orderID, ev.TransactionID)
			return m.pub.Publish(ctx, events.TopicInventoryReservationFailed, ev.TransactionID,
				events.InventoryReservationFailed{
					TransactionID: ev.TransactionID,
					OrderID:       orderID,
					Items:         ev.Items,
					Reason:        err.Error(),
				})
		}
	}

	return m.pub.Publish(ctx, events.TopicInventoryReserved, ev.TransactionID,
		events.InventoryReserved{
			TransactionID: ev.TransactionID,
			OrderID:       orderID,
			Items:         ev.Items,
		})
}

// errHoldReleased marks a redelivered item whose earlier hold was cancelled,
// either by a compensating rollback or by the expiry sweep. The inventory is
// no longer held, so the redelivery must not report it as reserved.
var errHoldReleased = errors.New("reservation was already cancelled")

// reserveWithRetry absorbs transient store contention with a small bounded
// loop and linearly increasing backoff. A duplicate row is resolved against
// the stored status: only a live hold counts as done.
func (m *Manager) reserveWithRetry(ctx context.Context, res *domain.Reservation) error {
	var lastErr error
	for attempt := 1; attempt <= reserveAttempts; attempt++ {
		err := m.store.Insert(ctx, res)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrDuplicateReservation) {
			return m.resolveDuplicate(ctx, res)
		}
		lastErr = err

		if attempt < reserveAttempts {
			select {
			case <-time.After(time.Duration(attempt) * reserveBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// resolveDuplicate decides what an existing row means for a redelivered
// CheckoutInitiated. RESERVED and CONFIRMED rows are a prior successful
// delivery of the same event; a CANCELLED row means the hold was released
// in between, so re-emitting InventoryReserved would let payment charge
// for inventory nobody holds.
func (m *Manager) resolveDuplicate(ctx context.Context, res *domain.Reservation) error {
	rows, err := m.store.ListByOrder(ctx, res.OrderID)
	if err != nil {
		return fmt.Errorf("inspect existing reservations for order %s: %w", res.OrderID, err)
	}
	for _, row := range rows {
		if row.ProductID == res.ProductID && row.Color == res.Color {
			if row.Status == domain.ReservationStatusCancelled {
				return errHoldReleased
			}
			return nil
		}
	}
	return nil
}

// rollback cancels rows inserted before the failing item. There is no
// cross-row transaction, so the cancel is an explicit compensation.
func (m *Manager) rollback(ctx context.Context, orderID, transactionID string) {
	cancelled, err := m.store.UpdateStatusByOrder(ctx, orderID,
		domain.ReservationStatusReserved, domain.ReservationStatusCancelled)
	if err != nil {
		log.Printf("rollback of partial reservation failed for tx=%s: %v", transactionID, err)
		return
	}
	if cancelled > 0 {
		log.Printf("rolled back %d partial reservation rows for tx=%s", cancelled, transactionID)
	}
}

func (m *Manager) HandleOrderCompleted(ctx context.Context, msg bus.Message) error {
	var ev events.OrderCompleted
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal OrderCompleted: %w", err)
	}

	confirmed, err := m.store.UpdateStatusByOrder(ctx, ev.OrderID,
		domain.ReservationStatusReserved, domain.ReservationStatusConfirmed)
	if err != nil {
		return fmt.Errorf("confirm reservation for order %s: %w", ev.OrderID, err)
	}
	if confirmed == 0 {
		// Already confirmed by an earlier delivery.
		log.Printf("no RESERVED rows to confirm for order %s", ev.OrderID)
	}
	return nil
}

func (m *Manager) HandleCheckoutFailed(ctx context.Context, msg bus.Message) error {
	var ev events.CheckoutFailed
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal CheckoutFailed: %w", err)
	}

	if _, err := m.store.UpdateStatusByOrder(ctx, ev.OrderID,
		domain.ReservationStatusReserved, domain.ReservationStatusCancelled); err != nil {
		return fmt.Errorf("cancel reservation for order %s: %w", ev.OrderID, err)
	}
	return nil
}

// CancelExpired cancels RESERVED rows past their expiry. Exposed for the
// expiry sweep.
func (m *Manager) CancelExpired(ctx context.Context) (int64, error) {
	return m.store.CancelExpired(ctx, time.Now())
}

// RunExpirySweep periodically reclaims expired reservations until ctx is
// cancelled.
func (m *Manager) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cancelled, err := m.CancelExpired(ctx)
			if err != nil {
				log.Printf("expiry sweep failed: %v", err)
				continue
			}
			if cancelled > 0 {
				log.Printf("expiry sweep cancelled %d reservations", cancelled)
			}
		case <-ctx.Done():
			return
		}
	}
}
