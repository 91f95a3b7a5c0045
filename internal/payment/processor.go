package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/events"
	"github.com/shopspring/decimal"
)

// Processor captures payments for reserved checkouts, idempotently per
// transaction id: a payment row that already carries an outcome is replayed
// as its event instead of charging again. A row found PENDING (a crash
// between charge and record) is resumed, which is why the transaction id is
// forwarded to the gateway as its idempotency key.
type Processor struct {
	repo    PaymentRepository
	gateway Gateway
	pub     bus.Publisher
}

func NewProcessor(repo PaymentRepository, gateway Gateway, pub bus.Publisher) *Processor {
	return &Processor{repo: repo, gateway: gateway, pub: pub}
}

func (p *Processor) HandleInventoryReserved(ctx context.Context, msg bus.Message) error {
	var ev events.InventoryReserved
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return fmt.Errorf("unmarshal InventoryReserved: %w", err)
	}

	existing, err := p.repo.GetByTransaction(ctx, ev.TransactionID)
	if err != nil && !errors.Is(err, ErrPaymentNotFound) {
		return fmt.Errorf("failed to check payment idempotency: %w", err)
	}

	if existing != nil && existing.Status != domain.PaymentStatusPending {
		log.Printf("duplicate payment request for tx=%s, replaying recorded %s outcome",
			ev.TransactionID, existing.Status)
		return p.emitOutcome(ctx, &ev, existing)
	}

	amount, err := totalAmount(ev.Items)
	if err != nil {
		return fmt.Errorf("compute charge amount for tx=%s: %w", ev.TransactionID, err)
	}

	if existing == nil {
		pending := &domain.Payment{
			TransactionID: ev.TransactionID,
			OrderID:       ev.OrderID,
			Amount:        amount,
			Status:        domain.PaymentStatusPending,
		}
		if errCreate := p.repo.Create(ctx, pending); errCreate != nil {
			if errors.Is(errCreate, ErrDuplicatePayment) {
				// Lost a race against a concurrent delivery; let that one win.
				log.Printf("concurrent payment creation for tx=%s, skipping", ev.TransactionID)
				return nil
			}
			return fmt.Errorf("create pending payment: %w", errCreate)
		}
	}

	// The row must never stay PENDING: any charge error, expected or not,
	// is recorded as FAILED with its message as the reason.
	paymentID, chargeErr := p.gateway.Charge(ctx, ChargeRequest{
		TransactionID: ev.TransactionID,
		OrderID:       ev.OrderID,
		Amount:        amount,
	})
	if chargeErr != nil {
		if errSet := p.repo.SetOutcome(ctx, ev.TransactionID, domain.PaymentStatusFailed, "", chargeErr.Error()); errSet != nil {
			return fmt.Errorf("record failed payment for tx=%s: %w", ev.TransactionID, errSet)
		}
		return p.pub.Publish(ctx, events.TopicPaymentFailed, ev.TransactionID,
			events.PaymentFailed{
				TransactionID: ev.TransactionID,
				OrderID:       ev.OrderID,
				Reason:        chargeErr.Error(),
			})
	}

	if errSet := p.repo.SetOutcome(ctx, ev.TransactionID, domain.PaymentStatusSuccess, paymentID, ""); errSet != nil {
		return fmt.Errorf("record successful payment for tx=%s: %w", ev.TransactionID, errSet)
	}
	return p.pub.Publish(ctx, events.TopicPaymentSucceeded, ev.TransactionID,
		events.PaymentSucceeded{
			TransactionID: ev.TransactionID,
			OrderID:       ev.OrderID,
			PaymentID:     paymentID,
			Items:         ev.Items,
		})
}

func (p *Processor) emitOutcome(ctx context.Context, ev *events.InventoryReserved, payment *domain.Payment) error {
	switch payment.Status {
	case domain.PaymentStatusSuccess:
		return p.pub.Publish(ctx, events.TopicPaymentSucceeded, ev.TransactionID,
			events.PaymentSucceeded{
				TransactionID: ev.TransactionID,
				OrderID:       payment.OrderID,
				PaymentID:     payment.PaymentID,
				Items:         ev.Items,
			})
	case domain.PaymentStatusFailed:
		return p.pub.Publish(ctx, events.TopicPaymentFailed, ev.TransactionID,
			events.PaymentFailed{
				TransactionID: ev.TransactionID,
				OrderID:       payment.OrderID,
				Reason:        payment.FailureReason,
			})
	default:
		return fmt.Errorf("cannot replay payment in status %s", payment.Status)
	}
}

func totalAmount(items []events.Item) (string, error) {
	total := decimal.Zero
	for _, item := range items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return "", fmt.Errorf("invalid price %q for product %d: %w", item.Price, item.ProductID, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.String(), nil
}
