package payment

import (
	"context"
	"errors"

	"github.com/fjod/go_checkout/internal/domain"
)

var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("payment already exists for transaction")
)

// PaymentRepository persists at most one Payment row per transaction id.
type PaymentRepository interface {
	GetByTransaction(ctx context.Context, transactionID string) (*domain.Payment, error)
	Create(ctx context.Context, payment *domain.Payment) error
	SetOutcome(ctx context.Context, transactionID string, status domain.PaymentStatus, paymentID, failureReason string) error
}
