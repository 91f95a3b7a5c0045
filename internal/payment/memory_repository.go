package payment

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_checkout/internal/domain"
)

// MemoryRepository implements PaymentRepository with in-memory storage. Used
// in tests and single-binary runs.
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{payments: make(map[string]*domain.Payment)}
}

func (m *MemoryRepository) GetByTransaction(_ context.Context, transactionID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[transactionID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *MemoryRepository) Create(_ context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.payments[payment.TransactionID]; exists {
		return ErrDuplicatePayment
	}
	copied := *payment
	now := time.Now()
	copied.CreatedAt = now
	copied.UpdatedAt = now
	m.payments[payment.TransactionID] = &copied
	return nil
}

func (m *MemoryRepository) SetOutcome(_ context.Context, transactionID string, status domain.PaymentStatus, paymentID, failureReason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[transactionID]
	if !ok {
		return ErrPaymentNotFound
	}
	p.Status = status
	p.PaymentID = paymentID
	p.FailureReason = failureReason
	p.UpdatedAt = time.Now()
	return nil
}
