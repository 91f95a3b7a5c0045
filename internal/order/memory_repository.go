package order

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_checkout/internal/domain"
)

// MemoryRepository implements OrderRepository with in-memory storage. Used
// in tests and single-binary runs.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]*domain.Order)}
}

func (m *MemoryRepository) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.TransactionID]; exists {
		return ErrDuplicateOrder
	}
	copied := cloneOrder(order)
	now := time.Now()
	copied.CreatedAt = now
	copied.UpdatedAt = now
	m.orders[order.TransactionID] = copied
	return nil
}

func (m *MemoryRepository) GetByTransaction(_ context.Context, transactionID string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[transactionID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, transactionID string, from, to domain.CheckoutStatus, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[transactionID]
	if !ok || o.Status != from {
		return ErrStaleTransition
	}
	o.Status = to
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	o.UpdatedAt = time.Now()
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	copied := *o
	copied.Items = make([]domain.OrderLine, len(o.Items))
	copy(copied.Items, o.Items)
	copied.SelectedItems = make([]domain.LineKey, len(o.SelectedItems))
	copy(copied.SelectedItems, o.SelectedItems)
	return &copied
}
