package repository

import (
	"context"
	"sync"

	"github.com/fjod/go_checkout/internal/domain"
)

// MemoryRepository implements CartRepository with in-memory storage and the
// same version-check semantics as the Mongo implementation. Used in tests
// and single-binary runs.
type MemoryRepository struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{carts: make(map[string]*domain.Cart)}
}

func (m *MemoryRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userID]
	if !ok {
		return nil, ErrCartNotFound
	}
	copied := cloneCart(cart)
	return copied, nil
}

func (m *MemoryRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.carts[cart.UserID]
	if cart.Version == 0 {
		if exists {
			return ErrVersionConflict
		}
		cart.Version = 1
		m.carts[cart.UserID] = cloneCart(cart)
		return nil
	}

	if !exists || stored.Version != cart.Version {
		return ErrVersionConflict
	}
	cart.Version++
	m.carts[cart.UserID] = cloneCart(cart)
	return nil
}

func (m *MemoryRepository) DeleteCart(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[userID]; !ok {
		return ErrCartNotFound
	}
	delete(m.carts, userID)
	return nil
}

func cloneCart(c *domain.Cart) *domain.Cart {
	copied := *c
	copied.Items = make([]domain.CartLine, len(c.Items))
	copy(copied.Items, c.Items)
	return &copied
}
