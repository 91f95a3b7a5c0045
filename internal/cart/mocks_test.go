package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_checkout/internal/cart/cache"
	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/inventory"
)

// mockCache clones carts on both Get and Set, like the Redis implementation
// which round-trips through JSON.
type mockCache struct {
	m      sync.RWMutex
	carts  map[string]*domain.Cart
	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	cart, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	copied := *cart
	copied.Items = append([]domain.CartLine(nil), cart.Items...)
	return &copied, nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	copied := *cart
	copied.Items = append([]domain.CartLine(nil), cart.Items...)
	m.carts[userID] = &copied
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *mockCache) cached(userID string) *domain.Cart {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.carts[userID]
}

type availabilityKey struct {
	productID int64
	color     string
}

// mockGuard serves canned availability answers in place of the circuit
// breaker.
type mockGuard struct {
	m     sync.Mutex
	avail map[availabilityKey]*inventory.Availability
	err   error
	calls int
}

func newMockGuard() *mockGuard {
	return &mockGuard{avail: make(map[availabilityKey]*inventory.Availability)}
}

func (g *mockGuard) set(productID int64, color, name, price string, quantity int) {
	g.m.Lock()
	defer g.m.Unlock()
	g.avail[availabilityKey{productID, color}] = &inventory.Availability{
		ProductID:   productID,
		Color:       color,
		ProductName: name,
		UnitPrice:   price,
		Quantity:    quantity,
	}
}

func (g *mockGuard) CheckAvailability(_ context.Context, productID int64, color string) (*inventory.Availability, error) {
	g.m.Lock()
	defer g.m.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	avail, ok := g.avail[availabilityKey{productID, color}]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	copied := *avail
	return &copied, nil
}

type publishedMessage struct {
	topic   string
	key     string
	payload any
}

type mockPublisher struct {
	m        sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *mockPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{topic: topic, key: key, payload: payload})
	return nil
}

func (p *mockPublisher) published() []publishedMessage {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]publishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// conflictRepository rejects every save with a version conflict.
type conflictRepository struct{}

func (conflictRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	cart := domain.NewCart(userID)
	cart.Version = 1
	return cart, nil
}

func (conflictRepository) SaveCart(context.Context, *domain.Cart) error {
	return fmt.Errorf("save: %w", repository.ErrVersionConflict)
}

func (conflictRepository) DeleteCart(context.Context, string) error {
	return nil
}
