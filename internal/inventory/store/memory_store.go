package store

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_checkout/internal/domain"
)

type reservationKey struct {
	orderID   string
	productID int64
	color     string
}

// MemoryStore implements ReservationStore with in-memory storage. Used in
// tests and single-binary runs.
type MemoryStore struct {
	mu           sync.RWMutex
	reservations map[reservationKey]*domain.Reservation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reservations: make(map[reservationKey]*domain.Reservation),
	}
}

func (s *MemoryStore) Insert(_ context.Context, res *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reservationKey{res.OrderID, res.ProductID, res.Color}
	if _, exists := s.reservations[key]; exists {
		return ErrDuplicateReservation
	}
	copied := *res
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	s.reservations[key] = &copied
	return nil
}

func (s *MemoryStore) ListByOrder(_ context.Context, orderID string) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Reservation
	for key, res := range s.reservations {
		if key.orderID == orderID {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatusByOrder(_ context.Context, orderID string, from, to domain.ReservationStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for key, res := range s.reservations {
		if key.orderID == orderID && res.Status == from {
			res.Status = to
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryStore) CancelExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, res := range s.reservations {
		if res.Status == domain.ReservationStatusReserved && res.ExpiresAt.Before(now) {
			res.Status = domain.ReservationStatusCancelled
			changed++
		}
	}
	return changed, nil
}
