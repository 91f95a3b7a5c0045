package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrServiceUnavailable is returned when the breaker is open and the lookup
// is skipped entirely.
var ErrServiceUnavailable = errors.New("inventory lookup unavailable")

// AvailabilityGuard wraps the remote inventory lookup behind a circuit
// breaker. While the breaker is open callers fail fast instead of blocking
// on a dependency that is known to be down.
type AvailabilityGuard struct {
	lookup  ProductLookup
	breaker *gobreaker.CircuitBreaker[*Availability]
}

func NewAvailabilityGuard(lookup ProductLookup) *AvailabilityGuard {
	settings := gobreaker.Settings{
		Name:        "inventory-lookup",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing product is an answer, not a lookup failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	}
	return &AvailabilityGuard{
		lookup:  lookup,
		breaker: gobreaker.NewCircuitBreaker[*Availability](settings),
	}
}

// CheckAvailability returns the available quantity, unit price and name for
// a product variant, or ErrServiceUnavailable when the breaker is open.
func (g *AvailabilityGuard) CheckAvailability(ctx context.Context, productID int64, color string) (*Availability, error) {
	avail, err := g.breaker.Execute(func() (*Availability, error) {
		return g.lookup.Lookup(ctx, productID, color)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}
	return avail, nil
}

// State exposes the breaker state (for health reporting).
func (g *AvailabilityGuard) State() gobreaker.State {
	return g.breaker.State()
}
