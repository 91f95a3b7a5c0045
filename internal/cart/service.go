package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_checkout/internal/bus"
	"github.com/fjod/go_checkout/internal/cart/cache"
	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/domain"
	"github.com/fjod/go_checkout/internal/inventory"
	"golang.org/x/sync/singleflight"
)

// AvailabilityChecker is the slice of the availability guard the cart needs.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, productID int64, color string) (*inventory.Availability, error)
}

// CartService is the cart aggregate: every mutation goes through the
// optimistic-concurrency controller and, for quantity changes, the
// availability guard.
type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	guard AvailabilityChecker
	pub   bus.Publisher
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, guard AvailabilityChecker, pub bus.Publisher) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
		guard: guard,
		pub:   pub,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return domain.NewCart(userID), nil // not found cart return empty cart
		}
		if errGet != nil {
			return nil, errGet
		}

		// set cache
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(cctx, userID, cart); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem puts quantity more units of a product variant into the cart. The
// availability check runs inside the mutation so a conflict retry re-checks
// against fresh numbers instead of reusing a stale snapshot, and compares
// the line's running total, not just the delta.
func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, color string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidItem
	}

	return s.applyWithRetry(ctx, userID, func(cart *domain.Cart) error {
		if cart.CheckoutPending() {
			return ErrCheckoutInFlight
		}

		avail, err := s.guard.CheckAvailability(ctx, productID, color)
		if err != nil {
			return err
		}

		existing := 0
		if line := cart.Line(productID, color); line != nil {
			existing = line.Quantity
		}
		if existing+quantity > avail.Quantity {
			return ErrInsufficientInventory
		}

		now := time.Now()
		if line := cart.Line(productID, color); line != nil {
			line.Quantity += quantity
			line.ProductName = avail.ProductName
			line.UnitPrice = avail.UnitPrice
			line.AddedAt = now
		} else {
			cart.Items = append(cart.Items, domain.CartLine{
				ProductID:   productID,
				Color:       color,
				ProductName: avail.ProductName,
				UnitPrice:   avail.UnitPrice,
				Quantity:    quantity,
				AddedAt:     now,
			})
		}
		return cart.RecomputeTotal()
	})
}

// UpdateQuantity sets the absolute quantity of an existing line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID int64, color string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidItem
	}

	return s.applyWithRetry(ctx, userID, func(cart *domain.Cart) error {
		if cart.CheckoutPending() {
			return ErrCheckoutInFlight
		}

		line := cart.Line(productID, color)
		if line == nil {
			return ErrItemNotFound
		}

		avail, err := s.guard.CheckAvailability(ctx, productID, color)
		if err != nil {
			return err
		}
		if quantity > avail.Quantity {
			return ErrInsufficientInventory
		}

		line.Quantity = quantity
		line.ProductName = avail.ProductName
		line.UnitPrice = avail.UnitPrice
		return cart.RecomputeTotal()
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64, color string) (*domain.Cart, error) {
	return s.applyWithRetry(ctx, userID, func(cart *domain.Cart) error {
		if cart.CheckoutPending() {
			return ErrCheckoutInFlight
		}
		if !cart.RemoveLine(productID, color) {
			return ErrItemNotFound
		}
		return cart.RecomputeTotal()
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.applyWithRetry(ctx, userID, func(cart *domain.Cart) error {
		if cart.CheckoutPending() {
			return ErrCheckoutInFlight
		}
		cart.Items = nil
		return cart.RecomputeTotal()
	})
}
