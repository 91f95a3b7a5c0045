package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_checkout/internal/cart/cache"
	"github.com/fjod/go_checkout/internal/cart/repository"
	"github.com/fjod/go_checkout/internal/domain"
)

const (
	retryAttempts = 3
	retryDelay    = 50 * time.Millisecond
)

// applyWithRetry is the optimistic-concurrency write path for every cart
// mutation. It loads the current cart, applies mutate and persists with a
// version check, retrying a bounded number of times on conflict. Only the
// store's version conflict is retryable; any error from mutate aborts
// immediately. The mutate function may run several times and must not keep
// state across calls.
func (s *CartService) applyWithRetry(ctx context.Context, userID string, mutate func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 1; ; attempt++ {
		cart, err := s.loadForWrite(ctx, userID, attempt)
		if err != nil {
			return nil, err
		}

		if errMutate := mutate(cart); errMutate != nil {
			if errors.Is(errMutate, errNoChange) {
				return cart, nil
			}
			return nil, errMutate
		}

		errSave := s.repo.SaveCart(ctx, cart)
		if errSave == nil {
			s.writeCache(userID, cart)
			return cart, nil
		}
		if !errors.Is(errSave, repository.ErrVersionConflict) {
			return nil, errSave
		}

		if attempt >= retryAttempts {
			s.invalidateCache(userID)
			return nil, ErrConcurrentModification
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// loadForWrite reads the cart for mutation. The first attempt may serve a
// cached copy; after a version conflict the cache is suspect, so retries go
// straight to the store. A missing cart auto-heals into a fresh one.
func (s *CartService) loadForWrite(ctx context.Context, userID string, attempt int) (*domain.Cart, error) {
	if attempt == 1 {
		if cached, err := s.cache.Get(ctx, userID); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(userID), nil
		}
		return nil, err
	}
	return cart, nil
}

// writeCache keeps reads warm after a successful apply.
func (s *CartService) writeCache(userID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, userID, cart); err != nil {
		log.Printf("cache set error: %v", err)
	}
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
