// Package wishlist mirrors a customer's wishlist into a platform customer metafield.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"luminix/internal/commerce"
	"luminix/internal/domain"
)

type metafieldStore interface {
	GetWishlist(ctx context.Context, customerID string) ([]string, string, error)
	SetWishlist(ctx context.Context, customerID string, ids []string, compareDigest string) ([]string, error)
}

// maxAttempts bounds read-modify-write retries after a concurrent write.
const maxAttempts = 3

type Service struct {
	store  metafieldStore
	logger *log.Logger
}

func New(store metafieldStore, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{store: store, logger: logger}
}

// Sync returns the stored product ids, empty when none were saved.
func (s *Service) Sync(ctx context.Context, customerID string) ([]string, error) {
	ids, _, err := s.store.GetWishlist(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Add appends productID unless it is already present.
func (s *Service) Add(ctx context.Context, customerID, productID string) ([]string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: productId is required", domain.ErrValidation)
	}
	return s.modify(ctx, customerID, func(ids []string) ([]string, bool) {
		for _, id := range ids {
			if id == productID {
				return ids, false
			}
		}
		return append(ids, productID), true
	})
}

// Remove deletes productID from the wishlist. Removing an absent id is a no-op.
func (s *Service) Remove(ctx context.Context, customerID, productID string) ([]string, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, fmt.Errorf("%w: productId is required", domain.ErrValidation)
	}
	return s.modify(ctx, customerID, func(ids []string) ([]string, bool) {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != productID {
				out = append(out, id)
			}
		}
		return out, len(out) != len(ids)
	})
}

func (s *Service) modify(ctx context.Context, customerID string, change func([]string) ([]string, bool)) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ids, digest, err := s.store.GetWishlist(ctx, customerID)
		if err != nil {
			return nil, err
		}
		next, changed := change(ids)
		if !changed {
			return next, nil
		}
		saved, err := s.store.SetWishlist(ctx, customerID, next, digest)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, commerce.ErrStaleDigest) {
			return nil, err
		}
		lastErr = err
		s.logger.Printf("wishlist: concurrent write customer=%s attempt=%d", customerID, attempt)
	}
	return nil, fmt.Errorf("%w: wishlist update gave up after %d attempts: %w", domain.ErrUpstream, maxAttempts, lastErr)
}
