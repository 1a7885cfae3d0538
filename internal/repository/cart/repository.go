package cart

import (
	"context"
	"time"

	"luminix/internal/domain"
)

// Repository stores one abandoned-cart snapshot per authenticated user. Last writer wins.
type Repository interface {
	Upsert(ctx context.Context, snap domain.AbandonedCart) error
	Get(ctx context.Context, userID string) (*domain.AbandonedCart, error)
	// ListIdle returns non-empty snapshots untouched for at least idleFor, oldest first.
	ListIdle(ctx context.Context, idleFor time.Duration, limit int) ([]domain.AbandonedCart, error)
	// PruneStale deletes snapshots not updated within olderThan.
	PruneStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
