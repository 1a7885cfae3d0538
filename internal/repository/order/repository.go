package order

import (
	"context"

	"luminix/internal/domain"
)

// Repository stores platform orders keyed by the platform order id.
type Repository interface {
	// Upsert inserts or updates the order and reports whether a new row was created.
	Upsert(ctx context.Context, o domain.Order) (bool, error)
	Get(ctx context.Context, shopifyOrderID string) (*domain.Order, error)
	ListByEmail(ctx context.Context, email string, limit int) ([]domain.Order, error)
}
