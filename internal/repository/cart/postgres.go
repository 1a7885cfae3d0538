package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"luminix/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
	now    func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger, now: time.Now}
}

func (r *postgresRepo) Upsert(ctx context.Context, snap domain.AbandonedCart) error {
	items := snap.Items
	if items == nil {
		items = []domain.SnapshotItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal snapshot items: %w", err)
	}
	const q = `
INSERT INTO abandoned_carts (user_id, cart_id, items, total_quantity, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (user_id) DO UPDATE
SET cart_id = EXCLUDED.cart_id,
    items = EXCLUDED.items,
    total_quantity = EXCLUDED.total_quantity,
    updated_at = now()
`
	if _, err := r.pool.Exec(ctx, q, snap.UserID, snap.CartID, itemsJSON, snap.TotalQuantity); err != nil {
		r.logger.Printf("cart repo: upsert user=%s err=%v", snap.UserID, err)
		return fmt.Errorf("%w: upsert abandoned cart: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, userID string) (*domain.AbandonedCart, error) {
	const q = `
SELECT user_id::text, cart_id, items, total_quantity, updated_at
FROM abandoned_carts
WHERE user_id = $1
`
	return r.scan(r.pool.QueryRow(ctx, q, userID))
}

func (r *postgresRepo) ListIdle(ctx context.Context, idleFor time.Duration, limit int) ([]domain.AbandonedCart, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT user_id::text, cart_id, items, total_quantity, updated_at
FROM abandoned_carts
WHERE total_quantity > 0 AND updated_at < $1
ORDER BY updated_at
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, r.now().Add(-idleFor), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list idle carts: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var out []domain.AbandonedCart
	for rows.Next() {
		snap, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list idle carts: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

func (r *postgresRepo) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", domain.ErrValidation)
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM abandoned_carts WHERE updated_at < $1`, r.now().Add(-olderThan))
	if err != nil {
		r.logger.Printf("cart repo: prune err=%v", err)
		return 0, fmt.Errorf("%w: prune abandoned carts: %w", domain.ErrPersistence, err)
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.AbandonedCart, error) {
	var snap domain.AbandonedCart
	var itemsJSON []byte
	if err := row.Scan(&snap.UserID, &snap.CartID, &itemsJSON, &snap.TotalQuantity, &snap.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan abandoned cart: %w", domain.ErrPersistence, err)
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &snap.Items); err != nil {
			r.logger.Printf("cart repo: decode items user=%s err=%v", snap.UserID, err)
			return nil, err
		}
	}
	return &snap, nil
}
