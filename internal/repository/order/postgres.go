package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"luminix/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const orderColumns = `shopify_order_id, order_number, customer_email, customer_name, customer_phone,
       total_price::text, currency, financial_status, fulfillment_status, line_items,
       shipping_address, billing_address, order_status_url, processed_at`

func (r *postgresRepo) Upsert(ctx context.Context, o domain.Order) (bool, error) {
	items := o.LineItems
	if items == nil {
		items = []domain.OrderLineItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal line items: %w", err)
	}
	const q = `
INSERT INTO orders (
    shopify_order_id, order_number, customer_email, customer_name, customer_phone, total_price, currency,
    financial_status, fulfillment_status, line_items, shipping_address, billing_address, order_status_url, processed_at
) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (shopify_order_id) DO UPDATE
SET order_number = EXCLUDED.order_number,
    customer_email = EXCLUDED.customer_email,
    customer_name = EXCLUDED.customer_name,
    customer_phone = EXCLUDED.customer_phone,
    total_price = EXCLUDED.total_price,
    currency = EXCLUDED.currency,
    financial_status = EXCLUDED.financial_status,
    fulfillment_status = EXCLUDED.fulfillment_status,
    line_items = EXCLUDED.line_items,
    shipping_address = EXCLUDED.shipping_address,
    billing_address = EXCLUDED.billing_address,
    order_status_url = EXCLUDED.order_status_url,
    processed_at = EXCLUDED.processed_at,
    updated_at = now()
RETURNING (xmax = 0)
`
	var inserted bool
	err = r.pool.QueryRow(ctx, q,
		o.ShopifyOrderID,
		o.OrderNumber,
		o.CustomerEmail,
		o.CustomerName,
		o.CustomerPhone,
		o.TotalPrice.StringFixed(2),
		o.Currency,
		o.FinancialStatus,
		o.FulfillmentStatus,
		itemsJSON,
		nullableJSON(o.ShippingAddress),
		nullableJSON(o.BillingAddress),
		o.OrderStatusURL,
		o.ProcessedAt,
	).Scan(&inserted)
	if err != nil {
		r.logger.Printf("order repo: upsert id=%s err=%v", o.ShopifyOrderID, err)
		return false, fmt.Errorf("%w: upsert order: %w", domain.ErrPersistence, err)
	}
	return inserted, nil
}

func (r *postgresRepo) Get(ctx context.Context, shopifyOrderID string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE shopify_order_id = $1`
	return r.scan(r.pool.QueryRow(ctx, q, shopifyOrderID))
}

func (r *postgresRepo) ListByEmail(ctx context.Context, email string, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := `SELECT ` + orderColumns + `
FROM orders
WHERE lower(customer_email) = $1
ORDER BY processed_at DESC NULLS LAST, created_at DESC
LIMIT $2`
	rows, err := r.pool.Query(ctx, q, strings.ToLower(strings.TrimSpace(email)), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	out := []domain.Order{}
	for rows.Next() {
		o, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}
	return out, nil
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.Order, error) {
	var (
		o                 domain.Order
		total             string
		itemsJSON         []byte
		shipping, billing []byte
	)
	err := row.Scan(
		&o.ShopifyOrderID,
		&o.OrderNumber,
		&o.CustomerEmail,
		&o.CustomerName,
		&o.CustomerPhone,
		&total,
		&o.Currency,
		&o.FinancialStatus,
		&o.FulfillmentStatus,
		&itemsJSON,
		&shipping,
		&billing,
		&o.OrderStatusURL,
		&o.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scan order: %w", domain.ErrPersistence, err)
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode total_price %q: %w", total, err)
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.LineItems); err != nil {
			r.logger.Printf("order repo: decode line items id=%s err=%v", o.ShopifyOrderID, err)
			return nil, err
		}
	}
	o.ShippingAddress = shipping
	o.BillingAddress = billing
	return &o, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}
