package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"luminix/internal/domain"
)

type profileWriter interface {
	Upsert(ctx context.Context, p domain.Profile) (*domain.Profile, error)
}

type snapshotWriter interface {
	Upsert(ctx context.Context, snap domain.AbandonedCart) error
}

type orderWriter interface {
	Upsert(ctx context.Context, o domain.Order) (bool, error)
}

// Demo ids are fixed so repeated runs update the same rows.
const (
	DemoShopperID = "0b6f3c9e-5d2a-4b8e-9f10-6a7c8d9e0f11"
	DemoGuestID   = "1c7a4dae-6e3b-4c9f-8a21-7b8d9eaf1022"
)

// Apply writes demo profiles, an abandoned cart and one order for manual testing. It is idempotent.
func Apply(ctx context.Context, profiles profileWriter, snapshots snapshotWriter, orders orderWriter) error {
	demo := []domain.Profile{
		{ID: DemoShopperID, Email: "shopper@luminix.test", FirstName: "Demo", LastName: "Shopper", PhoneNumber: "4155550123"},
		{ID: DemoGuestID, Email: "nophone@luminix.test", FirstName: "No", LastName: "Phone", PhoneNumber: domain.PhoneNotProvided},
	}
	for _, p := range demo {
		p.DisplayName = domain.BuildDisplayName(p.FirstName, p.LastName, p.Email)
		if _, err := profiles.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert profile %s: %w", p.Email, err)
		}
	}

	cart := domain.Cart{
		ID: "gid://shopify/Cart/demo-abandoned",
		Lines: []domain.CartLine{
			{ID: "gid://shopify/CartLine/1", MerchandiseID: "gid://shopify/ProductVariant/1001", Quantity: 2, UnitPrice: decimal.RequireFromString("24.00"), ProductTitle: "Arc Floor Lamp", VariantTitle: "Brass"},
			{ID: "gid://shopify/CartLine/2", MerchandiseID: "gid://shopify/ProductVariant/1002", Quantity: 1, UnitPrice: decimal.RequireFromString("9.50"), ProductTitle: "LED Bulb E27"},
		},
	}
	if err := snapshots.Upsert(ctx, domain.SnapshotOf(DemoShopperID, cart)); err != nil {
		return fmt.Errorf("upsert abandoned cart: %w", err)
	}

	processed := time.Date(2024, 3, 2, 15, 15, 0, 0, time.UTC)
	order := domain.Order{
		ShopifyOrderID:  "demo-1001",
		OrderNumber:     "1001",
		CustomerEmail:   "shopper@luminix.test",
		CustomerName:    "Demo Shopper",
		TotalPrice:      decimal.RequireFromString("57.50"),
		Currency:        "USD",
		FinancialStatus: "paid",
		LineItems: []domain.OrderLineItem{
			{ID: "1", Title: "Arc Floor Lamp", Quantity: 2, Price: decimal.RequireFromString("24.00")},
			{ID: "2", Title: "LED Bulb E27", Quantity: 1, Price: decimal.RequireFromString("9.50")},
		},
		ProcessedAt: &processed,
	}
	if _, err := orders.Upsert(ctx, order); err != nil {
		return fmt.Errorf("upsert order %s: %w", order.ShopifyOrderID, err)
	}
	return nil
}
