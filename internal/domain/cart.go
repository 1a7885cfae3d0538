package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the commerce platform's cart object. Only ID is persisted by the browser.
type Cart struct {
	ID            string     `json:"id"`
	CheckoutURL   string     `json:"checkoutUrl"`
	TotalQuantity int        `json:"totalQuantity"`
	Lines         []CartLine `json:"lines"`
}

type CartLine struct {
	ID            string          `json:"id"`
	MerchandiseID string          `json:"merchandiseId"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Currency      string          `json:"currency,omitempty"`
	ProductTitle  string          `json:"productTitle"`
	VariantTitle  string          `json:"variantTitle,omitempty"`
	Image         string          `json:"image,omitempty"`
}

// LineQuantity sums line quantities.
func (c Cart) LineQuantity() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// SnapshotItem is the denormalized line copy stored in an abandoned cart row.
type SnapshotItem struct {
	ID           string          `json:"id"`
	VariantID    string          `json:"variantId"`
	Title        string          `json:"title"`
	VariantTitle string          `json:"variantTitle,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
}

// AbandonedCart mirrors the live cart of an authenticated user. One row per user, last writer wins.
type AbandonedCart struct {
	UserID        string         `json:"userId"`
	CartID        string         `json:"cartId"`
	Items         []SnapshotItem `json:"items"`
	TotalQuantity int            `json:"totalQuantity"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// SnapshotOf builds the abandoned cart row for a user from a live cart.
func SnapshotOf(userID string, c Cart) AbandonedCart {
	items := make([]SnapshotItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, SnapshotItem{
			ID:           l.ID,
			VariantID:    l.MerchandiseID,
			Title:        l.ProductTitle,
			VariantTitle: l.VariantTitle,
			Quantity:     l.Quantity,
			Price:        l.UnitPrice,
			Image:        l.Image,
		})
	}
	return AbandonedCart{
		UserID:        userID,
		CartID:        c.ID,
		Items:         items,
		TotalQuantity: c.LineQuantity(),
	}
}
