package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the relational copy of a platform order, keyed by the platform order id.
type Order struct {
	ShopifyOrderID    string          `json:"shopifyOrderId"`
	OrderNumber       string          `json:"orderNumber"`
	CustomerEmail     string          `json:"customerEmail"`
	CustomerName      string          `json:"customerName"`
	CustomerPhone     *string         `json:"customerPhone,omitempty"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	Currency          string          `json:"currency"`
	FinancialStatus   string          `json:"financialStatus,omitempty"`
	FulfillmentStatus string          `json:"fulfillmentStatus,omitempty"`
	LineItems         []OrderLineItem `json:"lineItems"`
	ShippingAddress   json.RawMessage `json:"shippingAddress,omitempty"`
	BillingAddress    json.RawMessage `json:"billingAddress,omitempty"`
	OrderStatusURL    string          `json:"orderStatusUrl,omitempty"`
	ProcessedAt       *time.Time      `json:"processedAt,omitempty"`
}

type OrderLineItem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	VariantID    string          `json:"variant_id,omitempty"`
	VariantTitle string          `json:"variant_title,omitempty"`
	ProductID    string          `json:"product_id,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
}
