package order

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"luminix/internal/domain"
)

// FlexID accepts platform ids encoded as JSON numbers or strings.
type FlexID string

func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

// Person is a customer or billing address block.
type Person struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
}

type LineItem struct {
	ID           FlexID `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
	VariantID    FlexID `json:"variant_id"`
	VariantTitle string `json:"variant_title"`
	ProductID    FlexID `json:"product_id"`
	ImageURL     string `json:"image_url"`
	Image        *struct {
		Src string `json:"src"`
	} `json:"image"`
}

// Payload is the subset of the platform order representation that is stored.
type Payload struct {
	ID                FlexID          `json:"id"`
	OrderNumber       FlexID          `json:"order_number"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	ContactEmail      string          `json:"contact_email"`
	TotalPrice        string          `json:"total_price"`
	Currency          string          `json:"currency"`
	FinancialStatus   string          `json:"financial_status"`
	FulfillmentStatus string          `json:"fulfillment_status"`
	OrderStatusURL    string          `json:"order_status_url"`
	ProcessedAt       string          `json:"processed_at"`
	Customer          *Person         `json:"customer"`
	BillingAddress    json.RawMessage `json:"billing_address"`
	ShippingAddress   json.RawMessage `json:"shipping_address"`
	LineItems         []LineItem      `json:"line_items"`
}

// Normalize maps a payload to an order. ok is false when no customer email can be
// resolved; such orders are dropped.
func Normalize(p Payload) (o domain.Order, ok bool) {
	var billing Person
	if len(p.BillingAddress) > 0 {
		_ = json.Unmarshal(p.BillingAddress, &billing)
	}
	customer := Person{}
	if p.Customer != nil {
		customer = *p.Customer
	}

	email := firstNonEmpty(p.Email, p.ContactEmail, customer.Email, billing.Email)
	if email == "" {
		return domain.Order{}, false
	}

	o = domain.Order{
		ShopifyOrderID:    strings.TrimSpace(string(p.ID)),
		OrderNumber:       orderNumber(p),
		CustomerEmail:     domain.NormalizeEmail(email),
		CustomerName:      customerName(customer, billing),
		CustomerPhone:     optional(firstNonEmpty(customer.Phone, billing.Phone)),
		TotalPrice:        parseMoney(p.TotalPrice),
		Currency:          strings.TrimSpace(p.Currency),
		FinancialStatus:   strings.TrimSpace(p.FinancialStatus),
		FulfillmentStatus: strings.TrimSpace(p.FulfillmentStatus),
		ShippingAddress:   rawObject(p.ShippingAddress),
		BillingAddress:    rawObject(p.BillingAddress),
		OrderStatusURL:    strings.TrimSpace(p.OrderStatusURL),
		LineItems:         make([]domain.OrderLineItem, 0, len(p.LineItems)),
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(p.ProcessedAt)); err == nil {
		t = t.UTC()
		o.ProcessedAt = &t
	}
	for _, li := range p.LineItems {
		title := firstNonEmpty(li.Title, li.Name)
		image := strings.TrimSpace(li.ImageURL)
		if image == "" && li.Image != nil {
			image = strings.TrimSpace(li.Image.Src)
		}
		o.LineItems = append(o.LineItems, domain.OrderLineItem{
			ID:           string(li.ID),
			Title:        title,
			Quantity:     li.Quantity,
			Price:        parseMoney(li.Price),
			VariantID:    string(li.VariantID),
			VariantTitle: strings.TrimSpace(li.VariantTitle),
			ProductID:    string(li.ProductID),
			ImageURL:     image,
		})
	}
	return o, true
}

func orderNumber(p Payload) string {
	if n := strings.TrimSpace(string(p.OrderNumber)); n != "" && n != "0" {
		return n
	}
	return strings.TrimPrefix(strings.TrimSpace(p.Name), "#")
}

func customerName(customer, billing Person) string {
	if name := strings.TrimSpace(strings.TrimSpace(customer.FirstName) + " " + strings.TrimSpace(customer.LastName)); name != "" {
		return name
	}
	if name := strings.TrimSpace(billing.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(strings.TrimSpace(billing.FirstName) + " " + strings.TrimSpace(billing.LastName)); name != "" {
		return name
	}
	return "Guest"
}

func parseMoney(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func rawObject(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return trimmed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

