package commerce

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"luminix/internal/domain"
)

const cartFields = `
fragment CartFields on Cart {
  id
  checkoutUrl
  totalQuantity
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        merchandise {
          ... on ProductVariant {
            id
            title
            image { url }
            price { amount currencyCode }
            product { title featuredImage { url } }
          }
        }
      }
    }
  }
}`

type imageNode struct {
	URL string `json:"url"`
}

type moneyNode struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

type cartNode struct {
	ID            string `json:"id"`
	CheckoutURL   string `json:"checkoutUrl"`
	TotalQuantity int    `json:"totalQuantity"`
	Lines         struct {
		Edges []struct {
			Node struct {
				ID          string `json:"id"`
				Quantity    int    `json:"quantity"`
				Merchandise struct {
					ID      string     `json:"id"`
					Title   string     `json:"title"`
					Image   *imageNode `json:"image"`
					Price   moneyNode  `json:"price"`
					Product struct {
						Title         string     `json:"title"`
						FeaturedImage *imageNode `json:"featuredImage"`
					} `json:"product"`
				} `json:"merchandise"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"lines"`
}

type cartPayload struct {
	Cart       *cartNode          `json:"cart"`
	UserErrors []userErrorPayload `json:"userErrors"`
}

func (n cartNode) toDomain() *domain.Cart {
	cart := &domain.Cart{
		ID:            n.ID,
		CheckoutURL:   n.CheckoutURL,
		TotalQuantity: n.TotalQuantity,
		Lines:         make([]domain.CartLine, 0, len(n.Lines.Edges)),
	}
	for _, e := range n.Lines.Edges {
		m := e.Node.Merchandise
		price, err := decimal.NewFromString(m.Price.Amount)
		if err != nil {
			price = decimal.Zero
		}
		image := ""
		if m.Image != nil && m.Image.URL != "" {
			image = m.Image.URL
		} else if m.Product.FeaturedImage != nil {
			image = m.Product.FeaturedImage.URL
		}
		variantTitle := m.Title
		if variantTitle == "Default Title" {
			variantTitle = ""
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:            e.Node.ID,
			MerchandiseID: m.ID,
			Quantity:      e.Node.Quantity,
			UnitPrice:     price,
			Currency:      m.Price.CurrencyCode,
			ProductTitle:  m.Product.Title,
			VariantTitle:  variantTitle,
			Image:         image,
		})
	}
	return cart
}

func mutationCart(p cartPayload) (*domain.Cart, error) {
	if err := firstUserError(p.UserErrors); err != nil {
		return nil, err
	}
	if p.Cart == nil {
		return nil, fmt.Errorf("%w: mutation returned no cart", domain.ErrUpstream)
	}
	return p.Cart.toDomain(), nil
}

// CreateCart creates an empty platform cart.
func (c *Client) CreateCart(ctx context.Context) (*domain.Cart, error) {
	const q = `mutation cartCreate {
  cartCreate(input: {}) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}` + cartFields
	data, err := do[struct {
		CartCreate cartPayload `json:"cartCreate"`
	}](ctx, c, storefrontAPI, q, nil)
	if err != nil {
		return nil, err
	}
	return mutationCart(data.CartCreate)
}

// GetCart fetches a cart by id. A cart the platform no longer knows returns (nil, nil).
func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, nil
	}
	const q = `query getCart($id: ID!) {
  cart(id: $id) { ...CartFields }
}` + cartFields
	data, err := do[struct {
		Cart *cartNode `json:"cart"`
	}](ctx, c, storefrontAPI, q, map[string]any{"id": cartID})
	if err != nil {
		return nil, err
	}
	if data.Cart == nil {
		return nil, nil
	}
	return data.Cart.toDomain(), nil
}

// AddLines adds quantity of a variant and returns the updated cart.
func (c *Client) AddLines(ctx context.Context, cartID, merchandiseID string, quantity int) (*domain.Cart, error) {
	const q = `mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}` + cartFields
	vars := map[string]any{
		"cartId": cartID,
		"lines":  []map[string]any{{"merchandiseId": merchandiseID, "quantity": quantity}},
	}
	data, err := do[struct {
		CartLinesAdd cartPayload `json:"cartLinesAdd"`
	}](ctx, c, storefrontAPI, q, vars)
	if err != nil {
		return nil, err
	}
	return mutationCart(data.CartLinesAdd)
}

// UpdateLine sets the quantity of one cart line and returns the updated cart.
func (c *Client) UpdateLine(ctx context.Context, cartID, lineID string, quantity int) (*domain.Cart, error) {
	const q = `mutation cartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}` + cartFields
	vars := map[string]any{
		"cartId": cartID,
		"lines":  []map[string]any{{"id": lineID, "quantity": quantity}},
	}
	data, err := do[struct {
		CartLinesUpdate cartPayload `json:"cartLinesUpdate"`
	}](ctx, c, storefrontAPI, q, vars)
	if err != nil {
		return nil, err
	}
	return mutationCart(data.CartLinesUpdate)
}

// RemoveLines removes lines and returns the updated cart.
func (c *Client) RemoveLines(ctx context.Context, cartID string, lineIDs ...string) (*domain.Cart, error) {
	const q = `mutation cartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}` + cartFields
	data, err := do[struct {
		CartLinesRemove cartPayload `json:"cartLinesRemove"`
	}](ctx, c, storefrontAPI, q, map[string]any{"cartId": cartID, "lineIds": lineIDs})
	if err != nil {
		return nil, err
	}
	return mutationCart(data.CartLinesRemove)
}
