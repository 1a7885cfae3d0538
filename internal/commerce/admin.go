package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"luminix/internal/domain"
)

const (
	customerGIDPrefix = "gid://shopify/Customer/"

	WishlistNamespace = "custom"
	WishlistKey       = "wishlist"
)

// CustomerGID normalizes a bare numeric id or a customer gid to the gid form.
func CustomerGID(id string) (string, error) {
	id = strings.TrimSpace(id)
	num := strings.TrimPrefix(id, customerGIDPrefix)
	if num == "" {
		return "", fmt.Errorf("%w: customer id is required", domain.ErrValidation)
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: invalid customer id %q", domain.ErrValidation, id)
		}
	}
	return customerGIDPrefix + num, nil
}

type customerNode struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (n customerNode) toDomain() *domain.Customer {
	return &domain.Customer{ID: n.ID, Email: n.Email, FirstName: n.FirstName, LastName: n.LastName}
}

// FindCustomerByEmail returns domain.ErrNotFound when no customer has that email.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	const q = `query customerByEmail($query: String!) {
  customers(first: 1, query: $query) {
    edges { node { id email firstName lastName } }
  }
}`
	data, err := do[struct {
		Customers struct {
			Edges []struct {
				Node customerNode `json:"node"`
			} `json:"edges"`
		} `json:"customers"`
	}](ctx, c, adminAPI, q, map[string]any{"query": "email:" + email})
	if err != nil {
		return nil, err
	}
	for _, e := range data.Customers.Edges {
		if strings.EqualFold(e.Node.Email, email) {
			return e.Node.toDomain(), nil
		}
	}
	return nil, domain.ErrNotFound
}

// CreateCustomer registers a customer record at the platform.
func (c *Client) CreateCustomer(ctx context.Context, email, firstName, lastName string) (*domain.Customer, error) {
	const q = `mutation customerCreate($input: CustomerInput!) {
  customerCreate(input: $input) {
    customer { id email firstName lastName }
    userErrors { field message }
  }
}`
	input := map[string]any{"email": email}
	if firstName != "" {
		input["firstName"] = firstName
	}
	if lastName != "" {
		input["lastName"] = lastName
	}
	data, err := do[struct {
		CustomerCreate struct {
			Customer   *customerNode      `json:"customer"`
			UserErrors []userErrorPayload `json:"userErrors"`
		} `json:"customerCreate"`
	}](ctx, c, adminAPI, q, map[string]any{"input": input})
	if err != nil {
		return nil, err
	}
	if err := firstUserError(data.CustomerCreate.UserErrors); err != nil {
		return nil, err
	}
	if data.CustomerCreate.Customer == nil {
		return nil, fmt.Errorf("%w: customerCreate returned no customer", domain.ErrUpstream)
	}
	return data.CustomerCreate.Customer.toDomain(), nil
}

// GetWishlist reads the wishlist metafield. An absent metafield yields no ids and an empty digest.
func (c *Client) GetWishlist(ctx context.Context, customerID string) ([]string, string, error) {
	gid, err := CustomerGID(customerID)
	if err != nil {
		return nil, "", err
	}
	const q = `query customerWishlist($id: ID!, $namespace: String!, $key: String!) {
  customer(id: $id) {
    id
    metafield(namespace: $namespace, key: $key) { value compareDigest }
  }
}`
	data, err := do[struct {
		Customer *struct {
			ID        string `json:"id"`
			Metafield *struct {
				Value         string `json:"value"`
				CompareDigest string `json:"compareDigest"`
			} `json:"metafield"`
		} `json:"customer"`
	}](ctx, c, adminAPI, q, map[string]any{"id": gid, "namespace": WishlistNamespace, "key": WishlistKey})
	if err != nil {
		return nil, "", err
	}
	if data.Customer == nil {
		return nil, "", fmt.Errorf("%w: customer %s", domain.ErrNotFound, gid)
	}
	if data.Customer.Metafield == nil || strings.TrimSpace(data.Customer.Metafield.Value) == "" {
		return []string{}, "", nil
	}
	mf := data.Customer.Metafield
	ids, err := decodeWishlist(mf.Value)
	if err != nil {
		c.logger.Printf("commerce: wishlist decode customer=%s err=%v", gid, err)
		return nil, "", fmt.Errorf("%w: decode wishlist: %v", domain.ErrUpstream, err)
	}
	return ids, mf.CompareDigest, nil
}

// decodeWishlist accepts a JSON array of string or numeric product ids.
func decodeWishlist(value string) ([]string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return nil, fmt.Errorf("unsupported wishlist entry %s", string(r))
		}
		ids = append(ids, n.String())
	}
	return ids, nil
}

// SetWishlist writes ids as the wishlist metafield. A non-empty compareDigest makes the
// write conditional; a stale digest yields ErrStaleDigest.
func (c *Client) SetWishlist(ctx context.Context, customerID string, ids []string, compareDigest string) ([]string, error) {
	gid, err := CustomerGID(customerID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	value, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal wishlist: %w", err)
	}
	mf := map[string]any{
		"ownerId":   gid,
		"namespace": WishlistNamespace,
		"key":       WishlistKey,
		"type":      "json",
		"value":     string(value),
	}
	if compareDigest != "" {
		mf["compareDigest"] = compareDigest
	}
	const q = `mutation setWishlist($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { value }
    userErrors { field message code }
  }
}`
	data, err := do[struct {
		MetafieldsSet struct {
			UserErrors []userErrorPayload `json:"userErrors"`
		} `json:"metafieldsSet"`
	}](ctx, c, adminAPI, q, map[string]any{"metafields": []map[string]any{mf}})
	if err != nil {
		return nil, err
	}
	if err := firstUserError(data.MetafieldsSet.UserErrors); err != nil {
		return nil, err
	}
	return ids, nil
}
