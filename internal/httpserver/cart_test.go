package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"luminix/internal/domain"
	cartsvc "luminix/internal/service/cart"
)

type stubPlatform struct {
	carts   map[string]*domain.Cart
	nextID  int
	failAdd error
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{carts: map[string]*domain.Cart{}}
}

func (p *stubPlatform) CreateCart(_ context.Context) (*domain.Cart, error) {
	p.nextID++
	id := fmt.Sprintf("gid://shopify/Cart/c%d", p.nextID)
	cart := &domain.Cart{ID: id, CheckoutURL: "https://shop.example.com/checkouts/" + id[len("gid://shopify/Cart/"):]}
	p.carts[id] = cart
	return cart, nil
}

func (p *stubPlatform) GetCart(_ context.Context, cartID string) (*domain.Cart, error) {
	return p.carts[cartID], nil
}

func (p *stubPlatform) AddLines(_ context.Context, cartID, merchandiseID string, quantity int) (*domain.Cart, error) {
	if p.failAdd != nil {
		return nil, p.failAdd
	}
	cart, ok := p.carts[cartID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cart.Lines = append(cart.Lines, domain.CartLine{ID: fmt.Sprintf("line-%d", len(cart.Lines)+1), MerchandiseID: merchandiseID, Quantity: quantity})
	cart.TotalQuantity = cart.LineQuantity()
	return cart, nil
}

func (p *stubPlatform) UpdateLine(_ context.Context, cartID, lineID string, quantity int) (*domain.Cart, error) {
	cart, ok := p.carts[cartID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for i := range cart.Lines {
		if cart.Lines[i].ID == lineID {
			cart.Lines[i].Quantity = quantity
		}
	}
	cart.TotalQuantity = cart.LineQuantity()
	return cart, nil
}

func (p *stubPlatform) RemoveLines(_ context.Context, cartID string, lineIDs ...string) (*domain.Cart, error) {
	cart, ok := p.carts[cartID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	kept := cart.Lines[:0]
	for _, l := range cart.Lines {
		if l.ID != lineIDs[0] {
			kept = append(kept, l)
		}
	}
	cart.Lines = kept
	cart.TotalQuantity = cart.LineQuantity()
	return cart, nil
}

type stubSnapshots struct {
	upserts []domain.AbandonedCart
}

func (s *stubSnapshots) Upsert(_ context.Context, snap domain.AbandonedCart) error {
	s.upserts = append(s.upserts, snap)
	return nil
}

func cartServiceWith(p *stubPlatform, s *stubSnapshots) *cartsvc.Service {
	return cartsvc.New(p, s, nil)
}

type cartBody struct {
	Success     bool         `json:"success"`
	Cart        *domain.Cart `json:"cart"`
	CheckoutURL string       `json:"checkoutUrl"`
	OpenCart    bool         `json:"openCart"`
	Error       string       `json:"error"`
}

func decodeCart(t *testing.T, raw string) cartBody {
	t.Helper()
	var b cartBody
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return b
}

func TestCart_GetCreatesAndPersistsHandle(t *testing.T) {
	router := newTestEnv().router(t)

	rec := do(router, http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeCart(t, rec.Body.String())
	if !body.Success || body.Cart == nil || body.Cart.ID == "" {
		t.Fatalf("unexpected body %+v", body)
	}
	if got := rec.Header().Get(cartHeader); got != body.Cart.ID {
		t.Fatalf("expected cart header %s, got %s", body.Cart.ID, got)
	}
	cookies := rec.Header().Values("Set-Cookie")
	if len(cookies) != 1 || !strings.Contains(cookies[0], cartCookie+"="+body.Cart.ID) {
		t.Fatalf("expected exactly one cart cookie, got %q", cookies)
	}
	if body.CheckoutURL == "" {
		t.Fatalf("expected checkout url")
	}
}

func TestCart_AddLineReusesHandleAndOpensPanel(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)

	first := decodeCart(t, do(router, http.MethodGet, "/cart", "", nil).Body.String())
	rec := do(router, http.MethodPost, "/cart/lines", `{"merchandiseId":"gid://shopify/ProductVariant/1","quantity":2}`,
		map[string]string{cartHeader: first.Cart.ID})
	body := decodeCart(t, rec.Body.String())
	if !body.Success || !body.OpenCart {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Cart.ID != first.Cart.ID || body.Cart.TotalQuantity != 2 {
		t.Fatalf("expected same cart with 2 items, got %+v", body.Cart)
	}
	if len(env.platform.carts) != 1 {
		t.Fatalf("expected a single platform cart, got %d", len(env.platform.carts))
	}
}

func TestCart_SignedInMutationMirrorsSnapshot(t *testing.T) {
	env := newTestEnv()
	snaps := &stubSnapshots{}
	env.deps.Carts = cartServiceWith(env.platform, snaps)
	router := env.router(t)
	auth := env.token(t, "user-1", "a@example.com")

	first := decodeCart(t, do(router, http.MethodGet, "/cart", "", map[string]string{"Authorization": auth}).Body.String())
	before := len(snaps.upserts)
	do(router, http.MethodPost, "/cart/lines", `{"merchandiseId":"v1"}`,
		map[string]string{"Authorization": auth, cartHeader: first.Cart.ID})
	if len(snaps.upserts) != before+1 {
		t.Fatalf("expected one snapshot per mutation, got %d", len(snaps.upserts)-before)
	}
	if last := snaps.upserts[len(snaps.upserts)-1]; last.UserID != "user-1" || last.TotalQuantity != 1 {
		t.Fatalf("unexpected snapshot %+v", last)
	}
}

func TestCart_AnonymousNeverMirrors(t *testing.T) {
	env := newTestEnv()
	snaps := &stubSnapshots{}
	env.deps.Carts = cartServiceWith(env.platform, snaps)
	router := env.router(t)

	first := decodeCart(t, do(router, http.MethodGet, "/cart", "", nil).Body.String())
	do(router, http.MethodPost, "/cart/lines", `{"merchandiseId":"v1"}`, map[string]string{cartHeader: first.Cart.ID})
	if len(snaps.upserts) != 0 {
		t.Fatalf("anonymous carts must not be mirrored, got %d", len(snaps.upserts))
	}
}

func TestCart_UpdateRejectsNegativeQuantity(t *testing.T) {
	router := newTestEnv().router(t)
	rec := do(router, http.MethodPatch, "/cart/lines/line-1", `{"quantity":-1}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCart_PlatformFailureKeepsPreviousCart(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)
	first := decodeCart(t, do(router, http.MethodGet, "/cart", "", nil).Body.String())

	env.platform.failAdd = errors.Join(domain.ErrUpstream, errors.New("timeout"))
	rec := do(router, http.MethodPost, "/cart/lines", `{"merchandiseId":"v1"}`, map[string]string{cartHeader: first.Cart.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected in-band failure, got %d", rec.Code)
	}
	body := decodeCart(t, rec.Body.String())
	if body.Success || body.Error == "" || body.OpenCart {
		t.Fatalf("expected failure payload, got %+v", body)
	}
}

func TestCart_ConfigMissing(t *testing.T) {
	env := newTestEnv()
	env.deps.StorefrontReady = func() error { return domain.ErrConfig }
	router := env.router(t)

	if rec := do(router, http.MethodGet, "/cart", "", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(env.platform.carts) != 0 {
		t.Fatalf("platform must not be called")
	}
}

func TestCart_StaleHandleReplacedWithSingleCookie(t *testing.T) {
	router := newTestEnv().router(t)

	rec := do(router, http.MethodGet, "/cart", "", map[string]string{"Cookie": cartCookie + "=gid://shopify/Cart/gone"})
	body := decodeCart(t, rec.Body.String())
	if body.Cart == nil || body.Cart.ID == "gid://shopify/Cart/gone" {
		t.Fatalf("expected a fresh cart, got %+v", body.Cart)
	}
	cookies := rec.Header().Values("Set-Cookie")
	if len(cookies) != 1 || !strings.Contains(cookies[0], body.Cart.ID) {
		t.Fatalf("expected one cookie for the new cart, got %q", cookies)
	}
}
