// Package cart keeps the browser cart handle, the platform cart and the
// abandoned-cart snapshot consistent.
package cart

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"

	"luminix/internal/domain"
)

type platform interface {
	CreateCart(ctx context.Context) (*domain.Cart, error)
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	AddLines(ctx context.Context, cartID, merchandiseID string, quantity int) (*domain.Cart, error)
	UpdateLine(ctx context.Context, cartID, lineID string, quantity int) (*domain.Cart, error)
	RemoveLines(ctx context.Context, cartID string, lineIDs ...string) (*domain.Cart, error)
}

type snapshotWriter interface {
	Upsert(ctx context.Context, snap domain.AbandonedCart) error
}

// IDStore persists the opaque cart handle on the browser side.
type IDStore interface {
	Load() string
	Save(id string)
}

type State int

const (
	Uninitialized State = iota
	Resolving
	Ready
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Result is the outcome of one cart operation. On failure Cart holds the
// previous state (possibly nil) and Err the reason.
type Result struct {
	Cart      *domain.Cart
	OpenPanel bool
	Err       error
}

// Service holds the collaborators shared by every session.
type Service struct {
	platform  platform
	snapshots snapshotWriter
	logger    *log.Logger
}

func New(platform platform, snapshots snapshotWriter, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{platform: platform, snapshots: snapshots, logger: logger}
}

// Session starts a synchronizer for one browser session. userID is empty for anonymous shoppers.
func (s *Service) Session(ids IDStore, userID string) *Synchronizer {
	return &Synchronizer{svc: s, ids: ids, userID: strings.TrimSpace(userID)}
}

// Synchronizer is the per-session cart state machine.
type Synchronizer struct {
	svc    *Service
	ids    IDStore
	userID string

	mu    sync.Mutex
	state State
	cart  *domain.Cart
}

func (z *Synchronizer) State() State {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state
}

func (z *Synchronizer) Cart() *domain.Cart {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.cart
}

// CheckoutURL returns the platform checkout link, or "" when it is not a usable absolute URL.
func (z *Synchronizer) CheckoutURL() string {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.cart == nil {
		return ""
	}
	return ValidCheckoutURL(z.cart.CheckoutURL)
}

// ValidCheckoutURL returns raw unchanged when it parses as an absolute URL with a host, else "".
func ValidCheckoutURL(raw string) string {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	return raw
}

// Resolve adopts the persisted cart or creates a new one.
func (z *Synchronizer) Resolve(ctx context.Context) Result {
	z.mu.Lock()
	defer z.mu.Unlock()

	prev, prevState := z.cart, z.state
	z.state = Resolving
	cart, err := z.resolveLocked(ctx)
	if err != nil {
		z.state = prevState
		return z.fail("resolve", prev, err)
	}
	z.enterReadyLocked(ctx, cart)
	return Result{Cart: cart}
}

func (z *Synchronizer) AddItem(ctx context.Context, merchandiseID string, quantity int) Result {
	merchandiseID = strings.TrimSpace(merchandiseID)
	if merchandiseID == "" || quantity <= 0 {
		return z.reject(fmt.Errorf("%w: merchandiseId and a positive quantity are required", domain.ErrValidation))
	}
	res := z.mutate(ctx, "add", func(cartID string) (*domain.Cart, error) {
		return z.svc.platform.AddLines(ctx, cartID, merchandiseID, quantity)
	})
	if res.Err == nil {
		res.OpenPanel = true
	}
	return res
}

// UpdateItem sets a line quantity. Zero removes the line.
func (z *Synchronizer) UpdateItem(ctx context.Context, lineID string, quantity int) Result {
	lineID = strings.TrimSpace(lineID)
	if lineID == "" || quantity < 0 {
		return z.reject(fmt.Errorf("%w: lineId and a non-negative quantity are required", domain.ErrValidation))
	}
	return z.mutate(ctx, "update", func(cartID string) (*domain.Cart, error) {
		return z.svc.platform.UpdateLine(ctx, cartID, lineID, quantity)
	})
}

func (z *Synchronizer) RemoveItem(ctx context.Context, lineID string) Result {
	lineID = strings.TrimSpace(lineID)
	if lineID == "" {
		return z.reject(fmt.Errorf("%w: lineId is required", domain.ErrValidation))
	}
	return z.mutate(ctx, "remove", func(cartID string) (*domain.Cart, error) {
		return z.svc.platform.RemoveLines(ctx, cartID, lineID)
	})
}

// mutate runs one platform round-trip. A session that was never resolved uses the
// persisted handle directly and only falls back to full resolution when it is stale.
func (z *Synchronizer) mutate(ctx context.Context, op string, call func(cartID string) (*domain.Cart, error)) Result {
	z.mu.Lock()
	defer z.mu.Unlock()

	prev := z.cart
	cartID, verified := "", false
	switch {
	case z.state == Ready && z.cart != nil:
		cartID, verified = z.cart.ID, true
	case z.ids.Load() != "":
		cartID = z.ids.Load()
	default:
		created, err := z.createLocked(ctx)
		if err != nil {
			return z.fail(op, prev, err)
		}
		cartID, verified = created.ID, true
	}

	cart, err := call(cartID)
	if err != nil && !verified {
		fresh, rerr := z.resolveLocked(ctx)
		if rerr == nil && fresh.ID != cartID {
			cart, err = call(fresh.ID)
		}
	}
	if err != nil {
		return z.fail(op, prev, err)
	}
	z.enterReadyLocked(ctx, cart)
	return Result{Cart: cart}
}

func (z *Synchronizer) resolveLocked(ctx context.Context) (*domain.Cart, error) {
	if id := z.ids.Load(); id != "" {
		cart, err := z.svc.platform.GetCart(ctx, id)
		if err == nil && cart != nil {
			return cart, nil
		}
		if err != nil {
			z.svc.logger.Printf("cart: fetch persisted id=%s err=%v", id, err)
		}
	}
	return z.createLocked(ctx)
}

func (z *Synchronizer) createLocked(ctx context.Context) (*domain.Cart, error) {
	cart, err := z.svc.platform.CreateCart(ctx)
	if err != nil {
		return nil, err
	}
	z.ids.Save(cart.ID)
	return cart, nil
}

func (z *Synchronizer) enterReadyLocked(ctx context.Context, cart *domain.Cart) {
	if cart.ID != "" && cart.ID != z.ids.Load() {
		z.ids.Save(cart.ID)
	}
	z.cart = cart
	z.state = Ready
	z.mirrorLocked(ctx)
}

// mirrorLocked upserts the abandoned-cart snapshot for authenticated sessions.
// Failures are logged and never fail the cart operation.
func (z *Synchronizer) mirrorLocked(ctx context.Context) {
	if z.userID == "" || z.svc.snapshots == nil {
		return
	}
	if err := z.svc.snapshots.Upsert(ctx, domain.SnapshotOf(z.userID, *z.cart)); err != nil {
		z.svc.logger.Printf("cart: mirror snapshot user=%s cart=%s err=%v", z.userID, z.cart.ID, err)
	}
}

func (z *Synchronizer) fail(op string, prev *domain.Cart, err error) Result {
	z.svc.logger.Printf("cart: %s failed user=%q err=%v", op, z.userID, err)
	return Result{Cart: prev, Err: err}
}

func (z *Synchronizer) reject(err error) Result {
	return Result{Cart: z.Cart(), Err: err}
}
