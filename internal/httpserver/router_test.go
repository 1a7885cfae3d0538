package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"luminix/internal/domain"
	authsvc "luminix/internal/service/auth"
	cartsvc "luminix/internal/service/cart"
	ordersvc "luminix/internal/service/order"
	profilesvc "luminix/internal/service/profile"
	"luminix/internal/session"
	"luminix/internal/verification"
)

const testSecret = "webhook-secret"

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubOrderRepo struct {
	upserts int
	seen    map[string]bool
	err     error
}

func (s *stubOrderRepo) Upsert(_ context.Context, o domain.Order) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.upserts++
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	created := !s.seen[o.ShopifyOrderID]
	s.seen[o.ShopifyOrderID] = true
	return created, nil
}

type stubAuth struct {
	customer  *domain.Customer
	sendErr   error
	verifyErr error
	sent      []authsvc.SendCodeInput
}

func (s *stubAuth) SendCode(_ context.Context, in authsvc.SendCodeInput) error {
	s.sent = append(s.sent, in)
	return s.sendErr
}

func (s *stubAuth) VerifyCode(_ context.Context, _, _ string) (*domain.Customer, error) {
	return s.customer, s.verifyErr
}

type stubProfiles struct {
	profile  *domain.Profile
	ensure   profilesvc.EnsureResult
	err      error
	lastID   string
	lastEdit profilesvc.UpdateInput
}

func (s *stubProfiles) EnsureProfile(_ context.Context, _ profilesvc.EnsureInput) (profilesvc.EnsureResult, error) {
	return s.ensure, s.err
}

func (s *stubProfiles) CreateProfile(_ context.Context, _ profilesvc.CreateInput) (*domain.Profile, error) {
	return s.profile, s.err
}

func (s *stubProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	s.lastID = id
	return s.profile, s.err
}

func (s *stubProfiles) UpdateProfile(_ context.Context, id string, in profilesvc.UpdateInput) (*domain.Profile, error) {
	s.lastID = id
	s.lastEdit = in
	return s.profile, s.err
}

type stubWishlist struct {
	ids []string
	err error
}

func (s *stubWishlist) Add(_ context.Context, _, productID string) ([]string, error) {
	return append(s.ids, productID), s.err
}

func (s *stubWishlist) Remove(_ context.Context, _, _ string) ([]string, error) {
	return s.ids, s.err
}

func (s *stubWishlist) Sync(_ context.Context, _ string) ([]string, error) {
	return s.ids, s.err
}

type stubOrderList struct {
	email  string
	orders []domain.Order
}

func (s *stubOrderList) ListByEmail(_ context.Context, email string, _ int) ([]domain.Order, error) {
	s.email = email
	return s.orders, nil
}

type testEnv struct {
	orders   *stubOrderRepo
	auth     *stubAuth
	profiles *stubProfiles
	wishlist *stubWishlist
	platform *stubPlatform
	verifier *session.Verifier
	deps     Deps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   &stubOrderRepo{},
		auth:     &stubAuth{},
		profiles: &stubProfiles{},
		wishlist: &stubWishlist{},
		platform: newStubPlatform(),
		verifier: session.NewVerifier("session-secret"),
	}
	env.deps = Deps{
		Orders:   ordersvc.New(env.orders, testSecret, nil),
		Auth:     env.auth,
		Profiles: env.profiles,
		Wishlist: env.wishlist,
		Carts:    cartsvc.New(env.platform, &stubSnapshots{}, nil),
		Sessions: env.verifier,
	}
	return env
}

func (e *testEnv) router(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router, err := buildRouter(logDiscard(), nil, e.deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

func (e *testEnv) token(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := e.verifier.Issue(userID, email, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + tok
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestBuildRouter_RequiresDeps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for empty deps")
	}
}

func TestHealthAndReady(t *testing.T) {
	router := newTestEnv().router(t)

	if rec := do(router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := do(router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rec.Code)
	}
}

func TestRequestID_AssignedWhenMissing(t *testing.T) {
	router := newTestEnv().router(t)
	rec := do(router, http.MethodGet, "/healthz", "", nil)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}

	const id = "6f1f8f5e-8a0c-4a35-9a43-3f0c2a1b9e11"
	rec = do(router, http.MethodGet, "/healthz", "", map[string]string{requestIDHeader: id})
	if got := rec.Header().Get(requestIDHeader); got != id {
		t.Fatalf("expected propagated id %s, got %s", id, got)
	}
}

func TestWebhook_AcceptsSignedOrderOnce(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)
	body := `{"id":820982911946154508,"email":"jon@example.com","total_price":"19.99","currency":"USD","line_items":[]}`
	headers := map[string]string{
		legacySignatureHeader: ordersvc.Sign(testSecret, []byte(body)),
		legacyTopicHeader:     "orders/create",
	}

	for i := 0; i < 2; i++ {
		rec := do(router, http.MethodPost, "/webhooks/orders", body, headers)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d body=%s", i, rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), `"status":"accepted"`) {
			t.Fatalf("unexpected body: %s", rec.Body.String())
		}
	}
	if len(env.orders.seen) != 1 {
		t.Fatalf("expected one stored order, got %d", len(env.orders.seen))
	}
}

func TestWebhook_RejectsBadSignature(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)
	body := `{"id":1,"email":"jon@example.com"}`

	rec := do(router, http.MethodPost, "/webhooks/orders", body, map[string]string{
		signatureHeader: ordersvc.Sign("other-secret", []byte(body)),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = do(router, http.MethodPost, "/webhooks/orders", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing signature: expected 401, got %d", rec.Code)
	}
	if env.orders.upserts != 0 {
		t.Fatalf("expected no writes, got %d", env.orders.upserts)
	}
}

func TestWebhook_DroppedWithoutEmail(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)
	body := `{"id":2,"total_price":"5.00"}`

	rec := do(router, http.MethodPost, "/webhooks/orders", body, map[string]string{
		signatureHeader: ordersvc.Sign(testSecret, []byte(body)),
	})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"dropped"`) {
		t.Fatalf("expected dropped 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if env.orders.upserts != 0 {
		t.Fatalf("dropped order must not be stored")
	}
}

func TestWebhook_PersistenceFailureIs500(t *testing.T) {
	env := newTestEnv()
	env.orders.err = errors.Join(domain.ErrPersistence, errors.New("db down"))
	router := env.router(t)
	body := `{"id":3,"email":"a@example.com"}`

	rec := do(router, http.MethodPost, "/webhooks/orders", body, map[string]string{
		signatureHeader: ordersvc.Sign(testSecret, []byte(body)),
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	router := newTestEnv().router(t)
	body := `{"pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`

	rec := do(router, http.MethodPost, "/webhooks/orders", body, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestSendCode_ConfigMissingShortCircuits(t *testing.T) {
	env := newTestEnv()
	env.deps.AdminReady = func() error { return domain.ErrConfig }
	router := env.router(t)

	rec := do(router, http.MethodPost, "/auth/send-code", `{"email":"a@example.com"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(env.auth.sent) != 0 {
		t.Fatalf("service must not be called when config is missing")
	}
}

func TestSendCode_Success(t *testing.T) {
	env := newTestEnv()
	router := env.router(t)

	rec := do(router, http.MethodPost, "/auth/send-code", `{"email":"a@example.com","firstName":"Ann"}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("expected success, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(env.auth.sent) != 1 || env.auth.sent[0].FirstName != "Ann" {
		t.Fatalf("unexpected calls %+v", env.auth.sent)
	}
}

func TestSendCode_MissingEmail(t *testing.T) {
	router := newTestEnv().router(t)
	rec := do(router, http.MethodPost, "/auth/send-code", `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestVerifyCode_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"expired", verification.ErrCodeExpired, http.StatusBadRequest},
		{"mismatch", verification.ErrCodeMismatch, http.StatusBadRequest},
		{"upstream", domain.ErrUpstream, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.auth.verifyErr = tc.err
			router := env.router(t)

			rec := do(router, http.MethodPost, "/auth/verify-code", `{"email":"a@example.com","code":"123456"}`, nil)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
		})
	}
}

func TestVerifyCode_ReturnsCustomer(t *testing.T) {
	env := newTestEnv()
	env.auth.customer = &domain.Customer{ID: "gid://shopify/Customer/1", Email: "a@example.com"}
	router := env.router(t)

	rec := do(router, http.MethodPost, "/auth/verify-code", `{"email":"a@example.com","code":"123456"}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `gid://shopify/Customer/1`) {
		t.Fatalf("unexpected response %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestOAuthCallback_ReportsFlags(t *testing.T) {
	env := newTestEnv()
	env.profiles.ensure = profilesvc.EnsureResult{IsNewUser: true, NeedsPhone: true}
	router := env.router(t)

	body := `{"userId":"8b7c6d4e-1111-4222-8333-944455556666","email":"a@example.com"}`
	rec := do(router, http.MethodPost, "/auth/oauth-callback", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"isNewUser":true`) || !strings.Contains(rec.Body.String(), `"needsPhone":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCreateProfile_ValidationIs400(t *testing.T) {
	env := newTestEnv()
	env.profiles.err = errors.Join(domain.ErrValidation, errors.New("phone number is invalid"))
	router := env.router(t)

	body := `{"userId":"8b7c6d4e-1111-4222-8333-944455556666","email":"a@example.com","phoneNumber":"12"}`
	rec := do(router, http.MethodPost, "/auth/create-profile", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProfile_RequiresSession(t *testing.T) {
	router := newTestEnv().router(t)

	if rec := do(router, http.MethodGet, "/profile", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec := do(router, http.MethodGet, "/profile", "", map[string]string{"Authorization": "Bearer garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestProfile_UsesSessionSubject(t *testing.T) {
	env := newTestEnv()
	env.profiles.profile = &domain.Profile{ID: "user-1", Email: "a@example.com", PhoneNumber: domain.PhoneNotProvided}
	router := env.router(t)
	auth := map[string]string{"Authorization": env.token(t, "user-1", "a@example.com")}

	rec := do(router, http.MethodGet, "/profile", "", auth)
	if rec.Code != http.StatusOK || env.profiles.lastID != "user-1" {
		t.Fatalf("unexpected response %d id=%s", rec.Code, env.profiles.lastID)
	}
	if !strings.Contains(rec.Body.String(), `"needsPhone":true`) {
		t.Fatalf("expected needsPhone: %s", rec.Body.String())
	}

	rec = do(router, http.MethodPut, "/profile", `{"phoneNumber":"4155550100"}`, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if env.profiles.lastEdit.PhoneNumber == nil || *env.profiles.lastEdit.PhoneNumber != "4155550100" {
		t.Fatalf("unexpected update input %+v", env.profiles.lastEdit)
	}
}

func TestOrders_ListedBySessionEmail(t *testing.T) {
	env := newTestEnv()
	list := &stubOrderList{orders: []domain.Order{{ShopifyOrderID: "1"}}}
	env.deps.OrderList = list
	router := env.router(t)

	rec := do(router, http.MethodGet, "/orders", "", map[string]string{"Authorization": env.token(t, "user-1", "a@example.com")})
	if rec.Code != http.StatusOK || list.email != "a@example.com" {
		t.Fatalf("unexpected response %d email=%s", rec.Code, list.email)
	}
}

func TestWishlist_Add(t *testing.T) {
	env := newTestEnv()
	env.wishlist.ids = []string{"p1"}
	router := env.router(t)

	rec := do(router, http.MethodPost, "/wishlist/add", `{"customerId":"1","productId":"p2"}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"productIds":["p1","p2"]`) {
		t.Fatalf("unexpected response %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWishlist_NotFound(t *testing.T) {
	env := newTestEnv()
	env.wishlist.err = domain.ErrNotFound
	router := env.router(t)

	rec := do(router, http.MethodPost, "/wishlist/sync", `{"customerId":"1"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestReady_ReportsChecks(t *testing.T) {
	env := newTestEnv()
	env.deps.AdminReady = func() error { return domain.ErrConfig }
	gin.SetMode(gin.TestMode)

	router, err := buildRouter(logDiscard(), stubPinger{}, env.deps)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	rec := do(router, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"admin":"not configured"`) || !strings.Contains(rec.Body.String(), `"db":"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	router, _ = buildRouter(logDiscard(), stubPinger{err: errors.New("down")}, env.deps)
	if rec := do(router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
