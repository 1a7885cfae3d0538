package wishlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"luminix/internal/commerce"
	"luminix/internal/domain"
)

// memoryMetafield emulates a metafield with a compare digest.
type memoryMetafield struct {
	ids      []string
	version  int
	sets     int
	staleFor int
	getErr   error
	setErr   error
}

func (m *memoryMetafield) digest() string {
	if m.version == 0 {
		return ""
	}
	return fmt.Sprintf("v%d", m.version)
}

func (m *memoryMetafield) GetWishlist(_ context.Context, _ string) ([]string, string, error) {
	if m.getErr != nil {
		return nil, "", m.getErr
	}
	return append([]string{}, m.ids...), m.digest(), nil
}

func (m *memoryMetafield) SetWishlist(_ context.Context, _ string, ids []string, compareDigest string) ([]string, error) {
	m.sets++
	if m.setErr != nil {
		return nil, m.setErr
	}
	if m.staleFor > 0 {
		m.staleFor--
		m.version++
		return nil, commerce.ErrStaleDigest
	}
	if compareDigest != m.digest() {
		return nil, commerce.ErrStaleDigest
	}
	m.ids = append([]string{}, ids...)
	m.version++
	return ids, nil
}

func TestAdd_NoDuplicates(t *testing.T) {
	store := &memoryMetafield{}
	svc := New(store, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ids, err := svc.Add(ctx, "42", "gid://shopify/Product/1")
		if err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
		if len(ids) != 1 {
			t.Fatalf("add #%d: expected one id, got %v", i, ids)
		}
	}
	if len(store.ids) != 1 {
		t.Fatalf("stored list has duplicates: %v", store.ids)
	}
	if store.sets != 1 {
		t.Fatalf("unchanged list should not be rewritten, got %d writes", store.sets)
	}
}

func TestAdd_PreservesOrder(t *testing.T) {
	store := &memoryMetafield{ids: []string{"a", "b"}, version: 1}
	ids, err := New(store, nil).Add(context.Background(), "42", "c")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(ids) != 3 || ids[2] != "c" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestAdd_RetriesStaleDigest(t *testing.T) {
	store := &memoryMetafield{staleFor: 2}
	ids, err := New(store, nil).Add(context.Background(), "42", "p1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(ids) != 1 || store.sets != 3 {
		t.Fatalf("expected success on third attempt, ids=%v sets=%d", ids, store.sets)
	}
}

func TestAdd_GivesUpAfterMaxAttempts(t *testing.T) {
	store := &memoryMetafield{staleFor: 10}
	_, err := New(store, nil).Add(context.Background(), "42", "p1")
	if !errors.Is(err, domain.ErrUpstream) || !errors.Is(err, commerce.ErrStaleDigest) {
		t.Fatalf("expected upstream stale error, got %v", err)
	}
	if store.sets != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, store.sets)
	}
}

func TestAdd_UserErrorSurfacesField(t *testing.T) {
	store := &memoryMetafield{setErr: &commerce.UserError{Field: "metafields.0.value", Message: "is invalid"}}
	_, err := New(store, nil).Add(context.Background(), "42", "p1")
	var ue *commerce.UserError
	if !errors.As(err, &ue) || ue.Field != "metafields.0.value" {
		t.Fatalf("expected user error with field, got %v", err)
	}
	if store.sets != 1 {
		t.Fatalf("user errors must not be retried")
	}
}

func TestRemove(t *testing.T) {
	store := &memoryMetafield{ids: []string{"a", "b"}, version: 1}
	svc := New(store, nil)

	ids, err := svc.Remove(context.Background(), "42", "a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if _, err := svc.Remove(context.Background(), "42", "missing"); err != nil {
		t.Fatalf("removing absent id: %v", err)
	}
	if store.sets != 1 {
		t.Fatalf("no-op remove should not write, got %d writes", store.sets)
	}
}

func TestSync_Empty(t *testing.T) {
	ids, err := New(&memoryMetafield{}, nil).Sync(context.Background(), "42")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", ids)
	}
}

func TestAdd_RequiresProductID(t *testing.T) {
	if _, err := New(&memoryMetafield{}, nil).Add(context.Background(), "42", " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// adminServer serves one stored metafield value and records metafieldsSet writes.
func adminServer(t *testing.T, stored string) (*commerce.Client, *[]string) {
	t.Helper()
	var written []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req struct {
			Query     string `json:"query"`
			Variables struct {
				Metafields []struct {
					Value string `json:"value"`
				} `json:"metafields"`
			} `json:"variables"`
		}
		_ = json.Unmarshal(raw, &req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Query, "metafieldsSet") {
			value := req.Variables.Metafields[0].Value
			written = append(written, value)
			quoted, _ := json.Marshal(value)
			_, _ = w.Write([]byte(`{"data":{"metafieldsSet":{"metafields":[{"value":` + string(quoted) + `}],"userErrors":[]}}}`))
			return
		}
		quoted, _ := json.Marshal(stored)
		_, _ = w.Write([]byte(`{"data":{"customer":{"id":"gid://shopify/Customer/1","metafield":{"value":` + string(quoted) + `,"compareDigest":"d1"}}}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := commerce.New(commerce.Config{BaseURL: srv.URL, AdminToken: "admin-token"}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, &written
}

func TestAdd_KeepsNumericIDs(t *testing.T) {
	client, written := adminServer(t, `[101,202,303]`)

	ids, err := New(client, nil).Add(context.Background(), "1", "404")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if strings.Join(ids, ",") != "101,202,303,404" {
		t.Fatalf("expected existing ids kept, got %v", ids)
	}
	if len(*written) != 1 || (*written)[0] != `["101","202","303","404"]` {
		t.Fatalf("unexpected writes %v", *written)
	}
}

func TestModify_RefusesUndecodableValue(t *testing.T) {
	client, written := adminServer(t, `{"legacy":true}`)
	svc := New(client, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "1", "404"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("add: expected upstream error, got %v", err)
	}
	if _, err := svc.Remove(ctx, "1", "404"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("remove: expected upstream error, got %v", err)
	}
	if _, err := svc.Sync(ctx, "1"); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("sync: expected upstream error, got %v", err)
	}
	if len(*written) != 0 {
		t.Fatalf("stored value must not be overwritten, got writes %v", *written)
	}
}
