package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"luminix/internal/domain"
)

func TestDeleteUser(t *testing.T) {
	var gotPath, gotKey, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		gotKey, gotAuth = r.Header.Get("apikey"), r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "service-key", 0)
	if err := c.DeleteUser(context.Background(), "6f1c2f8e-3b1a-4c55-9d7e-2a4b8c9d0e1f"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/auth/v1/admin/users/6f1c2f8e-3b1a-4c55-9d7e-2a4b8c9d0e1f" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotKey != "service-key" || gotAuth != "Bearer service-key" {
		t.Fatalf("service key headers missing")
	}
}

func TestDeleteUser_StatusMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:            domain.ErrNotFound,
		http.StatusInternalServerError: domain.ErrUpstream,
		http.StatusForbidden:           domain.ErrUpstream,
	}
	for status, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		err := New(srv.URL, "k", 0).DeleteUser(context.Background(), "id")
		srv.Close()
		if !errors.Is(err, want) {
			t.Fatalf("status %d: expected %v, got %v", status, want, err)
		}
	}
}

func TestNew_Unconfigured(t *testing.T) {
	if New("", "key", 0) != nil || New("https://auth.example", "", 0) != nil {
		t.Fatalf("expected nil client without url or key")
	}
}
