package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMintVerifyRoundtrip(t *testing.T) {
	svc, err := NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	token, err := svc.Mint(Identity{UserID: "u1", Email: "u1@example.com", Guest: true})
	if err != nil {
		t.Fatalf("Mint err: %v", err)
	}

	id, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if id.UserID != "u1" || id.Email != "u1@example.com" || !id.Guest {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minter, _ := NewService("secret-a", time.Hour)
	verifier, _ := NewService("secret-b", time.Hour)

	token, err := minter.Mint(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("Mint err: %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	svc, _ := NewService("test-secret", time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	svc.Middleware(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMiddlewarePassesIdentity(t *testing.T) {
	svc, _ := NewService("test-secret", time.Hour)
	token, _ := svc.Mint(Identity{UserID: "u1"})

	var got Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	svc.Middleware(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got.UserID != "u1" {
		t.Fatalf("identity not propagated: %+v", got)
	}
}
