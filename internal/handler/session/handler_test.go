package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
)

func TestGuestSessionMintsVerifiableToken(t *testing.T) {
	authService, err := auth.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	h := New(authService, zap.NewNop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/auth/guest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Token string        `json:"token"`
		User  auth.Identity `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if resp.Token == "" || resp.User.UserID == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if !resp.User.Guest {
		t.Fatal("minted identity should be a guest")
	}

	id, err := authService.Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if id.UserID != resp.User.UserID {
		t.Fatalf("token subject = %q, want %q", id.UserID, resp.User.UserID)
	}
	if !id.Guest {
		t.Fatal("guest flag lost in token roundtrip")
	}
}
