package clienttest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"git.sr.ht/~jakintosh/yourauth/pkg/client"
	"git.sr.ht/~jakintosh/yourauth/pkg/client/clienttest"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func TestVerifier_GetUser(t *testing.T) {
	v, err := clienttest.NewVerifier("dev-1")
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}

	token, err := v.IssueAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	user, err := v.GetUser(context.Background(), token)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.ID != "user-1" || user.Email != "alice@example.com" || user.TenantID != "dev-1" {
		t.Errorf("unexpected user: %+v", user)
	}

	expired, err := v.IssueExpiredAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueExpiredAccessToken failed: %v", err)
	}
	if _, err := v.GetUser(context.Background(), expired); !errors.Is(err, tokens.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	foreign, err := v.IssueForeignAccessToken("user-2", "dev-2", "bob@example.com")
	if err != nil {
		t.Fatalf("IssueForeignAccessToken failed: %v", err)
	}
	if _, err := v.GetUser(context.Background(), foreign); !errors.Is(err, client.ErrWrongTenant) {
		t.Errorf("expected ErrWrongTenant, got %v", err)
	}

	refresh, err := v.IssueRefreshToken("user-1")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}
	if _, err := v.GetUser(context.Background(), refresh); !errors.Is(err, client.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for refresh token, got %v", err)
	}
}

func TestVerifier_Middleware(t *testing.T) {
	v, err := clienttest.NewVerifier("dev-1")
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	handler := client.Middleware(v, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := client.UserFrom(r.Context())
		_, _ = w.Write([]byte(user.ID))
	}))

	req, err := v.AuthenticatedRequest(http.MethodGet, "/profile", "user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("AuthenticatedRequest failed: %v", err)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "user-1" {
		t.Errorf("expected 200 user-1, got %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profile", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}
}

func TestVerifier_JWKSHandler(t *testing.T) {
	v, err := clienttest.NewVerifier("dev-1")
	if err != nil {
		t.Fatalf("NewVerifier failed: %v", err)
	}
	mux := http.NewServeMux()
	mux.Handle(client.JWKSPath, v.JWKSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	// a real client verifies tokens against the fake key set
	c := client.New("ya_key", client.WithBaseURL(ts.URL))
	token, err := v.IssueAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if !c.VerifyToken(context.Background(), token) {
		t.Error("expected client to accept token signed by the test verifier")
	}
}
