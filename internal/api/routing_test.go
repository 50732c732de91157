package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"git.sr.ht/~jakintosh/yourauth/internal/api"
	"git.sr.ht/~jakintosh/yourauth/internal/testutil"
)

func TestHealth(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	var resp api.HealthResponse
	result := testutil.Get(env.Router, "/health", &resp)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestHealth_StorageDown(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	router := api.New(env.Service, env.Keys, zaptest.NewLogger(t), api.Options{
		Health: func(context.Context) error { return errors.New("disk gone") },
	}).Router()
	result := testutil.Get(router, "/health", nil)
	testutil.ExpectStatus(t, http.StatusServiceUnavailable, result)
}

func TestMetrics_Exposed(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// a request is recorded under its route template
	testutil.Get(env.Router, "/health", nil)
	result := testutil.Get(env.Router, "/metrics", nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
	for _, want := range []string{"yourauth_http_requests_total", `route="/health"`} {
		if !strings.Contains(string(result.Body), want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestRouter_NotFound(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// unknown paths get the JSON envelope, on the root and on each subrouter
	for _, path := range []string{"/api/nowhere", "/api/dev/nowhere", "/api/auth/nowhere"} {
		var resp testutil.Envelope[any]
		result := testutil.Get(env.Router, path, &resp)
		testutil.ExpectStatus(t, http.StatusNotFound, result)
		if resp.Success || resp.Error == "" {
			t.Errorf("%s: expected error envelope, got %+v", path, resp)
		}
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/.well-known/jwks.json"},
		{http.MethodGet, "/api/dev/signup"},
		{http.MethodGet, "/api/dev/login"},
		{http.MethodPost, "/api/dev/dashboard"},
		{http.MethodGet, "/api/auth/login"},
		{http.MethodPost, "/api/auth/me"},
	}
	for _, tc := range cases {
		var resp testutil.Envelope[any]
		result := testutil.Do(env.Router, tc.method, tc.path, "", &resp)
		if result.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status 405, got %d", tc.method, tc.path, result.Code)
		}
		if resp.Success {
			t.Errorf("%s %s: expected error envelope", tc.method, tc.path)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t, api.Options{CORSOrigins: []string{"https://console.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://console.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")
	res := httptest.NewRecorder()
	env.Router.ServeHTTP(res, req)

	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if got := res.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "x-api-key") {
		t.Errorf("Access-Control-Allow-Headers = %q, want x-api-key", got)
	}
}

func setupRateLimited(t *testing.T, limit int) (*testutil.TestEnv, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := testutil.SetupTestEnvWithRouter(t, api.Options{
		Redis:     rdb,
		RateLimit: limit,
	})
	return env, mr
}

func TestRateLimit_BlocksAfterLimit(t *testing.T) {
	t.Parallel()
	env, _ := setupRateLimited(t, 3)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	key := testutil.APIKey(session.Credentials.APIKey)
	body := `{"email": "ghost@example.com"}`

	for i, remaining := range []string{"2", "1", "0"} {
		result := testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key)
		testutil.ExpectStatus(t, http.StatusOK, result)
		if got := result.Headers.Get("X-RateLimit-Limit"); got != "3" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 3", i, got)
		}
		if got := result.Headers.Get("X-RateLimit-Remaining"); got != remaining {
			t.Errorf("request %d: X-RateLimit-Remaining = %q, want %s", i, got, remaining)
		}
	}

	// the fourth request is blocked
	result := testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key)
	testutil.ExpectStatus(t, http.StatusTooManyRequests, result)
	if got := result.Headers.Get("Retry-After"); got != "300" {
		t.Errorf("Retry-After = %q, want 300", got)
	}

	// and stays blocked
	result = testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key)
	testutil.ExpectStatus(t, http.StatusTooManyRequests, result)
}

func TestRateLimit_CounterAlwaysExpires(t *testing.T) {
	t.Parallel()
	env, mr := setupRateLimited(t, 5)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	key := testutil.APIKey(session.Credentials.APIKey)
	counter := "yourauth:ratelimit:dev:" + session.Developer.ID + ":ip:198.51.100.9"

	// the first request opens a window
	result := testutil.PostJSON(env.Router, "/api/auth/reset", `{"email": "ghost@example.com"}`, nil, key,
		testutil.ForwardedFor("198.51.100.9"))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if ttl := mr.TTL(counter); ttl <= 0 || ttl > time.Minute {
		t.Errorf("counter TTL = %v, want within one window", ttl)
	}

	// a counter left without an expiry is given one on the next request
	if err := mr.Set(counter, "2"); err != nil {
		t.Fatalf("failed to seed counter: %v", err)
	}
	result = testutil.PostJSON(env.Router, "/api/auth/reset", `{"email": "ghost@example.com"}`, nil, key,
		testutil.ForwardedFor("198.51.100.9"))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if ttl := mr.TTL(counter); ttl <= 0 {
		t.Errorf("counter TTL = %v, want a window expiry", ttl)
	}

	// the window resets once it lapses
	mr.FastForward(time.Minute + time.Second)
	if mr.Exists(counter) {
		t.Error("counter survived its window")
	}
}

func TestRateLimit_PerClientIP(t *testing.T) {
	t.Parallel()
	env, _ := setupRateLimited(t, 1)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	key := testutil.APIKey(session.Credentials.APIKey)
	body := `{"email": "ghost@example.com"}`

	result := testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key, testutil.ForwardedFor("198.51.100.1"))
	testutil.ExpectStatus(t, http.StatusOK, result)
	result = testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key, testutil.ForwardedFor("198.51.100.1"))
	testutil.ExpectStatus(t, http.StatusTooManyRequests, result)

	// a different client has its own budget
	result = testutil.PostJSON(env.Router, "/api/auth/reset", body, nil, key, testutil.ForwardedFor("198.51.100.2"))
	testutil.ExpectStatus(t, http.StatusOK, result)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()
	env, mr := setupRateLimited(t, 1)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	key := testutil.APIKey(session.Credentials.APIKey)
	mr.Close()

	// with redis gone requests still pass
	for i := 0; i < 3; i++ {
		result := testutil.PostJSON(env.Router, "/api/auth/reset", `{"email": "ghost@example.com"}`, nil, key)
		testutil.ExpectStatus(t, http.StatusOK, result)
	}
}

func TestRateLimit_DeveloperRoutesUnaffected(t *testing.T) {
	t.Parallel()
	env, _ := setupRateLimited(t, 1)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")

	for i := 0; i < 3; i++ {
		result := testutil.Get(env.Router, "/api/dev/dashboard", nil, testutil.Bearer(session.Tokens.AccessToken))
		testutil.ExpectStatus(t, http.StatusOK, result)
	}
}
