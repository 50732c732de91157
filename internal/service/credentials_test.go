package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
	"git.sr.ht/~jakintosh/yourauth/internal/testutil"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func TestAuthorizeDeveloper_AccessToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")

	// a developer access token resolves on the token path
	dev, err := env.Service.AuthorizeDeveloper(context.Background(), session.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("AuthorizeDeveloper failed: %v", err)
	}
	if dev.ID != session.Developer.ID {
		t.Errorf("ID = %s, want %s", dev.ID, session.Developer.ID)
	}
}

func TestAuthorizeDeveloper_APIKey(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")

	// the API key falls through to the key path
	dev, err := env.Service.AuthorizeDeveloper(context.Background(), session.Credentials.APIKey)
	if err != nil {
		t.Fatalf("AuthorizeDeveloper failed: %v", err)
	}
	if dev.ID != session.Developer.ID {
		t.Errorf("ID = %s, want %s", dev.ID, session.Developer.ID)
	}
}

func TestAuthorizeDeveloper_AnyKeyShape(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	legacyKey := "legacy-key-0001"
	if err := env.DB.DeveloperStore().UpdateAPIKey(ctx, session.Developer.ID, legacyKey); err != nil {
		t.Fatalf("UpdateAPIKey failed: %v", err)
	}

	// a stored key without the generated prefix still resolves by exact match
	dev, err := env.Service.AuthorizeDeveloper(ctx, legacyKey)
	if err != nil {
		t.Fatalf("AuthorizeDeveloper failed: %v", err)
	}
	if dev.ID != session.Developer.ID {
		t.Errorf("ID = %s, want %s", dev.ID, session.Developer.ID)
	}

	// near misses do not
	if _, err := env.Service.AuthorizeDeveloper(ctx, "legacy-key-0002"); !errors.Is(err, service.ErrInvalidCredential) {
		t.Errorf("near miss: expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthorizeDeveloper_Rejects(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	user := env.RegisterTestUser(t, session.Developer, "user@example.com")
	unknownKey, _ := service.GenerateAPIKey()

	// missing credential is distinguished from a bad one
	if _, err := env.Service.AuthorizeDeveloper(ctx, ""); !errors.Is(err, service.ErrMissingCredential) {
		t.Errorf("empty: expected ErrMissingCredential, got %v", err)
	}

	cases := []struct {
		name       string
		credential string
	}{
		{"garbage", "not-a-credential"},
		{"unknown api key", unknownKey},
		{"api secret", session.Credentials.APISecret},
		{"end user token", user.Tokens.AccessToken},
		{"refresh token", session.Tokens.RefreshToken},
		{"forged subject", env.IssueTestAccessToken(t, "someone", session.Developer.ID, "dev@example.com").Encoded()},
		{"unknown email", env.IssueTestAccessToken(t, session.Developer.ID, session.Developer.ID, "ghost@example.com").Encoded()},
	}
	for _, tc := range cases {
		_, err := env.Service.AuthorizeDeveloper(ctx, tc.credential)
		if !errors.Is(err, service.ErrInvalidCredential) {
			t.Errorf("%s: expected ErrInvalidCredential, got %v", tc.name, err)
		}
	}
}

func TestAuthorizeDeveloper_ExpiredToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")
	past := time.Now().Add(-time.Hour)
	issuer, _ := tokens.InitServer(env.Keys, tokens.Options{Now: func() time.Time { return past }})
	expired, err := issuer.IssueAccessToken(session.Developer.ID, session.Developer.ID, session.Developer.Email)
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	// an expired token falls through the token path and fails
	_, err = env.Service.AuthorizeDeveloper(context.Background(), expired.Encoded())
	if !errors.Is(err, service.ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthorizeSession_RejectsAPIKey(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")

	// session gate takes tokens only
	if _, err := env.Service.AuthorizeSession(ctx, session.Tokens.AccessToken); err != nil {
		t.Errorf("token rejected: %v", err)
	}
	if _, err := env.Service.AuthorizeSession(ctx, session.Credentials.APIKey); !errors.Is(err, service.ErrInvalidCredential) {
		t.Errorf("api key: expected ErrInvalidCredential, got %v", err)
	}
	if _, err := env.Service.AuthorizeSession(ctx, ""); !errors.Is(err, service.ErrMissingCredential) {
		t.Errorf("empty: expected ErrMissingCredential, got %v", err)
	}
}

func TestAuthorizeAPIKey_RejectsToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnv(t)
	ctx := context.Background()

	// setup env
	session := env.RegisterTestDeveloper(t, "dev@example.com")

	// key gate takes keys only
	if _, err := env.Service.AuthorizeAPIKey(ctx, session.Credentials.APIKey); err != nil {
		t.Errorf("api key rejected: %v", err)
	}
	if _, err := env.Service.AuthorizeAPIKey(ctx, session.Tokens.AccessToken); !errors.Is(err, service.ErrInvalidCredential) {
		t.Errorf("token: expected ErrInvalidCredential, got %v", err)
	}
	if _, err := env.Service.AuthorizeAPIKey(ctx, ""); !errors.Is(err, service.ErrMissingCredential) {
		t.Errorf("empty: expected ErrMissingCredential, got %v", err)
	}
}
