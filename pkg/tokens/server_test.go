package tokens_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
	"github.com/golang-jwt/jwt/v5"
)

func TestServer_IssueAccessToken(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	issuer, _ := tokens.InitServer(keys, tokens.Options{Issuer: "test.domain", Audience: "aud"})

	// issuing access token succeeds with correct fields
	token, err := issuer.IssueAccessToken("subject", "tenant", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if token.Subject() != "subject" {
		t.Errorf("Subject = %s, want subject", token.Subject())
	}
	if token.Encoded() == "" {
		t.Error("Encoded token is empty")
	}
	if token.Issuer() != "test.domain" {
		t.Errorf("Issuer = %s, want test.domain", token.Issuer())
	}
	if token.Audience() != "aud" {
		t.Errorf("Audience = %s, want aud", token.Audience())
	}
}

func TestServer_IssueRefreshToken(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	issuer, _ := tokens.InitServer(keys, tokens.Options{Issuer: "test.domain"})

	// issuing refresh token succeeds with correct fields
	token, err := issuer.IssueRefreshToken("subject", "tenant")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}
	if token.Tenant() != "tenant" {
		t.Errorf("Tenant = %s, want tenant", token.Tenant())
	}
	if token.Issuer() != "test.domain" {
		t.Errorf("Issuer = %s, want test.domain", token.Issuer())
	}
}

func TestServer_WireClaims(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	issuer, _ := tokens.InitServer(keys, tokens.Options{})

	access, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	refresh, err := issuer.IssueRefreshToken("user", "dev")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}

	// access token header names RS256 and the published key id
	parsed, _, err := jwt.NewParser().ParseUnverified(access.Encoded(), jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified failed: %v", err)
	}
	if parsed.Header["alg"] != "RS256" {
		t.Errorf("alg = %v, want RS256", parsed.Header["alg"])
	}
	if parsed.Header["kid"] != tokens.KeyID {
		t.Errorf("kid = %v, want %s", parsed.Header["kid"], tokens.KeyID)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	for _, name := range []string{"sub", "dev", "email", "iss", "aud", "iat", "exp"} {
		if _, ok := claims[name]; !ok {
			t.Errorf("access token missing claim %q", name)
		}
	}
	if _, ok := claims["type"]; ok {
		t.Error("access token should not carry a type claim")
	}

	// refresh token carries type=refresh and no email
	parsed, _, err = jwt.NewParser().ParseUnverified(refresh.Encoded(), jwt.MapClaims{})
	if err != nil {
		t.Fatalf("ParseUnverified failed: %v", err)
	}
	claims = parsed.Claims.(jwt.MapClaims)
	if claims["type"] != "refresh" {
		t.Errorf("type = %v, want refresh", claims["type"])
	}
	if _, ok := claims["email"]; ok {
		t.Error("refresh token should not carry an email claim")
	}
}

func TestServer_DefaultLifetimes(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	now, clock := testClock()
	issuer, _ := tokens.InitServer(keys, tokens.Options{Now: clock})

	access, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	refresh, err := issuer.IssueRefreshToken("user", "dev")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}

	// access lives 15 minutes, refresh 7 days
	if got := access.Expiration().Sub(*now); got != 15*time.Minute {
		t.Errorf("access lifetime = %v, want 15m", got)
	}
	if got := refresh.Expiration().Sub(*now); got != 7*24*time.Hour {
		t.Errorf("refresh lifetime = %v, want 168h", got)
	}
}

func TestServer_NoKeys(t *testing.T) {
	t.Parallel()
	issuer, validator := tokens.InitServer(nil, tokens.Options{})

	// issuing without a key fails
	_, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if !errors.Is(err, tokens.ErrKeyUnavailable) {
		t.Errorf("err = %v, want ErrKeyUnavailable", err)
	}

	// verifying without a key fails closed
	_, err = validator.VerifyAccessToken(strings.Repeat("a", 10))
	if !errors.Is(err, tokens.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}
