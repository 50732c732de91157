package tokens_test

import (
	"errors"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

func TestAccessToken_Verify_Valid(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	issuer, validator := tokens.InitServer(keys, tokens.Options{})

	// issue a valid token
	original, err := issuer.IssueAccessToken("user-1", "dev-1", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	// verify succeeds and claims round trip
	decoded, err := validator.VerifyAccessToken(original.Encoded())
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if decoded.Subject() != "user-1" {
		t.Errorf("Subject = %s, want user-1", decoded.Subject())
	}
	if decoded.Tenant() != "dev-1" {
		t.Errorf("Tenant = %s, want dev-1", decoded.Tenant())
	}
	if decoded.Email() != "a@b.co" {
		t.Errorf("Email = %s, want a@b.co", decoded.Email())
	}
	if decoded.Issuer() != tokens.DefaultIssuer {
		t.Errorf("Issuer = %s, want %s", decoded.Issuer(), tokens.DefaultIssuer)
	}
	if decoded.Audience() != tokens.DefaultAudience {
		t.Errorf("Audience = %s, want %s", decoded.Audience(), tokens.DefaultAudience)
	}
	if decoded.Encoded() != original.Encoded() {
		t.Error("Encoded mismatch")
	}
}

func TestAccessToken_ExpiresAfterFifteenMinutes(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	now, clock := testClock()
	issuer, validator := tokens.InitServer(keys, tokens.Options{Now: clock})
	issuedAt := *now

	token, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if !token.Expiration().Equal(issuedAt.Add(15 * time.Minute)) {
		t.Errorf("Expiration = %v, want %v", token.Expiration(), issuedAt.Add(15*time.Minute))
	}

	// one second before expiry still verifies
	*now = issuedAt.Add(15*time.Minute - time.Second)
	if _, err := validator.VerifyAccessToken(token.Encoded()); err != nil {
		t.Errorf("token rejected before expiry: %v", err)
	}

	// at the expiry second the token is expired
	*now = issuedAt.Add(15 * time.Minute)
	if _, err := validator.VerifyAccessToken(token.Encoded()); !errors.Is(err, tokens.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}

	// and stays expired afterwards
	*now = issuedAt.Add(time.Hour)
	if _, err := validator.VerifyAccessToken(token.Encoded()); !errors.Is(err, tokens.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestAccessToken_NotYetIssued(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	now, clock := testClock()
	issuer, validator := tokens.InitServer(keys, tokens.Options{Now: clock})

	token, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}

	// verifying before iat fails
	*now = now.Add(-time.Minute)
	if _, err := validator.VerifyAccessToken(token.Encoded()); !errors.Is(err, tokens.ErrTokenNotIssued) {
		t.Errorf("err = %v, want ErrTokenNotIssued", err)
	}
}

func TestAccessToken_RefreshTokenRejected(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	issuer, validator := tokens.InitServer(keys, tokens.Options{})

	refresh, err := issuer.IssueRefreshToken("user", "dev")
	if err != nil {
		t.Fatalf("IssueRefreshToken failed: %v", err)
	}

	// refresh token cannot be used as an access token
	if _, err := validator.VerifyAccessToken(refresh.Encoded()); !errors.Is(err, tokens.ErrTokenWrongType) {
		t.Errorf("err = %v, want ErrTokenWrongType", err)
	}
}

func TestAccessToken_CustomTTL(t *testing.T) {
	t.Parallel()
	keys := getSharedTestKeys(t)
	now, clock := testClock()
	issuer, _ := tokens.InitServer(keys, tokens.Options{
		AccessTTL: time.Hour,
		Now:       clock,
	})

	// configured lifetime is applied
	token, err := issuer.IssueAccessToken("user", "dev", "a@b.co")
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	if got := token.Expiration().Sub(*now); got != time.Hour {
		t.Errorf("lifetime = %v, want 1h", got)
	}
}
