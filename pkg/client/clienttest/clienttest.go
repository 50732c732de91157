// Package clienttest lets applications test routes protected by the yourauth
// SDK without a running yourauth server.
//
//	func TestProfile(t *testing.T) {
//	    v, _ := clienttest.NewVerifier("dev-123")
//	    router := myapp.NewRouter(v) // myapp takes a client.Verifier
//
//	    req, _ := v.AuthenticatedRequest("GET", "/profile", "user-1", "alice@example.com")
//	    rr := httptest.NewRecorder()
//	    router.ServeHTTP(rr, req)
//	}
package clienttest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"git.sr.ht/~jakintosh/yourauth/pkg/client"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

// Verifier implements client.Verifier with its own key pair. Tokens it
// issues verify exactly as tokens from a real server would, for a client
// built WithTenantID(TenantID).
type Verifier struct {
	TenantID string

	keys      *tokens.KeyPair
	issuer    tokens.Issuer
	validator tokens.Validator
}

var _ client.Verifier = (*Verifier)(nil)

func NewVerifier(tenantID string) (*Verifier, error) {
	keys, err := tokens.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	issuer, validator := tokens.InitServer(keys, tokens.Options{})
	return &Verifier{
		TenantID:  tenantID,
		keys:      keys,
		issuer:    issuer,
		validator: validator,
	}, nil
}

func (v *Verifier) GetUser(_ context.Context, token string) (*client.TokenUser, error) {
	accessToken, err := v.validator.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	user := &client.TokenUser{
		ID:       accessToken.Subject(),
		Email:    accessToken.Email(),
		TenantID: accessToken.Tenant(),
		IssuedAt: accessToken.IssuedAt(),
	}
	if err := client.CheckTenant(user, v.TenantID); err != nil {
		return nil, err
	}
	return user, nil
}

func (v *Verifier) IssueAccessToken(userID, email string) (string, error) {
	token, err := v.issuer.IssueAccessToken(userID, v.TenantID, email)
	if err != nil {
		return "", err
	}
	return token.Encoded(), nil
}

// IssueExpiredAccessToken returns a correctly signed token that expired
// an hour ago.
func (v *Verifier) IssueExpiredAccessToken(userID, email string) (string, error) {
	past := func() time.Time { return time.Now().Add(-tokens.DefaultAccessTTL - time.Hour) }
	issuer, _ := tokens.InitServer(v.keys, tokens.Options{Now: past})
	token, err := issuer.IssueAccessToken(userID, v.TenantID, email)
	if err != nil {
		return "", err
	}
	return token.Encoded(), nil
}

// IssueForeignAccessToken returns a correctly signed token for a user of
// another tenant.
func (v *Verifier) IssueForeignAccessToken(userID, tenantID, email string) (string, error) {
	token, err := v.issuer.IssueAccessToken(userID, tenantID, email)
	if err != nil {
		return "", err
	}
	return token.Encoded(), nil
}

func (v *Verifier) IssueRefreshToken(userID string) (string, error) {
	token, err := v.issuer.IssueRefreshToken(userID, v.TenantID)
	if err != nil {
		return "", err
	}
	return token.Encoded(), nil
}

// AuthenticatedRequest builds a request carrying a fresh bearer access token.
func (v *Verifier) AuthenticatedRequest(method, url, userID, email string) (*http.Request, error) {
	token, err := v.IssueAccessToken(userID, email)
	if err != nil {
		return nil, err
	}
	req := httptest.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// JWKSHandler serves the verifier's public key the way the server's
// /.well-known/jwks.json does, so a real client.Client can be pointed at it.
func (v *Verifier) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set, err := tokens.JWKS(v.keys)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	})
}
