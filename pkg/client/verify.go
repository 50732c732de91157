package client

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

var (
	ErrTokenAbsent  = errors.New("no bearer token")
	ErrTokenInvalid = tokens.ErrTokenInvalid

	// ErrWrongTenant wraps ErrTokenInvalid.
	ErrWrongTenant = fmt.Errorf("%w: issued for another tenant", ErrTokenInvalid)
	// ErrDeveloperToken wraps ErrTokenInvalid. Developer dashboard tokens
	// are signed by the same key as end-user tokens.
	ErrDeveloperToken = fmt.Errorf("%w: developer token", ErrTokenInvalid)
)

// TokenUser is the identity carried by a verified access token.
type TokenUser struct {
	ID       string
	Email    string
	TenantID string
	IssuedAt time.Time
}

// Verifier checks access tokens. Code protecting its own routes should depend
// on Verifier rather than *Client so it can be tested with a fake.
type Verifier interface {
	GetUser(ctx context.Context, token string) (*TokenUser, error)
}

var _ Verifier = (*Client)(nil)

// GetUser verifies token against the server's published key and returns the
// identity inside it. Failures wrap ErrTokenInvalid unless the key set could
// not be fetched. Developer dashboard tokens are always rejected; tokens of
// other tenants are rejected only when the client was built WithTenantID.
func (c *Client) GetUser(ctx context.Context, token string) (*TokenUser, error) {
	validator, err := c.tokenValidator(ctx)
	if err != nil {
		return nil, err
	}

	accessToken, err := validator.VerifyAccessToken(token)
	if err != nil {
		c.logger.Debug("token rejected", zap.Error(err))
		return nil, err
	}
	user := &TokenUser{
		ID:       accessToken.Subject(),
		Email:    accessToken.Email(),
		TenantID: accessToken.Tenant(),
		IssuedAt: accessToken.IssuedAt(),
	}
	if err := CheckTenant(user, c.tenantID); err != nil {
		c.logger.Debug("token rejected", zap.String("tenant", user.TenantID), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// CheckTenant rejects developer tokens, whose subject is the tenant itself.
// When tenantID is set it also rejects users of any other tenant.
func CheckTenant(user *TokenUser, tenantID string) error {
	if user.ID == user.TenantID {
		return ErrDeveloperToken
	}
	if tenantID != "" && user.TenantID != tenantID {
		return ErrWrongTenant
	}
	return nil
}

// VerifyToken reports whether token is a valid access token.
func (c *Client) VerifyToken(ctx context.Context, token string) bool {
	_, err := c.GetUser(ctx, token)
	return err == nil
}

// tokenValidator returns the cached validator, fetching the key set on first
// use. A failed fetch is not cached.
func (c *Client) tokenValidator(ctx context.Context) (tokens.Validator, error) {
	c.jwksMu.Lock()
	defer c.jwksMu.Unlock()

	if c.validator != nil {
		return c.validator, nil
	}

	key, err := c.fetchJWKS(ctx)
	if err != nil {
		return nil, err
	}
	c.validator = tokens.InitClient(key, tokens.Options{
		Issuer:   c.issuer,
		Audience: c.audience,
	})
	return c.validator, nil
}

func (c *Client) fetchJWKS(ctx context.Context) (*rsa.PublicKey, error) {
	url := c.endpoint(JWKSPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("failed to fetch jwks", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("yourauth: fetch jwks: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &Error{Status: res.StatusCode, Message: "failed to fetch JWKS"}
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("yourauth: read jwks: %w", err)
	}
	key, err := tokens.ParseJWKS(data)
	if err != nil {
		return nil, fmt.Errorf("yourauth: %w", err)
	}
	c.logger.Debug("cached jwks", zap.String("url", url))
	return key, nil
}

type userKey struct{}

// UserFrom returns the user stored by RequireUser.
func UserFrom(ctx context.Context) (*TokenUser, bool) {
	user, ok := ctx.Value(userKey{}).(*TokenUser)
	return user, ok
}

// RequireUser runs next only for requests carrying a valid bearer access
// token, answering 401 otherwise.
func (c *Client) RequireUser(next http.Handler) http.Handler {
	return Middleware(c, next)
}

// Middleware is RequireUser for any Verifier.
func Middleware(v Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, ErrTokenAbsent.Error(), http.StatusUnauthorized)
			return
		}
		user, err := v.GetUser(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
