package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

const (
	DefaultBaseURL = "https://api.yourauth.dev"
	DefaultTimeout = 10 * time.Second

	APIKeyHeader = "X-API-Key"
	JWKSPath     = "/.well-known/jwks.json"

	maxResponseBytes = 1 << 20
)

// Error is returned when the server answers with a non-2xx status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("yourauth: %d: %s", e.Status, e.Message)
}

type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Session struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Client talks to one yourauth deployment on behalf of one developer.
// It is safe for concurrent use.
type Client struct {
	mu       sync.RWMutex
	apiKey   string
	baseURL  string
	issuer   string
	audience string
	tenantID string

	httpClient *http.Client
	logger     *zap.Logger

	jwksMu    sync.Mutex
	validator tokens.Validator
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default client, whose timeout is DefaultTimeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTokenClaims sets the issuer and audience expected in verified tokens.
func WithTokenClaims(issuer, audience string) Option {
	return func(c *Client) {
		c.issuer = issuer
		c.audience = audience
	}
}

// WithTenantID makes GetUser and RequireUser reject access tokens issued to
// users of any other developer. Every tenant shares one signing key, so
// without it callers must compare TokenUser.TenantID themselves.
func WithTenantID(tenantID string) Option {
	return func(c *Client) { c.tenantID = tenantID }
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	c.apiKey = apiKey
	c.mu.Unlock()
}

// SetBaseURL points the client at another deployment. The cached key set
// is dropped so the next verification fetches the new server's keys.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = strings.TrimRight(baseURL, "/")
	c.mu.Unlock()

	c.jwksMu.Lock()
	c.validator = nil
	c.jwksMu.Unlock()
}

func (c *Client) Signup(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return post[Session](ctx, c, "/api/auth/signup", body)
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return post[Session](ctx, c, "/api/auth/login", body)
}

func (c *Client) Logout(ctx context.Context, userID string) error {
	_, err := post[json.RawMessage](ctx, c, "/api/auth/logout", map[string]string{"userId": userID})
	return err
}

// ResetPassword succeeds whether or not email belongs to a user.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	_, err := post[json.RawMessage](ctx, c, "/api/auth/reset", map[string]string{"email": email})
	return err
}

// Refresh exchanges a user's refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	resp, err := post[struct {
		Tokens Tokens `json:"tokens"`
	}](ctx, c, "/api/auth/refresh", map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, err
	}
	return &resp.Tokens, nil
}

func (c *Client) endpoint(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL + path
}

func post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, c.APIKey())

	c.logger.Debug("posting request", zap.String("url", url))
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("yourauth: request failed: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("yourauth: read response: %w", err)
	}

	var env envelope[T]
	decodeErr := json.Unmarshal(raw, &env)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := env.Error
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return nil, &Error{Status: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yourauth: decode response: %w", decodeErr)
	}
	return &env.Data, nil
}
