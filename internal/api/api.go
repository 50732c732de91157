// Package api exposes the service over HTTP: the developer console routes,
// the per-tenant end-user routes and the public JWKS document.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

const maxBodyBytes = 1 << 20

type Options struct {
	CORSOrigins []string

	// Redis enables rate limiting on the end-user routes. Nil disables it.
	Redis         *redis.Client
	RateLimit     int
	RateWindow    time.Duration
	BlockDuration time.Duration

	// Health reports storage reachability for /health. Nil always passes.
	Health func(context.Context) error
}

type API struct {
	service *service.Service
	keys    *tokens.KeyPair
	logger  *zap.Logger
	opts    Options
}

func New(
	svc *service.Service,
	keys *tokens.KeyPair,
	logger *zap.Logger,
	opts Options,
) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 100
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.BlockDuration <= 0 {
		opts.BlockDuration = 5 * time.Minute
	}
	return &API{
		service: svc,
		keys:    keys,
		logger:  logger,
		opts:    opts,
	}
}

// envelope is the body of every response except the JWKS document.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(req); err != nil {
		writeStatus(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func returnJson(
	w http.ResponseWriter,
	status int,
	message string,
	data any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func writeStatus(
	w http.ResponseWriter,
	status int,
	message string,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   message,
	})
}

// writeError maps service errors onto status codes. Every authentication
// failure produces the same 401 body.
func (a *API) writeError(
	w http.ResponseWriter,
	r *http.Request,
	err error,
) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeStatus(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAccountExists):
		writeStatus(w, http.StatusBadRequest, "account already exists")
	case errors.Is(err, service.ErrPlanNotFound):
		writeStatus(w, http.StatusBadRequest, "unknown plan")
	case errors.Is(err, service.ErrMissingCredential):
		writeStatus(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrTokenInvalid):
		writeStatus(w, http.StatusUnauthorized, "invalid or expired credentials")
	case errors.Is(err, service.ErrInvalidLogin):
		writeStatus(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrAccountSuspended):
		writeStatus(w, http.StatusForbidden, "account suspended")
	case errors.Is(err, service.ErrAccountNotFound):
		writeStatus(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrQuotaExceeded):
		writeStatus(w, http.StatusTooManyRequests, "user quota exceeded, upgrade your plan")
	default:
		a.logApiErr(r, "request failed", err)
		writeStatus(w, http.StatusInternalServerError, "internal server error")
	}
}

func (a *API) logApiErr(r *http.Request, msg string, err error) {
	a.logger.Error(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

// clientIP prefers the first X-Forwarded-For hop, then the peer address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
