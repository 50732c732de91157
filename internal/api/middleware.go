package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/metrics"
	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

const (
	APIKeyHeader    = "X-API-Key"
	UserTokenHeader = "X-User-Token"
)

type contextKey int

const developerKey contextKey = iota

func withDeveloper(ctx context.Context, dev *service.Developer) context.Context {
	return context.WithValue(ctx, developerKey, dev)
}

// developerFrom returns the developer a gate attached to the request.
func developerFrom(r *http.Request) *service.Developer {
	dev, _ := r.Context().Value(developerKey).(*service.Developer)
	return dev
}

// bearerToken returns the credential of an "Authorization: Bearer" header,
// or "" when the header is absent or uses another scheme.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, credential, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(credential)
}

type authorizeFunc func(context.Context, string) (*service.Developer, error)

func (a *API) gate(
	authorize authorizeFunc,
	credential func(*http.Request) string,
	next http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dev, err := authorize(r.Context(), credential(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withDeveloper(r.Context(), dev)))
	})
}

// requireDeveloper accepts a developer access token or an API key as the
// bearer credential.
func (a *API) requireDeveloper(next http.Handler) http.Handler {
	return a.gate(a.service.AuthorizeDeveloper, bearerToken, next)
}

// requireSession accepts only a developer access token.
func (a *API) requireSession(next http.Handler) http.Handler {
	return a.gate(a.service.AuthorizeSession, bearerToken, next)
}

// requireTenant resolves the developer owning an end-user request. SDK
// clients send X-API-Key; without it the bearer credential goes through the
// developer gate.
func (a *API) requireTenant(next http.Handler) http.Handler {
	byKey := a.gate(a.service.AuthorizeAPIKey, func(r *http.Request) string {
		return r.Header.Get(APIKeyHeader)
	}, next)
	byBearer := a.requireDeveloper(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "" {
			byKey.ServeHTTP(w, r)
			return
		}
		byBearer.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and records its metrics under the matched
// route template.
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), elapsed.Seconds())
		a.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
			zap.String("ip", clientIP(r)),
		)
	})
}
