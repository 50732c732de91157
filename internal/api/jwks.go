package api

import (
	"encoding/json"
	"net/http"
	"time"

	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

// JWKS serves the public verification key. The body is the bare key set,
// not the response envelope.
func (a *API) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := tokens.JWKS(a.keys)
		if err != nil {
			a.logApiErr(r, "failed to build jwks", err)
			writeStatus(w, http.StatusInternalServerError, "failed to generate JWKS")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_ = json.NewEncoder(w).Encode(set)
	}
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *API) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.opts.Health != nil {
			if err := a.opts.Health(r.Context()); err != nil {
				a.logApiErr(r, "health check failed", err)
				writeStatus(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
		})
	}
}
