package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
}

func (a *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(a.instrument)

	r.HandleFunc("/.well-known/jwks.json", a.JWKS()).Methods(http.MethodGet)
	r.HandleFunc("/health", a.Health()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	dev := r.PathPrefix("/api/dev").Subrouter()
	dev.HandleFunc("/signup", a.DeveloperSignup()).Methods(http.MethodPost)
	dev.HandleFunc("/login", a.DeveloperLogin()).Methods(http.MethodPost)
	dev.HandleFunc("/refresh", a.DeveloperRefresh()).Methods(http.MethodPost)
	dev.Handle("/dashboard", a.requireDeveloper(a.Dashboard())).Methods(http.MethodGet)
	dev.Handle("/regenerate-key", a.requireSession(a.RegenerateKey())).Methods(http.MethodPost)
	dev.Handle("/users/{id}", a.requireDeveloper(a.UpdateUserStatus())).Methods(http.MethodPatch)

	auth := r.PathPrefix("/api/auth").Subrouter()
	auth.Use(a.requireTenant, a.rateLimit)
	auth.HandleFunc("/signup", a.UserSignup()).Methods(http.MethodPost)
	auth.HandleFunc("/login", a.UserLogin()).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", a.UserRefresh()).Methods(http.MethodPost)
	auth.HandleFunc("/reset", a.UserReset()).Methods(http.MethodPost)
	auth.HandleFunc("/logout", a.UserLogout()).Methods(http.MethodPost)
	auth.HandleFunc("/me", a.Me()).Methods(http.MethodGet)

	// subrouters do not inherit these from their parent
	for _, router := range []*mux.Router{r, dev, auth} {
		router.NotFoundHandler = http.HandlerFunc(routeNotFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}

	origins := a.opts.CORSOrigins
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", APIKeyHeader, UserTokenHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusNotFound, "route not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
}
