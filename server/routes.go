package server

import (
	"net/http"

	"VTube/metrics"

	"github.com/gorilla/mux"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Users      *UserHandler
	Auth       *AuthHandler
	Health     *HealthHandler
	Limiter    Limiter // Applied to registration only, may be nil
	CORSOrigin string
	TrustProxy bool // Key clients on X-Forwarded-For
}

// NewRouter builds the HTTP handler for the /api/v1 surface.
func NewRouter(h Handlers) http.Handler {
	router := mux.NewRouter()
	router.Use(requestLogger(h.TrustProxy))
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/healthcheck", h.Health.HealthcheckHandler).Methods(http.MethodGet)

	api.Handle("/users", rateLimit(h.Limiter, h.TrustProxy, http.HandlerFunc(h.Users.RegisterHandler))).Methods(http.MethodPost)
	api.HandleFunc("/users/login", h.Auth.LoginHandler).Methods(http.MethodPost)
	api.Handle("/users/logout", h.Auth.AuthMiddleware(http.HandlerFunc(h.Auth.LogoutHandler))).Methods(http.MethodPost)
	api.Handle("/users/current", h.Auth.AuthMiddleware(http.HandlerFunc(h.Auth.CurrentUserHandler))).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return corsMiddleware(h.CORSOrigin, router)
}
