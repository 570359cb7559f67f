package main

import (
	"net/http"

	"pathwise-backend/internal/app"
	"pathwise-backend/lib/httputil"

	"github.com/gorilla/mux"
)

var endpoints = []string{
	"GET /api/health",
	"POST /api/auth/register",
	"POST /api/auth/login",
	"GET /api/discussions",
	"GET /api/admin/stats",
}

func NewHandler(stack app.Authd, cfg app.AuthdConfig) http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"status":  "OK",
			"message": "Auth backend is running",
		})
	}).Methods(http.MethodGet)

	stack.Auth.Routes(api.PathPrefix("/auth").Subrouter(), stack.Verifier)
	stack.Discussions.Routes(api.PathPrefix("/discussions").Subrouter(), stack.Verifier)
	stack.Admin.Routes(api.PathPrefix("/admin").Subrouter(), stack.Verifier)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"message":     "PathWise Auth Service API",
			"status":      "operational",
			"environment": cfg.Environment,
			"endpoints": httputil.J{
				"health":      "/api/health",
				"auth":        "/api/auth",
				"discussions": "/api/discussions",
				"admin":       "/api/admin",
			},
		})
	}).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.J{
			"message":            "Route not found",
			"path":               r.URL.Path,
			"availableEndpoints": endpoints,
		})
	})

	limiter := httputil.NewRateLimiter(cfg.Http.RateLimit())
	return httputil.Chain(
		router,
		httputil.Recover(httputil.J{"message": "Server error"}),
		httputil.RequestLog,
		httputil.SecurityHeaders,
		httputil.Cors(cfg.Http.Cors()),
		limiter.Middleware,
		httputil.BodyLimit(app.BodyLimit),
		httputil.Gzip,
	)
}
