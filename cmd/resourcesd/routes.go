package main

import (
	"net/http"
	"time"

	"pathwise-backend/internal/app"
	"pathwise-backend/lib/httputil"

	"github.com/gorilla/mux"
)

var endpoints = []string{
	"GET /",
	"GET /health",
	"GET /api/resources",
	"POST /api/scraping/resources",
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusNotFound, httputil.J{
		"error":              "Endpoint not found",
		"message":            "The requested endpoint " + r.URL.RequestURI() + " does not exist",
		"availableEndpoints": endpoints,
	})
}

func NewHandler(stack app.Resourcesd, cfg app.ResourcesdConfig) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)

	health := Health{
		db:          stack.DB,
		dbName:      cfg.Database.Name(),
		cache:       stack.Cache,
		version:     cfg.Version,
		environment: cfg.Environment,
		started:     time.Now(),
	}
	health.Routes(router.PathPrefix("/health").Subrouter())

	stack.Resources.Routes(router.PathPrefix("/api/resources").Subrouter())
	stack.Scraping.Routes(router.PathPrefix("/api/scraping").Subrouter())

	limiter := httputil.NewRateLimiter(cfg.Http.RateLimit())
	chained := httputil.Chain(
		router,
		httputil.Recover(httputil.J{"success": false, "message": "Internal server error"}),
		httputil.RequestLog,
		httputil.SecurityHeaders,
		httputil.Cors(cfg.Http.Cors()),
		limiter.Middleware,
		httputil.BodyLimit(app.BodyLimit),
		httputil.Gzip,
	)

	// the service info and 404 answers skip the middleware
	outer := mux.NewRouter()
	outer.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, httputil.J{
			"message": "PathWise Resources Service API",
			"version": cfg.Version,
			"status":  "operational",
			"endpoints": httputil.J{
				"health":    "/health",
				"resources": "/api/resources",
				"scraping":  "/api/scraping",
			},
		})
	}).Methods(http.MethodGet)
	outer.PathPrefix("/health").Handler(chained)
	outer.PathPrefix("/api/resources").Handler(chained)
	outer.PathPrefix("/api/scraping").Handler(chained)
	outer.NotFoundHandler = http.HandlerFunc(notFound)
	return outer
}
