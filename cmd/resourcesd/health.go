package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"pathwise-backend/lib/httputil"
	"pathwise-backend/lib/telemetry"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 3 * time.Second

type Health struct {
	db          *sql.DB
	dbName      string
	cache       *badger.DB
	version     string
	environment string
	started     time.Time
}

type componentStatus struct {
	Status string `json:"status"`
	Name   string `json:"name,omitempty"`
	Error  string `json:"error,omitempty"`
	Note   string `json:"note,omitempty"`
}

func (h Health) uptime() float64 {
	return time.Since(h.started).Seconds()
}

func (h Health) pingDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return h.db.PingContext(ctx)
}

func (h Health) Routes(r *mux.Router) {
	r.HandleFunc("", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/live", h.handleLive).Methods(http.MethodGet)
}

func megabytes(n uint64) string {
	return fmt.Sprintf("%d MB", (n+(1<<19))>>20)
}

func (h Health) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		database componentStatus
		cache    componentStatus
		stats    telemetry.ProcessStats
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := h.pingDatabase(gctx)
		if err != nil {
			slog.WarnContext(gctx, "database ping failed", "err", err)
			database = componentStatus{Status: "disconnected", Error: err.Error()}
			return nil
		}
		database = componentStatus{Status: "connected", Name: h.dbName}
		return nil
	})
	group.Go(func() error {
		if h.cache == nil || h.cache.IsClosed() {
			cache = componentStatus{
				Status: "unavailable",
				Note:   "The page cache is optional for this service",
			}
			return nil
		}
		cache = componentStatus{Status: "connected"}
		return nil
	})
	group.Go(func() error {
		stats = telemetry.ReadProcessStats(gctx)
		return nil
	})
	group.Wait()

	status := "ok"
	code := http.StatusOK
	if database.Status != "connected" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httputil.WriteJSON(w, code, httputil.J{
		"status":      status,
		"timestamp":   time.Now().UTC(),
		"uptime":      h.uptime(),
		"version":     h.version,
		"environment": h.environment,
		"services": httputil.J{
			"database": database,
			"cache":    cache,
		},
		"memory": httputil.J{
			"rss":       megabytes(stats.Rss),
			"heapTotal": megabytes(stats.HeapTotal),
			"heapUsed":  megabytes(stats.HeapUsed),
		},
	})
}

func (h Health) handleReady(w http.ResponseWriter, r *http.Request) {
	err := h.pingDatabase(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.J{
			"status": "not ready",
			"reason": "Database not connected",
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

func (h Health) handleLive(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.J{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    h.uptime(),
	})
}
