// Package api provides the HTTP surfaces of Keybeat: the daemon's local
// REST API (stats, event injection, goals, sync, live stream) and the
// relay server that hosts replica rows for multi-device sync.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/keybeat-app/keybeat/internal/app/reconcile"
	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/app/tracker"
	"github.com/keybeat-app/keybeat/internal/health"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the daemon's local API server.
type Server struct {
	store       *stats.Store
	tracker     *tracker.Tracker
	db          *sqlite.DB
	hub         *Hub
	engine      *reconcile.Engine // nil until SetEngine
	checker     *health.Checker   // nil in tests that don't care
	version     string
	logRequests bool
}

// NewServer creates the daemon API server over its core services.
func NewServer(store *stats.Store, tr *tracker.Tracker, db *sqlite.DB, hub *Hub) *Server {
	return &Server{store: store, tracker: tr, db: db, hub: hub, version: "0.1.0"}
}

// SetEngine attaches the reconciliation engine once sync is configured.
func (s *Server) SetEngine(e *reconcile.Engine) { s.engine = e }

// SetChecker attaches the health check registry.
func (s *Server) SetChecker(c *health.Checker) { s.checker = c }

// SetVersion overrides the reported version string.
func (s *Server) SetVersion(v string) { s.version = v }

// EnableRequestLog turns on per-request logging. Call before Handler.
func (s *Server) EnableRequestLog() { s.logRequests = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.logRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// The live stream stays open until the client hangs up, so it
		// sits outside the request timeout group.
		r.Get("/live", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/stats", s.handleStats)
			r.Post("/events", s.handleEvents)

			r.Get("/achievements", s.handleAchievements)
			r.Get("/challenges", s.handleChallenges)
			r.Get("/goals", s.handleGoals)
			r.Post("/goals", s.handleAddGoal)
			r.Get("/settings", s.handleGetSettings)
			r.Put("/settings", s.handlePutSettings)

			r.Get("/notifications", s.handleNotifications)
			r.Get("/xp", s.handleXPLedger)

			r.Post("/sync", s.handleSync)
			r.Get("/devices", s.handleDevices)
			r.Post("/reset", s.handleReset)
		})
	})

	return r
}

// handleHealthz reports overall daemon health. Degraded checks turn the
// endpoint 503 so process supervisors notice.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": s.version,
		})
		return
	}

	status := http.StatusOK
	state := "ok"
	if !s.checker.IsHealthy() {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":  state,
		"version": s.version,
		"checks":  s.checker.Statuses(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
