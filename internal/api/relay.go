package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ─── Replica Relay (relay mode) ─────────────────────────────────────────────
// A self-hostable sync point. Devices PUT their replica row wholesale and
// GET every row for their user; all merging happens on the devices.

// RelayServer hosts the replica store over HTTP with bearer-token auth.
type RelayServer struct {
	db    *sqlite.DB
	token string // empty disables auth
}

// NewRelayServer creates a relay over the given database. An empty token
// leaves the relay open, which only makes sense on a trusted network.
func NewRelayServer(db *sqlite.DB, token string) *RelayServer {
	return &RelayServer{db: db, token: token}
}

// Handler returns the chi router with the relay routes mounted.
func (s *RelayServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/replicas", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Put("/{user}/{device}", s.handleUpsertReplica)
		r.Get("/{user}", s.handleFetchReplicas)
	})

	return r
}

func (s *RelayServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	count, _ := s.db.ReplicaCount()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"replicas": count,
	})
}

// requireToken rejects requests without the configured bearer token.
func (s *RelayServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *RelayServer) handleUpsertReplica(w http.ResponseWriter, r *http.Request) {
	var row domain.Replica
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The URL is authoritative for the row key; the body cannot write
	// under someone else's device.
	row.UserID = chi.URLParam(r, "user")
	row.DeviceID = chi.URLParam(r, "device")
	if row.LastUpdated.IsZero() {
		row.LastUpdated = time.Now()
	}

	if err := s.db.UpsertReplica(row); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RelayUpserts.Inc()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

func (s *RelayServer) handleFetchReplicas(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListReplicas(chi.URLParam(r, "user"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []domain.Replica{}
	}
	metrics.RelayFetches.Inc()
	writeJSON(w, http.StatusOK, rows)
}
