// Package metrics provides Prometheus metrics for Keybeat: counters, gauges,
// and histograms for ingestion, flushing, evaluation, and reconciliation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ingestion ──────────────────────────────────────────────────────────────

// EventsAccepted tracks events that passed the rate gate.
var EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "events_accepted_total",
	Help:      "Total events accepted by the rate gate.",
})

// EventsDropped tracks dropped events by reason.
var EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "events_dropped_total",
	Help:      "Total events dropped, by reason.",
}, []string{"reason"})

// CircuitOpen reports the rate gate circuit state (1=open, 0=closed).
var CircuitOpen = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "keybeat",
	Name:      "circuit_open",
	Help:      "Rate gate circuit state (1=open, 0=closed).",
})

// CircuitTrips tracks closed-to-open transitions.
var CircuitTrips = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "circuit_trips_total",
	Help:      "Total closed-to-open circuit transitions.",
})

// ─── Flush ──────────────────────────────────────────────────────────────────

// FlushTotal tracks snapshot flushes by result.
var FlushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "flush_total",
	Help:      "Total snapshot flushes, by result.",
}, []string{"result"})

// FlushDuration tracks flush duration in seconds.
var FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "keybeat",
	Name:      "flush_duration_seconds",
	Help:      "Snapshot flush duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
})

// ─── Evaluation ─────────────────────────────────────────────────────────────

// EvaluatorRuns tracks rule engine passes.
var EvaluatorRuns = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "evaluator_runs_total",
	Help:      "Total achievement and challenge evaluation passes.",
})

// AchievementsUnlocked tracks newly unlocked achievements.
var AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
})

// ChallengesCompleted tracks challenge completion transitions.
var ChallengesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "challenges_completed_total",
	Help:      "Total challenges completed.",
})

// ─── Reconciliation ─────────────────────────────────────────────────────────

// SyncTotal tracks reconciliation attempts by result.
var SyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "sync_total",
	Help:      "Total reconciliation attempts, by result.",
}, []string{"result"})

// SyncDuration tracks the full fetch-merge-persist-upsert round trip.
var SyncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "keybeat",
	Name:      "sync_duration_seconds",
	Help:      "Reconciliation round-trip duration in seconds.",
	Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// SyncReplicas tracks how many replicas the last merge saw (local included).
var SyncReplicas = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "keybeat",
	Name:      "sync_replicas",
	Help:      "Replica count seen by the last merge, local included.",
})

// ─── Live Feed ──────────────────────────────────────────────────────────────

// LiveSubscribers tracks connected live stream consumers.
var LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "keybeat",
	Name:      "live_subscribers",
	Help:      "Number of connected live stream subscribers.",
})

// LiveDropped tracks live messages dropped on slow subscribers.
var LiveDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "live_dropped_total",
	Help:      "Total live messages dropped on slow subscribers.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "keybeat",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// ─── Relay ──────────────────────────────────────────────────────────────────

// RelayUpserts tracks replica row upserts served by the relay.
var RelayUpserts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "relay_upserts_total",
	Help:      "Total replica upserts served in relay mode.",
})

// RelayFetches tracks replica list fetches served by the relay.
var RelayFetches = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "keybeat",
	Name:      "relay_fetches_total",
	Help:      "Total replica fetches served in relay mode.",
})
