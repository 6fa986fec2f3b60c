package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestIngestionMetrics_Registered(t *testing.T) {
	// promauto registers with the default registry automatically.
	// Verify we can observe without panicking.
	EventsAccepted.Inc()
	EventsDropped.WithLabelValues("rate").Inc()
	EventsDropped.WithLabelValues("circuit").Inc()
	CircuitOpen.Set(1)
	CircuitTrips.Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"keybeat_events_accepted_total",
		"keybeat_events_dropped_total",
		"keybeat_circuit_open",
		"keybeat_circuit_trips_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestFlushMetrics(t *testing.T) {
	FlushTotal.WithLabelValues("ok").Inc()
	FlushTotal.WithLabelValues("error").Inc()
	FlushDuration.Observe(0.002)

	families, _ := prometheus.DefaultGatherer.Gather()
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	if !names["keybeat_flush_total"] {
		t.Error("keybeat_flush_total not found")
	}
	if !names["keybeat_flush_duration_seconds"] {
		t.Error("keybeat_flush_duration_seconds not found")
	}
}

func TestEvaluationMetrics(t *testing.T) {
	EvaluatorRuns.Inc()
	AchievementsUnlocked.Inc()
	ChallengesCompleted.Inc()

	families, _ := prometheus.DefaultGatherer.Gather()
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"keybeat_evaluator_runs_total",
		"keybeat_achievements_unlocked_total",
		"keybeat_challenges_completed_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestSyncMetrics(t *testing.T) {
	SyncTotal.WithLabelValues("ok").Inc()
	SyncTotal.WithLabelValues("pending").Inc()
	SyncDuration.Observe(0.3)
	SyncReplicas.Set(2)

	families, _ := prometheus.DefaultGatherer.Gather()
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"keybeat_sync_total",
		"keybeat_sync_duration_seconds",
		"keybeat_sync_replicas",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestLiveAndRelayMetrics(t *testing.T) {
	LiveSubscribers.Set(1)
	LiveDropped.Inc()
	RelayUpserts.Inc()
	RelayFetches.Inc()
	HealthCheckStatus.WithLabelValues("database").Set(1)

	families, _ := prometheus.DefaultGatherer.Gather()
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}

	expected := []string{
		"keybeat_live_subscribers",
		"keybeat_live_dropped_total",
		"keybeat_relay_upserts_total",
		"keybeat_relay_fetches_total",
		"keybeat_health_check_status",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}
