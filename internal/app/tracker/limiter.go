// Package tracker is the keystroke ingest pipeline: a rate gate in front of
// a batched write-behind aggregator. Events carry their own arrival times so
// the whole pipeline is deterministic under test.
package tracker

import (
	"log"
	"time"

	"github.com/keybeat-app/keybeat/internal/infra/metrics"
)

// Reference limits for the ingest pipeline.
const (
	DefaultMaxEventsPerSecond = 500
	DefaultOverloadThreshold  = 1000
	DefaultBatchSize          = 25
	DefaultFlushInterval      = 100 * time.Millisecond
	DefaultNotifyInterval     = 100 * time.Millisecond
)

// Gate bounds the event rate and sheds load under runaway input. Two states:
// closed admits events spaced at least minInterval apart, open drops
// everything until the inter-arrival gap stretches past 2×minInterval.
// Gate state is process-local and never persisted. Callers serialize access.
type Gate struct {
	minInterval time.Duration
	threshold   int64

	open         bool
	eventCount   int64
	lastAccepted time.Time
	lastArrival  time.Time
}

// NewGate builds a gate admitting at most maxPerSecond events. Rejections
// accumulate in a decaying counter; past threshold the circuit trips open.
func NewGate(maxPerSecond int, threshold int64) *Gate {
	if maxPerSecond <= 0 {
		maxPerSecond = DefaultMaxEventsPerSecond
	}
	if threshold <= 0 {
		threshold = DefaultOverloadThreshold
	}
	return &Gate{
		minInterval: time.Second / time.Duration(maxPerSecond),
		threshold:   threshold,
	}
}

// Accept decides whether the event arriving at the given time passes.
func (g *Gate) Accept(at time.Time) bool {
	gap := at.Sub(g.lastArrival)
	g.lastArrival = at

	if g.open {
		if gap <= 2*g.minInterval {
			metrics.EventsDropped.WithLabelValues("circuit").Inc()
			return false
		}
		// Sustained quiet. Close and run the triggering event through the
		// normal check, which it passes by construction.
		g.open = false
		g.eventCount = 0
		metrics.CircuitOpen.Set(0)
		log.Printf("[tracker] circuit closed after %v quiet gap", gap.Round(time.Millisecond))
	}

	if gap < 0 || (!g.lastAccepted.IsZero() && at.Before(g.lastAccepted.Add(g.minInterval))) {
		return g.reject()
	}

	if g.eventCount > 0 {
		g.eventCount--
	}
	g.lastAccepted = at
	metrics.EventsAccepted.Inc()
	return true
}

func (g *Gate) reject() bool {
	g.eventCount++
	metrics.EventsDropped.WithLabelValues("rate").Inc()
	if !g.open && g.eventCount > g.threshold {
		g.open = true
		metrics.CircuitOpen.Set(1)
		metrics.CircuitTrips.Inc()
		log.Printf("[tracker] circuit opened after %d accumulated rejections", g.eventCount)
	}
	return false
}

// CircuitOpen reports whether the gate is currently shedding all input.
func (g *Gate) CircuitOpen() bool {
	return g.open
}
