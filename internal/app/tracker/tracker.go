package tracker

import (
	"log"
	"sync"
	"time"

	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/domain"
)

// Config bounds the ingest pipeline. Zero values fall back to the package
// defaults.
type Config struct {
	MaxEventsPerSecond int
	OverloadThreshold  int64
	BatchSize          int
	FlushInterval      time.Duration
	NotifyInterval     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxEventsPerSecond <= 0 {
		c.MaxEventsPerSecond = DefaultMaxEventsPerSecond
	}
	if c.OverloadThreshold <= 0 {
		c.OverloadThreshold = DefaultOverloadThreshold
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	if c.NotifyInterval <= 0 {
		c.NotifyInterval = DefaultNotifyInterval
	}
	return c
}

// stopper is the slice of time.Timer the tracker needs; tests substitute
// hand-fired timers.
type stopper interface {
	Stop() bool
}

type timerFactory func(d time.Duration, fn func()) stopper

func realTimer(d time.Duration, fn func()) stopper {
	return time.AfterFunc(d, fn)
}

// Tracker funnels accepted events into the stats store and schedules
// batched flushes and debounced live updates. Recording bumps memory
// immediately; durability rides on the batch size or the flush timer,
// whichever trips first.
type Tracker struct {
	store *stats.Store
	pub   domain.Publisher
	cfg   Config

	// OnAccepted, when set before recording begins, observes every accepted
	// event. The evaluator hangs off this hook.
	OnAccepted func(at time.Time)

	mu          sync.Mutex
	gate        *Gate
	pending     int
	flushTimer  stopper
	notifyTimer stopper
	newTimer    timerFactory
	closed      bool
}

// NewTracker wires the gate and aggregator over the given store. pub may be
// nil when no live consumers exist.
func NewTracker(store *stats.Store, pub domain.Publisher, cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{
		store:    store,
		pub:      pub,
		cfg:      cfg,
		gate:     NewGate(cfg.MaxEventsPerSecond, cfg.OverloadThreshold),
		newTimer: realTimer,
	}
}

// Record runs one event through the gate and, when accepted, applies it to
// the store. Reports whether the event was accepted.
func (t *Tracker) Record(at time.Time) bool {
	t.mu.Lock()
	if t.closed || !t.gate.Accept(at) {
		t.mu.Unlock()
		return false
	}
	t.store.RecordKeystrokeAt(at)
	t.pending++
	flushNow := t.pending >= t.cfg.BatchSize
	if flushNow {
		t.pending = 0
		if t.flushTimer != nil {
			t.flushTimer.Stop()
			t.flushTimer = nil
		}
	} else if t.flushTimer == nil {
		t.flushTimer = t.newTimer(t.cfg.FlushInterval, t.flushByTimer)
	}
	if t.notifyTimer == nil {
		t.notifyTimer = t.newTimer(t.cfg.NotifyInterval, t.notify)
	}
	t.mu.Unlock()

	if flushNow {
		if err := t.store.Flush(); err != nil {
			log.Printf("[tracker] flush failed: %v", err)
		}
	}
	if t.OnAccepted != nil {
		t.OnAccepted(at)
	}
	return true
}

// flushByTimer fires when a partial batch has been sitting for the flush
// interval.
func (t *Tracker) flushByTimer() {
	t.mu.Lock()
	t.flushTimer = nil
	t.pending = 0
	closed := t.closed
	t.mu.Unlock()

	if closed {
		return
	}
	if err := t.store.Flush(); err != nil {
		log.Printf("[tracker] flush failed: %v", err)
	}
}

// notify publishes one debounced live update. Notification cadence is
// independent of flush cadence.
func (t *Tracker) notify() {
	t.mu.Lock()
	t.notifyTimer = nil
	closed := t.closed
	t.mu.Unlock()

	if closed || t.pub == nil {
		return
	}
	t.pub.PublishUpdate(t.store.LiveUpdateAt(time.Now()))
}

// CircuitOpen reports whether the ingest gate is shedding load.
func (t *Tracker) CircuitOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gate.CircuitOpen()
}

// MinInterval reports the smallest spacing the gate accepts between events.
// Synthetic event injection uses it to pace count-only batches.
func (t *Tracker) MinInterval() time.Duration {
	return t.gate.minInterval
}

// Close stops the timers and flushes whatever is still pending. Loss on a
// crash without Close is bounded at one partial batch.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	if t.flushTimer != nil {
		t.flushTimer.Stop()
		t.flushTimer = nil
	}
	if t.notifyTimer != nil {
		t.notifyTimer.Stop()
		t.notifyTimer = nil
	}
	t.pending = 0
	t.mu.Unlock()

	return t.store.Flush()
}
