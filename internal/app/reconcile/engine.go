package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
)

// Identity names the local device's replica row.
type Identity struct {
	UserID     string
	DeviceID   string
	DeviceName string
}

// Status is a point-in-time view of sync health.
type Status struct {
	Running     bool      `json:"running"`
	Pending     bool      `json:"pending"`
	LastAttempt time.Time `json:"last_attempt"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
}

// Engine reconciles the local store with every remote replica of the same
// user: fetch all rows, merge, persist locally, upsert the merged row under
// the local device's key. At most one pass runs at a time.
type Engine struct {
	store *stats.Store

	flight sync.Mutex // single-flight, acquired with TryLock only

	mu      sync.Mutex // guards the fields below
	remote  domain.ReplicaStore
	id      Identity
	pending *domain.Replica
	running bool
	status  Status
}

// NewEngine wires a sync engine. remote may be nil when sync is not
// configured; Sync then fails fast with ErrSyncDisabled.
func NewEngine(store *stats.Store, remote domain.ReplicaStore, id Identity) *Engine {
	return &Engine{store: store, remote: remote, id: id}
}

// SetRemote swaps the replica store and identity, typically on a config
// reload. A pending upsert is dropped; it belonged to the old target, and
// the next pass runs a fresh merge anyway.
func (e *Engine) SetRemote(remote domain.ReplicaStore, id Identity) {
	e.mu.Lock()
	e.remote = remote
	e.id = id
	e.pending = nil
	e.mu.Unlock()
}

// Configured reports whether a remote replica store is attached.
func (e *Engine) Configured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote != nil
}

func (e *Engine) target() (domain.ReplicaStore, Identity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote, e.id
}

// Sync runs one reconciliation pass. A pass already in flight returns
// domain.ErrSyncBusy without merging. A fetch failure leaves local state
// untouched. A failed upsert leaves the merge persisted locally and returns
// domain.ErrSyncPending; the next call retries the upsert only, not the
// whole merge.
func (e *Engine) Sync(ctx context.Context) error {
	remote, id := e.target()
	if remote == nil {
		return domain.ErrSyncDisabled
	}
	if !e.flight.TryLock() {
		metrics.SyncTotal.WithLabelValues("busy").Inc()
		return domain.ErrSyncBusy
	}
	defer e.flight.Unlock()

	start := time.Now()
	e.setRunning(true)
	err := e.run(ctx, start, remote, id)
	e.finish(start, err)
	return err
}

func (e *Engine) run(ctx context.Context, now time.Time, remote domain.ReplicaStore, id Identity) error {
	// A pass interrupted at the upsert completes before any new merge.
	if row := e.pendingRow(); row != nil {
		if err := remote.Upsert(ctx, *row); err != nil {
			metrics.SyncTotal.WithLabelValues("pending").Inc()
			return fmt.Errorf("%w: %v", domain.ErrSyncPending, err)
		}
		e.setPending(nil)
		log.Printf("[reconcile] pending upsert for device %s completed", row.DeviceID)
		metrics.SyncTotal.WithLabelValues("ok").Inc()
		return nil
	}

	replicas, err := remote.FetchAll(ctx, id.UserID)
	if err != nil {
		metrics.SyncTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("fetch replicas: %w", err)
	}
	metrics.SyncReplicas.Set(float64(len(replicas)))

	remotes := make([]domain.Stats, 0, len(replicas))
	for _, r := range replicas {
		remotes = append(remotes, r.Stats())
	}

	// The merge runs under the store lock against the live snapshot, so
	// keystrokes accepted during the fetch are part of the result.
	merged, err := e.store.ApplyMerged(now, func(local domain.Stats) domain.Stats {
		return Merge(local, remotes...)
	})
	if err != nil {
		metrics.SyncTotal.WithLabelValues("persist_error").Inc()
		return fmt.Errorf("persist merge: %w", err)
	}

	row := merged.Replica(id.UserID, id.DeviceID, id.DeviceName)
	row.LastUpdated = now
	if err := remote.Upsert(ctx, row); err != nil {
		e.setPending(&row)
		metrics.SyncTotal.WithLabelValues("pending").Inc()
		log.Printf("[reconcile] merge persisted, upsert failed: %v", err)
		return fmt.Errorf("%w: %v", domain.ErrSyncPending, err)
	}

	metrics.SyncTotal.WithLabelValues("ok").Inc()
	log.Printf("[reconcile] merged %d replica(s): total=%d streak=%d xp=%d",
		len(replicas), merged.Total, merged.CurrentStreak, merged.XP)
	return nil
}

// Devices lists every replica row known for the configured user, newest
// first. Read-only; safe while a sync runs.
func (e *Engine) Devices(ctx context.Context) ([]domain.Replica, error) {
	remote, id := e.target()
	if remote == nil {
		return nil, domain.ErrSyncDisabled
	}
	return remote.FetchAll(ctx, id.UserID)
}

// Status reports sync health without blocking on a running pass.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.status
	st.Running = e.running
	st.Pending = e.pending != nil
	return st
}

func (e *Engine) setRunning(v bool) {
	e.mu.Lock()
	e.running = v
	e.mu.Unlock()
}

func (e *Engine) pendingRow() *domain.Replica {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Engine) setPending(row *domain.Replica) {
	e.mu.Lock()
	e.pending = row
	e.mu.Unlock()
}

func (e *Engine) finish(start time.Time, err error) {
	metrics.SyncDuration.Observe(time.Since(start).Seconds())
	e.mu.Lock()
	e.running = false
	e.status.LastAttempt = start
	if err != nil {
		e.status.LastError = err.Error()
	} else {
		e.status.LastSuccess = start
		e.status.LastError = ""
	}
	e.mu.Unlock()
}
