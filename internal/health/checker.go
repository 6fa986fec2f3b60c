// Package health provides the daemon's named health checks with optional
// auto-recovery actions.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/app/tracker"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// maxFlushAge marks the flush check degraded when dirty counters have not
// reached disk for this long.
const maxFlushAge = 5 * time.Minute

// NewChecker creates a health checker with the standard daemon checks:
// sqlite connectivity, ingest circuit state, and flush freshness.
func NewChecker(db *sqlite.DB, store *stats.Store, tr *tracker.Tracker) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		checks: []Check{
			{
				Name: "sqlite",
				CheckFn: func(ctx context.Context) error {
					return db.Ping()
				},
			},
			{
				Name: "circuit",
				CheckFn: func(ctx context.Context) error {
					if tr.CircuitOpen() {
						return domain.ErrCircuitOpen
					}
					return nil
				},
			},
			{
				Name: "flush",
				CheckFn: func(ctx context.Context) error {
					last, fails, err := store.FlushHealth()
					if err != nil {
						return fmt.Errorf("last flush failed (%d consecutive): %w", fails, err)
					}
					// Age only matters while changes are actually waiting;
					// an idle store has nothing to flush.
					if store.Dirty() && !last.IsZero() && time.Since(last) > maxFlushAge {
						return fmt.Errorf("dirty counters unflushed for %s", time.Since(last).Round(time.Second))
					}
					return nil
				},
				RecoverFn: func(ctx context.Context) error {
					return store.Flush()
				},
			},
		},
	}
}

// AddCheck registers an extra check, e.g. sync status once a remote is
// configured.
func (c *Checker) AddCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce executes every registered check one time.
func (c *Checker) RunOnce(ctx context.Context) {
	c.mu.RLock()
	checks := make([]Check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	statuses := make([]Status, len(checks))
	for i, check := range checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			// Attempt recovery
			if check.RecoverFn != nil {
				_ = check.RecoverFn(ctx)
			}
		} else {
			s.Healthy = true
		}
		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}
