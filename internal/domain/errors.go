package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure: no infrastructure dependency.

var (
	// Lookup errors
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")

	// Ingestion errors
	ErrCircuitOpen = errors.New("ingest circuit is open: events are being dropped")

	// Reconciliation errors
	ErrSyncBusy     = errors.New("reconciliation already running")
	ErrSyncDisabled = errors.New("sync not configured: set sync.relay_url and sync.user_id")
	ErrSyncPending  = errors.New("remote upsert pending: retry will run on the next sync cycle")

	// Relay errors
	ErrUnauthorized = errors.New("missing or invalid bearer token")
)
