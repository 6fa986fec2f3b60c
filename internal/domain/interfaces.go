package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ReplicaStore abstracts the remote replica store. Each device writes only
// its own (user, device) row; reads return every row for the user.
type ReplicaStore interface {
	// FetchAll returns all replicas for a user, newest last_updated first.
	FetchAll(ctx context.Context, userID string) ([]Replica, error)

	// Upsert replaces the row keyed by (r.UserID, r.DeviceID) wholesale.
	Upsert(ctx context.Context, r Replica) error
}

// Publisher fans live updates and one-shot notifications out to display
// consumers. Implementations must never block the caller.
type Publisher interface {
	PublishUpdate(LiveUpdate)
	PublishNotification(Notification)
}
