package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// ─── Replica Rows (relay mode) ──────────────────────────────────────────────
// The replica document is stored as a JSON payload with the key columns
// broken out. Upsert replaces the row wholesale; per-field merging is the
// devices' job, never the relay's.

// UpsertReplica inserts or replaces the row keyed by (user_id, device_id).
func (d *DB) UpsertReplica(r domain.Replica) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal replica: %w", err)
	}
	_, err = d.db.Exec(
		`INSERT INTO replicas (user_id, device_id, device_name, payload, last_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET
			device_name=excluded.device_name,
			payload=excluded.payload,
			last_updated=excluded.last_updated`,
		r.UserID, r.DeviceID, r.DeviceName, string(payload), r.LastUpdated.Unix(),
	)
	return err
}

// ListReplicas returns all replicas for a user, newest last_updated first.
func (d *DB) ListReplicas(userID string) ([]domain.Replica, error) {
	rows, err := d.db.Query(
		`SELECT payload FROM replicas WHERE user_id = ? ORDER BY last_updated DESC, device_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replicas []domain.Replica
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r domain.Replica
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal replica: %w", err)
		}
		replicas = append(replicas, r)
	}
	return replicas, rows.Err()
}

// ReplicaCount returns the number of stored replica rows across all users.
func (d *DB) ReplicaCount() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM replicas`).Scan(&count)
	return count, err
}
