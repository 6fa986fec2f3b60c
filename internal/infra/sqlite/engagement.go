package sqlite

import (
	"database/sql"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// ─── Achievements ───────────────────────────────────────────────────────────

// InsertAchievement records an achievement as unlocked.
// Returns false if already unlocked (idempotent).
func (d *DB) InsertAchievement(a domain.Achievement) (bool, error) {
	result, err := d.db.Exec(
		`INSERT OR IGNORE INTO achievements (id, category, unlocked_at) VALUES (?, ?, ?)`,
		a.ID, string(a.Category), a.UnlockedAt.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil // true = newly unlocked
}

// ListAchievements returns all unlocked achievements, oldest first.
func (d *DB) ListAchievements() ([]domain.Achievement, error) {
	rows, err := d.db.Query(
		`SELECT id, category, unlocked_at FROM achievements ORDER BY unlocked_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		var unlockedAt int64
		if err := rows.Scan(&a.ID, &a.Category, &unlockedAt); err != nil {
			return nil, err
		}
		a.UnlockedAt = time.Unix(unlockedAt, 0)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// AchievementCount returns the number of unlocked achievements.
func (d *DB) AchievementCount() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM achievements`).Scan(&count)
	return count, err
}

// ─── Challenges ─────────────────────────────────────────────────────────────

// InsertChallenge creates a new challenge.
func (d *DB) InsertChallenge(c domain.Challenge) error {
	_, err := d.db.Exec(
		`INSERT INTO challenges (id, type, title, target, progress, start_date, end_date, completed, reward_xp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.Type), c.Title, c.Target, c.Progress,
		c.StartDate, c.EndDate, c.Completed, c.RewardXP,
	)
	return err
}

// GetChallenge retrieves a challenge by ID. Returns nil when absent.
func (d *DB) GetChallenge(id string) (*domain.Challenge, error) {
	row := d.db.QueryRow(
		`SELECT id, type, title, target, progress, start_date, end_date, completed, reward_xp
		 FROM challenges WHERE id = ?`, id,
	)
	return scanChallenge(row)
}

// ListChallenges returns all stored challenges ordered by window end.
func (d *DB) ListChallenges() ([]domain.Challenge, error) {
	rows, err := d.db.Query(
		`SELECT id, type, title, target, progress, start_date, end_date, completed, reward_xp
		 FROM challenges ORDER BY end_date ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// UpdateChallenge persists progress and completion for an existing challenge.
func (d *DB) UpdateChallenge(c domain.Challenge) error {
	_, err := d.db.Exec(
		`UPDATE challenges SET progress = ?, completed = ? WHERE id = ?`,
		c.Progress, c.Completed, c.ID,
	)
	return err
}

// DeleteChallengesEndedBefore removes challenges whose window closed before
// the given day key. Returns the number removed.
func (d *DB) DeleteChallengesEndedBefore(day string) (int64, error) {
	result, err := d.db.Exec(`DELETE FROM challenges WHERE end_date < ?`, day)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ─── Goals ──────────────────────────────────────────────────────────────────

// InsertGoal creates a new user-defined goal.
func (d *DB) InsertGoal(g domain.Goal) error {
	_, err := d.db.Exec(
		`INSERT INTO goals (id, name, description, type, target, current, target_date, completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.Description, string(g.Type), g.Target, g.Current,
		nullableStr(g.TargetDate), g.Completed, g.CreatedAt.Unix(),
	)
	return err
}

// ListGoals returns all goals, oldest first.
func (d *DB) ListGoals() ([]domain.Goal, error) {
	rows, err := d.db.Query(
		`SELECT id, name, description, type, target, current, target_date, completed, created_at
		 FROM goals ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []domain.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpdateGoal persists progress and completion for an existing goal.
func (d *DB) UpdateGoal(g domain.Goal) error {
	_, err := d.db.Exec(
		`UPDATE goals SET current = ?, completed = ? WHERE id = ?`,
		g.Current, g.Completed, g.ID,
	)
	return err
}

// ─── XP Ledger ──────────────────────────────────────────────────────────────

// AppendXP adds an XP ledger entry and returns its sequence number.
func (d *DB) AppendXP(e domain.XPEntry) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO xp_ledger (delta, source, ref, balance, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Delta, string(e.Source), nullableStr(e.Ref), e.Balance, e.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListXP returns recent ledger entries, newest first.
func (d *DB) ListXP(limit int) ([]domain.XPEntry, error) {
	rows, err := d.db.Query(
		`SELECT seq, delta, source, ref, balance, created_at
		 FROM xp_ledger ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.XPEntry
	for rows.Next() {
		var e domain.XPEntry
		var ref sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.Seq, &e.Delta, &e.Source, &ref, &e.Balance, &createdAt); err != nil {
			return nil, err
		}
		e.Ref = ref.String
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// XPBalance returns the running balance from the latest ledger entry.
func (d *DB) XPBalance() (int64, error) {
	var balance sql.NullInt64
	err := d.db.QueryRow(
		`SELECT balance FROM xp_ledger ORDER BY seq DESC LIMIT 1`,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance.Int64, nil
}

// ─── Notifications ──────────────────────────────────────────────────────────

// InsertNotification appends to the notification log.
func (d *DB) InsertNotification(n domain.Notification) (int64, error) {
	result, err := d.db.Exec(
		`INSERT INTO notifications (kind, title, body, created_at) VALUES (?, ?, ?, ?)`,
		string(n.Kind), n.Title, n.Body, n.CreatedAt.Unix(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// NotificationCountOn returns how many notifications were created on the
// given calendar day.
func (d *DB) NotificationCountOn(day string) (int, error) {
	start, err := domain.ParseDayKey(day)
	if err != nil {
		return 0, err
	}
	end := start.AddDate(0, 0, 1)

	var count int
	err = d.db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE created_at >= ? AND created_at < ?`,
		start.Unix(), end.Unix(),
	).Scan(&count)
	return count, err
}

// ListNotifications returns recent notifications, newest first.
func (d *DB) ListNotifications(limit int) ([]domain.Notification, error) {
	rows, err := d.db.Query(
		`SELECT seq, kind, title, body, created_at
		 FROM notifications ORDER BY seq DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var createdAt int64
		if err := rows.Scan(&n.Seq, &n.Kind, &n.Title, &n.Body, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = time.Unix(createdAt, 0)
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanChallenge(s scanner) (*domain.Challenge, error) {
	var c domain.Challenge
	err := s.Scan(&c.ID, &c.Type, &c.Title, &c.Target, &c.Progress,
		&c.StartDate, &c.EndDate, &c.Completed, &c.RewardXP)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanGoal(s scanner) (*domain.Goal, error) {
	var g domain.Goal
	var targetDate sql.NullString
	var createdAt int64
	err := s.Scan(&g.ID, &g.Name, &g.Description, &g.Type, &g.Target,
		&g.Current, &targetDate, &g.Completed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.TargetDate = targetDate.String
	g.CreatedAt = time.Unix(createdAt, 0)
	return &g, nil
}
