package sqlite

import (
	"database/sql"
	"strconv"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// ─── State Key-Value ────────────────────────────────────────────────────────

// SetState stores a scalar state key-value pair.
func (d *DB) SetState(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

// GetState retrieves a state value by key.
// Returns "" if key not found.
func (d *DB) GetState(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (d *DB) allState() (map[string]string, error) {
	rows, err := d.db.Query(`SELECT key, value FROM state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		state[k] = v
	}
	return state, rows.Err()
}

// ─── Snapshot Load / Save ───────────────────────────────────────────────────

// LoadStats reads the full statistics snapshot: scalar state, both counter
// maps, achievements, challenges, and goals.
func (d *DB) LoadStats() (*domain.Stats, error) {
	state, err := d.allState()
	if err != nil {
		return nil, err
	}

	s := &domain.Stats{
		Total:           parseInt64(state["total_keystrokes"]),
		Session:         parseInt64(state["session_keystrokes"]),
		Daily:           domain.DailyMap{},
		Hourly:          domain.HourlyMap{},
		FirstUsedDate:   state["first_used_date"],
		LastActiveDate:  state["last_active_date"],
		CurrentStreak:   parseInt(state["streak_days"]),
		LongestStreak:   parseInt(state["longest_streak"]),
		XP:              parseInt64(state["user_xp"]),
		Level:           domain.LevelForXP(parseInt64(state["user_xp"])),
		PersonalityType: state["personality_type"],
		DailyGoal:       parseInt64(state["daily_goal"]),
		WeeklyGoal:      parseInt64(state["weekly_goal"]),
	}

	rows, err := d.db.Query(`SELECT date, count FROM daily_counts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var date string
		var count int64
		if err := rows.Scan(&date, &count); err != nil {
			return nil, err
		}
		s.Daily[date] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hrows, err := d.db.Query(`SELECT date, hour, count FROM hourly_counts`)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()
	for hrows.Next() {
		var date string
		var hour int
		var count int64
		if err := hrows.Scan(&date, &hour, &count); err != nil {
			return nil, err
		}
		if hour < 0 || hour > 23 {
			continue
		}
		hc := s.Hourly[date]
		hc[hour] = count
		s.Hourly[date] = hc
	}
	if err := hrows.Err(); err != nil {
		return nil, err
	}

	if s.Achievements, err = d.ListAchievements(); err != nil {
		return nil, err
	}
	if s.Challenges, err = d.ListChallenges(); err != nil {
		return nil, err
	}
	if s.Goals, err = d.ListGoals(); err != nil {
		return nil, err
	}

	return s, nil
}

// SaveCounters writes scalar state plus the daily and hourly buckets for the
// given day keys in a single transaction. Unchanged days stay untouched, so a
// flush costs a handful of rows rather than the whole history.
func (d *DB) SaveCounters(s domain.Stats, dates []string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertState(tx, counterState(s)); err != nil {
		return err
	}
	for _, date := range dates {
		if err := upsertDay(tx, date, s.Daily[date], s.Hourly[date]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceStats overwrites the entire persisted snapshot in one transaction.
// Used after a merge; the ledger and notification log are history and stay.
func (d *DB) ReplaceStats(s domain.Stats) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"daily_counts", "hourly_counts", "achievements", "challenges", "goals"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}

	if err := upsertState(tx, counterState(s)); err != nil {
		return err
	}
	for date := range s.Daily {
		if err := upsertDay(tx, date, s.Daily[date], s.Hourly[date]); err != nil {
			return err
		}
	}
	// Hourly data can exist for days absent from the daily map.
	for date := range s.Hourly {
		if _, ok := s.Daily[date]; ok {
			continue
		}
		if err := upsertDay(tx, date, 0, s.Hourly[date]); err != nil {
			return err
		}
	}
	for _, a := range s.Achievements {
		if _, err := tx.Exec(
			`INSERT INTO achievements (id, category, unlocked_at) VALUES (?, ?, ?)`,
			a.ID, string(a.Category), a.UnlockedAt.Unix(),
		); err != nil {
			return err
		}
	}
	for _, c := range s.Challenges {
		if _, err := tx.Exec(
			`INSERT INTO challenges (id, type, title, target, progress, start_date, end_date, completed, reward_xp)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, string(c.Type), c.Title, c.Target, c.Progress,
			c.StartDate, c.EndDate, c.Completed, c.RewardXP,
		); err != nil {
			return err
		}
	}
	for _, g := range s.Goals {
		if _, err := tx.Exec(
			`INSERT INTO goals (id, name, description, type, target, current, target_date, completed, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, g.Name, g.Description, string(g.Type), g.Target, g.Current,
			nullableStr(g.TargetDate), g.Completed, g.CreatedAt.Unix(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ResetStats clears all statistics, the ledger, and the notification log.
// Device identity survives a reset.
func (d *DB) ResetStats() error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tables := []string{
		"daily_counts", "hourly_counts", "achievements",
		"challenges", "goals", "xp_ledger", "notifications",
	}
	for _, table := range tables {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`DELETE FROM state WHERE key NOT IN ('device_id', 'device_name')`,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func counterState(s domain.Stats) map[string]string {
	return map[string]string{
		"total_keystrokes":   strconv.FormatInt(s.Total, 10),
		"session_keystrokes": strconv.FormatInt(s.Session, 10),
		"first_used_date":    s.FirstUsedDate,
		"last_active_date":   s.LastActiveDate,
		"streak_days":        strconv.Itoa(s.CurrentStreak),
		"longest_streak":     strconv.Itoa(s.LongestStreak),
		"user_xp":            strconv.FormatInt(s.XP, 10),
		"user_level":         strconv.Itoa(s.Level),
		"personality_type":   s.PersonalityType,
		"daily_goal":         strconv.FormatInt(s.DailyGoal, 10),
		"weekly_goal":        strconv.FormatInt(s.WeeklyGoal, 10),
	}
}

func upsertState(tx *sql.Tx, pairs map[string]string) error {
	for k, v := range pairs {
		if _, err := tx.Exec(
			`INSERT INTO state (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
			k, v,
		); err != nil {
			return err
		}
	}
	return nil
}

func upsertDay(tx *sql.Tx, date string, daily int64, hourly domain.HourCounts) error {
	if _, err := tx.Exec(
		`INSERT INTO daily_counts (date, count) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET count=excluded.count`,
		date, daily,
	); err != nil {
		return err
	}
	for hour, count := range hourly {
		if count == 0 {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO hourly_counts (date, hour, count) VALUES (?, ?, ?)
			 ON CONFLICT(date, hour) DO UPDATE SET count=excluded.count`,
			date, hour, count,
		); err != nil {
			return err
		}
	}
	return nil
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func nullableStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
