// Package domain holds the core types for keystroke statistics tracking.
// Pure types and functions only: no storage, network, or clock dependency.
package domain

import (
	"maps"
	"time"
)

// DayKeyLayout is the format for all date-keyed maps ("2025-01-31").
// ISO date keys compare correctly as plain strings.
const DayKeyLayout = "2006-01-02"

// DayKeyOf returns the day key for a point in time (local calendar day).
func DayKeyOf(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a day key back into a midnight-local time.
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, time.Local)
}

// ─── Counter Types ──────────────────────────────────────────────────────────

// DailyMap maps day keys to event counts.
type DailyMap map[string]int64

// HourCounts holds one day's counts bucketed by hour of day.
type HourCounts [24]int64

// Sum returns the total across all 24 buckets.
func (h HourCounts) Sum() int64 {
	var n int64
	for _, c := range h {
		n += c
	}
	return n
}

// HourlyMap maps day keys to per-hour counts.
type HourlyMap map[string]HourCounts

// Clone returns a deep copy.
func (m DailyMap) Clone() DailyMap {
	if m == nil {
		return DailyMap{}
	}
	return maps.Clone(m)
}

// Clone returns a deep copy. HourCounts is a value type, so a map copy is deep.
func (m HourlyMap) Clone() HourlyMap {
	if m == nil {
		return HourlyMap{}
	}
	return maps.Clone(m)
}

// Sum returns the total across all days.
func (m DailyMap) Sum() int64 {
	var n int64
	for _, c := range m {
		n += c
	}
	return n
}

// ─── Stats Snapshot ─────────────────────────────────────────────────────────

// Stats is the canonical snapshot of one device's statistics: counters,
// streak, progression, achievements, challenges, goals, and settings.
// Invariants: Daily[d] equals the sum of Hourly[d] for locally-authored
// data; Total is derived from Daily after a merge; LongestStreak is never
// below CurrentStreak; Level is always a pure function of XP.
type Stats struct {
	Total   int64     `json:"total_keystrokes"`
	Session int64     `json:"session_keystrokes"`
	Daily   DailyMap  `json:"daily_keystrokes"`
	Hourly  HourlyMap `json:"hourly_keystrokes"`

	FirstUsedDate  string `json:"first_used_date"`
	LastActiveDate string `json:"last_active_date"`
	CurrentStreak  int    `json:"streak_days"`
	LongestStreak  int    `json:"longest_streak"`

	XP              int64  `json:"user_xp"`
	Level           int    `json:"user_level"`
	PersonalityType string `json:"personality_type"`

	DailyGoal  int64 `json:"daily_goal"`
	WeeklyGoal int64 `json:"weekly_goal"`

	Achievements []Achievement `json:"achievements"`
	Challenges   []Challenge   `json:"challenges"`
	Goals        []Goal        `json:"goals"`
}

// Clone returns a deep copy safe to read while the original keeps mutating.
func (s Stats) Clone() Stats {
	out := s
	out.Daily = s.Daily.Clone()
	out.Hourly = s.Hourly.Clone()
	out.Achievements = append([]Achievement(nil), s.Achievements...)
	out.Challenges = append([]Challenge(nil), s.Challenges...)
	out.Goals = append([]Goal(nil), s.Goals...)
	return out
}

// CountOn returns the recorded count for a day key.
func (s Stats) CountOn(day string) int64 {
	return s.Daily[day]
}

// HasAchievement reports whether the id is already unlocked.
func (s Stats) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a.ID == id {
			return true
		}
	}
	return false
}

// ─── Live Update Event ──────────────────────────────────────────────────────

// LiveUpdate is the debounced counter event emitted to display consumers.
type LiveUpdate struct {
	Total         int64   `json:"total"`
	Session       int64   `json:"session"`
	Today         int64   `json:"today"`
	CurrentStreak int     `json:"current_streak"`
	Level         int     `json:"level"`
	XP            int64   `json:"xp"`
	DailyGoal     int64   `json:"daily_goal"`
	DailyGoalPct  float64 `json:"daily_goal_pct"`
}

// LiveUpdateOn builds the live event for the given day key.
func (s Stats) LiveUpdateOn(day string) LiveUpdate {
	u := LiveUpdate{
		Total:         s.Total,
		Session:       s.Session,
		Today:         s.Daily[day],
		CurrentStreak: s.CurrentStreak,
		Level:         s.Level,
		XP:            s.XP,
		DailyGoal:     s.DailyGoal,
	}
	if s.DailyGoal > 0 {
		pct := float64(u.Today) / float64(s.DailyGoal) * 100.0
		if pct > 100.0 {
			pct = 100.0
		}
		u.DailyGoalPct = pct
	}
	return u
}
