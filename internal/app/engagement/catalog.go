// Package engagement implements the achievement, challenge, and goal engine.
// A throttled evaluator checks a fixed declarative rule catalog against the
// live statistics snapshot; every unlock fires exactly once.
package engagement

import (
	"sort"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// ─── Achievement Catalog ────────────────────────────────────────────────────
// Fixed rule set across 4 categories. Each rule is a stat-based predicate;
// time-window rules anchor on the last active day so a throttled pass the
// next morning still credits the unlock.

// AllAchievements returns the full achievement catalog.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Milestones (5) ─────────────────────────────────────────────
		{
			ID: "total_1k", Name: "Getting Warmed Up", Category: domain.CatMilestone,
			Icon: "⌨️", RewardXP: 50,
			Predicate: func(s domain.Stats) bool { return s.Total >= 1_000 },
		},
		{
			ID: "total_10k", Name: "Ten Thousand Club", Category: domain.CatMilestone,
			Icon: "🔟", RewardXP: 150,
			Predicate: func(s domain.Stats) bool { return s.Total >= 10_000 },
		},
		{
			ID: "total_100k", Name: "Keystroke Veteran", Category: domain.CatMilestone,
			Icon: "🎖️", RewardXP: 500,
			Predicate: func(s domain.Stats) bool { return s.Total >= 100_000 },
		},
		{
			ID: "total_1m", Name: "The Millionaire", Category: domain.CatMilestone,
			Icon: "💎", RewardXP: 2500,
			Predicate: func(s domain.Stats) bool { return s.Total >= 1_000_000 },
		},
		{
			ID: "total_10m", Name: "Ten Million Legend", Category: domain.CatMilestone,
			Icon: "🏆", RewardXP: 10000,
			Predicate: func(s domain.Stats) bool { return s.Total >= 10_000_000 },
		},

		// ── Streaks (5) ────────────────────────────────────────────────
		{
			ID: "streak_3", Name: "On a Roll", Category: domain.CatStreak,
			Icon: "🔥", RewardXP: 75,
			Predicate: func(s domain.Stats) bool { return s.CurrentStreak >= 3 },
		},
		{
			ID: "streak_7", Name: "Week Warrior", Category: domain.CatStreak,
			Icon: "💪", RewardXP: 200,
			Predicate: func(s domain.Stats) bool { return s.CurrentStreak >= 7 },
		},
		{
			ID: "streak_30", Name: "Monthly Machine", Category: domain.CatStreak,
			Icon: "📅", RewardXP: 1000,
			Predicate: func(s domain.Stats) bool { return s.CurrentStreak >= 30 },
		},
		{
			ID: "streak_100", Name: "Centurion", Category: domain.CatStreak,
			Icon: "🏛️", RewardXP: 5000,
			Predicate: func(s domain.Stats) bool { return s.CurrentStreak >= 100 },
		},
		{
			ID: "streak_365", Name: "Year of Keys", Category: domain.CatStreak,
			Icon: "⭐", RewardXP: 25000,
			Predicate: func(s domain.Stats) bool { return s.CurrentStreak >= 365 },
		},

		// ── Time Windows (2) ───────────────────────────────────────────
		{
			ID: "early_bird", Name: "Early Bird", Category: domain.CatTimeWindow,
			Icon: "🌅", RewardXP: 150,
			Predicate: func(s domain.Stats) bool {
				return activeInHours(s, s.LastActiveDate, 4, 5)
			},
		},
		{
			ID: "night_owl", Name: "Night Owl", Category: domain.CatTimeWindow,
			Icon: "🦉", RewardXP: 150,
			Predicate: func(s domain.Stats) bool {
				return activeInHours(s, s.LastActiveDate, 23, 0, 1)
			},
		},

		// ── Specials (3) ───────────────────────────────────────────────
		{
			ID: "hour_1000", Name: "Burst Mode", Category: domain.CatSpecial,
			Icon: "⚡", RewardXP: 300,
			Predicate: anyHourAtLeast(1000),
		},
		{
			ID: "day_10000", Name: "Marathon Day", Category: domain.CatSpecial,
			Icon: "🏃", RewardXP: 500,
			Predicate: anyDayAtLeast(10000),
		},
		{
			ID: "steady_hour_7", Name: "Clockwork", Category: domain.CatSpecial,
			Icon: "⏰", RewardXP: 400,
			Predicate: sameHourSevenDays,
		},
	}
}

// activeInHours reports whether any of the given hours saw activity on day.
func activeInHours(s domain.Stats, day string, hours ...int) bool {
	bucket, ok := s.Hourly[day]
	if !ok {
		return false
	}
	for _, h := range hours {
		if bucket[h] > 0 {
			return true
		}
	}
	return false
}

// anyHourAtLeast matches when one clock hour of one day reaches n events.
func anyHourAtLeast(n int64) func(domain.Stats) bool {
	return func(s domain.Stats) bool {
		for _, bucket := range s.Hourly {
			for _, count := range bucket {
				if count >= n {
					return true
				}
			}
		}
		return false
	}
}

// anyDayAtLeast matches when one calendar day reaches n events.
func anyDayAtLeast(n int64) func(domain.Stats) bool {
	return func(s domain.Stats) bool {
		for _, count := range s.Daily {
			if count >= n {
				return true
			}
		}
		return false
	}
}

// sameHourSevenDays matches when one clock hour was active on each of the
// last 7 distinct days present in the hourly map.
func sameHourSevenDays(s domain.Stats) bool {
	if len(s.Hourly) < 7 {
		return false
	}
	days := make([]string, 0, len(s.Hourly))
	for day := range s.Hourly {
		days = append(days, day)
	}
	// Newest 7 distinct days.
	sort.Strings(days)
	days = days[len(days)-7:]

	for h := 0; h < 24; h++ {
		steady := true
		for _, day := range days {
			if s.Hourly[day][h] == 0 {
				steady = false
				break
			}
		}
		if steady {
			return true
		}
	}
	return false
}
