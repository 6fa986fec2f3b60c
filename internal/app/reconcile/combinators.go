// Package reconcile merges device replicas into one consistent snapshot and
// runs the periodic sync against the remote replica store.
package reconcile

import (
	"sort"

	"github.com/keybeat-app/keybeat/internal/domain"
)

// Merge combines the local snapshot with any number of remote snapshots.
// Pure and deterministic: max/union/min per field, no side effects, and the
// same inputs in any order produce the same output. Session, goal settings,
// and active challenges are device-local and ride through from local.
func Merge(local domain.Stats, remotes ...domain.Stats) domain.Stats {
	all := make([]domain.Stats, 0, len(remotes)+1)
	all = append(all, local)
	all = append(all, remotes...)

	out := domain.Stats{
		Daily:  mergeDaily(all),
		Hourly: mergeHourly(all),
	}
	// No replica's reported total survives a merge: the merged daily map is
	// the one source of truth.
	out.Total = out.Daily.Sum()

	out.Achievements = mergeAchievements(all)
	out.FirstUsedDate = earliestFirstUsed(all)
	out.LastActiveDate, out.CurrentStreak = mergeStreak(all)
	out.LongestStreak = maxLongestStreak(all)
	if out.LongestStreak < out.CurrentStreak {
		// A malformed replica cannot push longest below current.
		out.LongestStreak = out.CurrentStreak
	}

	out.XP = mergeXP(out.Total, len(out.Achievements), all)
	out.Level = domain.LevelForXP(out.XP)
	out.PersonalityType = domain.DerivePersonality(&out, out.LastActiveDate)

	out.Goals = mergeGoals(all)

	out.Session = local.Session
	out.DailyGoal = local.DailyGoal
	out.WeeklyGoal = local.WeeklyGoal
	out.Challenges = append([]domain.Challenge(nil), local.Challenges...)
	return out
}

// mergeDaily takes the pairwise maximum per date. Two devices accumulating
// the same day offline keep only the larger count, not the union of work.
func mergeDaily(all []domain.Stats) domain.DailyMap {
	out := domain.DailyMap{}
	for _, s := range all {
		for day, n := range s.Daily {
			if n > out[day] {
				out[day] = n
			}
		}
	}
	return out
}

// mergeHourly takes the elementwise maximum per date and hour.
func mergeHourly(all []domain.Stats) domain.HourlyMap {
	out := domain.HourlyMap{}
	for _, s := range all {
		for day, hours := range s.Hourly {
			merged := out[day]
			for h, n := range hours {
				if n > merged[h] {
					merged[h] = n
				}
			}
			out[day] = merged
		}
	}
	return out
}

// mergeAchievements unions by id; the earliest unlock timestamp wins for
// duplicates. Output is sorted for a stable wire representation.
func mergeAchievements(all []domain.Stats) []domain.Achievement {
	byID := make(map[string]domain.Achievement)
	for _, s := range all {
		for _, a := range s.Achievements {
			prev, seen := byID[a.ID]
			if !seen || a.UnlockedAt.Before(prev.UnlockedAt) {
				byID[a.ID] = a
			}
		}
	}
	out := make([]domain.Achievement, 0, len(byID))
	for _, a := range byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { // deterministic ordering
		if !out[i].UnlockedAt.Equal(out[j].UnlockedAt) {
			return out[i].UnlockedAt.Before(out[j].UnlockedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func earliestFirstUsed(all []domain.Stats) string {
	var first string
	for _, s := range all {
		if s.FirstUsedDate == "" {
			continue
		}
		if first == "" || s.FirstUsedDate < first {
			first = s.FirstUsedDate
		}
	}
	return first
}

// mergeStreak gives currentStreak to the replica with the most recent
// activity. An exact date tie takes the maximum so a higher streak synced in
// from elsewhere the same day cannot regress.
func mergeStreak(all []domain.Stats) (lastActive string, streak int) {
	for _, s := range all {
		switch {
		case s.LastActiveDate > lastActive:
			lastActive, streak = s.LastActiveDate, s.CurrentStreak
		case s.LastActiveDate == lastActive && s.CurrentStreak > streak:
			streak = s.CurrentStreak
		}
	}
	return lastActive, streak
}

func maxLongestStreak(all []domain.Stats) int {
	var longest int
	for _, s := range all {
		if s.LongestStreak > longest {
			longest = s.LongestStreak
		}
	}
	return longest
}

// baseXP reconstructs the floor XP the merged counters justify: one point
// per 100 keystrokes plus 250 per achievement. Reward XP cannot be
// reconstructed from counters, so mergeXP also honors the highest XP any
// replica reported. Self-heals a zero-XP regression without discarding
// challenge rewards.
func baseXP(total int64, achievements int) int64 {
	return total/100 + 250*int64(achievements)
}

func mergeXP(total int64, achievements int, all []domain.Stats) int64 {
	xp := baseXP(total, achievements)
	for _, s := range all {
		if s.XP > xp {
			xp = s.XP
		}
	}
	return xp
}

// mergeGoals unions by id: current takes the maximum, completed is sticky,
// the earliest creation time is kept. Descriptive fields come from the
// first replica that carries the goal (local first).
func mergeGoals(all []domain.Stats) []domain.Goal {
	byID := make(map[string]domain.Goal)
	for _, s := range all {
		for _, g := range s.Goals {
			prev, seen := byID[g.ID]
			if !seen {
				byID[g.ID] = g
				continue
			}
			if g.Current > prev.Current {
				prev.Current = g.Current
			}
			prev.Completed = prev.Completed || g.Completed
			if g.CreatedAt.Before(prev.CreatedAt) {
				prev.CreatedAt = g.CreatedAt
			}
			byID[g.ID] = prev
		}
	}
	out := make([]domain.Goal, 0, len(byID))
	for _, g := range byID {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { // deterministic ordering
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
