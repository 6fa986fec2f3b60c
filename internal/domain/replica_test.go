package domain

import (
	"testing"
	"time"
)

func sampleStats() Stats {
	return Stats{
		Total:           100,
		Session:         40,
		Daily:           DailyMap{"2025-06-04": 100},
		Hourly:          HourlyMap{"2025-06-04": {9: 100}},
		FirstUsedDate:   "2025-06-01",
		LastActiveDate:  "2025-06-04",
		CurrentStreak:   4,
		LongestStreak:   9,
		XP:              150,
		Level:           1,
		PersonalityType: PersonalityBalanced,
		DailyGoal:       2000,
		WeeklyGoal:      9000,
		Achievements:    []Achievement{{ID: "first_keystroke", UnlockedAt: time.Unix(1749000000, 0)}},
		Challenges:      []Challenge{{ID: "c1", Title: "Warm Up", Target: 100}},
		Goals:           []Goal{{ID: "g1", Name: "Marathon", Type: GoalTotal, Target: 1000}},
	}
}

func TestStats_ReplicaCarriesSharedFields(t *testing.T) {
	s := sampleStats()
	r := s.Replica("u1", "dev-a", "laptop")

	if r.UserID != "u1" || r.DeviceID != "dev-a" || r.DeviceName != "laptop" {
		t.Fatalf("row key = (%q, %q, %q)", r.UserID, r.DeviceID, r.DeviceName)
	}
	if r.TotalKeystrokes != 100 || r.UserXP != 150 || r.StreakDays != 4 {
		t.Errorf("counters not carried: total=%d xp=%d streak=%d",
			r.TotalKeystrokes, r.UserXP, r.StreakDays)
	}
	if r.DailyKeystrokes["2025-06-04"] != 100 {
		t.Error("daily map not carried")
	}
	if len(r.Achievements) != 1 || len(r.Challenges) != 1 || len(r.Goals) != 1 {
		t.Error("collections not carried")
	}
}

func TestStats_ReplicaIsDetached(t *testing.T) {
	s := sampleStats()
	r := s.Replica("u1", "dev-a", "laptop")

	r.DailyKeystrokes["2025-06-04"] = 0
	r.Goals[0].Name = "changed"

	if s.Daily["2025-06-04"] != 100 {
		t.Error("replica shares the daily map with the snapshot")
	}
	if s.Goals[0].Name != "Marathon" {
		t.Error("replica shares the goal slice with the snapshot")
	}
}

func TestReplica_StatsRoundTrip(t *testing.T) {
	s := sampleStats()
	back := s.Replica("u1", "dev-a", "laptop").Stats()

	if back.Total != s.Total || back.XP != s.XP || back.Level != s.Level {
		t.Errorf("progression lost: total=%d xp=%d level=%d",
			back.Total, back.XP, back.Level)
	}
	if back.CurrentStreak != 4 || back.LongestStreak != 9 {
		t.Errorf("streak lost: %d/%d", back.CurrentStreak, back.LongestStreak)
	}
	if back.FirstUsedDate != "2025-06-01" || back.LastActiveDate != "2025-06-04" {
		t.Errorf("dates lost: %q %q", back.FirstUsedDate, back.LastActiveDate)
	}
	if back.Hourly["2025-06-04"][9] != 100 {
		t.Error("hourly counts lost")
	}

	// Device-local fields never ride the wire.
	if back.Session != 0 {
		t.Errorf("Session = %d, want 0", back.Session)
	}
	if back.DailyGoal != 0 || back.WeeklyGoal != 0 {
		t.Errorf("goal settings = %d/%d, want 0/0", back.DailyGoal, back.WeeklyGoal)
	}
}
