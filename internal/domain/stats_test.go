package domain

import (
	"testing"
	"time"
)

// ─── Day Keys ───────────────────────────────────────────────────────────────

func TestDayKey_RoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 4, 15, 30, 0, 0, time.Local)
	key := DayKeyOf(at)
	if key != "2025-06-04" {
		t.Fatalf("DayKeyOf = %q, want %q", key, "2025-06-04")
	}

	back, err := ParseDayKey(key)
	if err != nil {
		t.Fatalf("ParseDayKey: %v", err)
	}
	if DayKeyOf(back) != key {
		t.Errorf("round trip lost the day: %q", DayKeyOf(back))
	}
	if back.Hour() != 0 || back.Minute() != 0 {
		t.Errorf("parsed key is not midnight: %v", back)
	}
}

func TestDayKey_OrdersAsStrings(t *testing.T) {
	// Streak walking and challenge expiry compare keys lexically.
	pairs := [][2]string{
		{"2024-12-31", "2025-01-01"},
		{"2025-01-09", "2025-01-10"},
		{"2025-06-04", "2025-06-05"},
	}
	for _, p := range pairs {
		if !(p[0] < p[1]) {
			t.Errorf("%q should sort before %q", p[0], p[1])
		}
	}
}

func TestParseDayKey_Invalid(t *testing.T) {
	for _, bad := range []string{"", "06/04/2025", "2025-13-01", "yesterday"} {
		if _, err := ParseDayKey(bad); err == nil {
			t.Errorf("ParseDayKey(%q) should fail", bad)
		}
	}
}

// ─── Counter Maps ───────────────────────────────────────────────────────────

func TestHourCounts_Sum(t *testing.T) {
	var h HourCounts
	h[0] = 5
	h[9] = 100
	h[23] = 7
	if got := h.Sum(); got != 112 {
		t.Errorf("Sum = %d, want 112", got)
	}
}

func TestDailyMap_SumAndClone(t *testing.T) {
	m := DailyMap{"2025-06-04": 10, "2025-06-05": 20}
	if got := m.Sum(); got != 30 {
		t.Errorf("Sum = %d, want 30", got)
	}

	c := m.Clone()
	c["2025-06-04"] = 999
	if m["2025-06-04"] != 10 {
		t.Error("clone shares storage with the original")
	}
}

func TestClone_NilMapsBecomeEmpty(t *testing.T) {
	var d DailyMap
	var h HourlyMap
	if d.Clone() == nil || h.Clone() == nil {
		t.Error("Clone of a nil map must return an empty map, not nil")
	}
}

func TestStats_CloneIsDeep(t *testing.T) {
	s := Stats{
		Total:        100,
		Daily:        DailyMap{"2025-06-04": 100},
		Hourly:       HourlyMap{"2025-06-04": {9: 100}},
		Achievements: []Achievement{{ID: "first_keystroke"}},
		Goals:        []Goal{{ID: "g1", Name: "before"}},
	}

	c := s.Clone()
	c.Daily["2025-06-04"] = 0
	hc := c.Hourly["2025-06-04"]
	hc[9] = 0
	c.Hourly["2025-06-04"] = hc
	c.Achievements[0].ID = "changed"
	c.Goals[0].Name = "after"

	if s.Daily["2025-06-04"] != 100 {
		t.Error("Daily not deep-copied")
	}
	if s.Hourly["2025-06-04"][9] != 100 {
		t.Error("Hourly not deep-copied")
	}
	if s.Achievements[0].ID != "first_keystroke" {
		t.Error("Achievements not deep-copied")
	}
	if s.Goals[0].Name != "before" {
		t.Error("Goals not deep-copied")
	}
}

func TestStats_HasAchievement(t *testing.T) {
	s := Stats{Achievements: []Achievement{{ID: "first_keystroke"}}}
	if !s.HasAchievement("first_keystroke") {
		t.Error("unlocked id not found")
	}
	if s.HasAchievement("marathon_day") {
		t.Error("locked id reported as unlocked")
	}
}

// ─── Live Updates ───────────────────────────────────────────────────────────

func TestLiveUpdateOn_GoalPct(t *testing.T) {
	s := Stats{
		Total:     1000,
		Daily:     DailyMap{"2025-06-04": 500},
		DailyGoal: 2000,
	}

	u := s.LiveUpdateOn("2025-06-04")
	if u.Today != 500 {
		t.Errorf("Today = %d, want 500", u.Today)
	}
	if u.DailyGoalPct != 25.0 {
		t.Errorf("DailyGoalPct = %v, want 25", u.DailyGoalPct)
	}
}

func TestLiveUpdateOn_PctCapsAt100(t *testing.T) {
	s := Stats{Daily: DailyMap{"2025-06-04": 5000}, DailyGoal: 2000}
	if got := s.LiveUpdateOn("2025-06-04").DailyGoalPct; got != 100.0 {
		t.Errorf("DailyGoalPct = %v, want capped 100", got)
	}
}

func TestLiveUpdateOn_NoGoal(t *testing.T) {
	s := Stats{Daily: DailyMap{"2025-06-04": 5000}}
	if got := s.LiveUpdateOn("2025-06-04").DailyGoalPct; got != 0 {
		t.Errorf("DailyGoalPct = %v, want 0 without a goal", got)
	}
}
