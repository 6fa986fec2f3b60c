package reconcile

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
)

func unlockAt(day string, hour int) time.Time {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour) * time.Hour)
}

// ─── Counters ───────────────────────────────────────────────────────────────

func TestMerge_DailyPairwiseMax(t *testing.T) {
	local := domain.Stats{
		Daily: domain.DailyMap{"2025-01-01": 5000, "2025-01-02": 8700},
	}
	remote := domain.Stats{
		Daily: domain.DailyMap{"2025-01-01": 6000, "2025-01-02": 6700},
	}

	got := Merge(local, remote)

	want := domain.DailyMap{"2025-01-01": 6000, "2025-01-02": 8700}
	if !reflect.DeepEqual(got.Daily, want) {
		t.Errorf("Daily = %v, want %v", got.Daily, want)
	}
	// The sum of the merged days, not max(13700, 12700) and not a max of
	// reported totals.
	if got.Total != 14700 {
		t.Errorf("Total = %d, want 14700", got.Total)
	}
}

func TestMerge_TotalIgnoresReportedTotals(t *testing.T) {
	local := domain.Stats{Total: 999999, Daily: domain.DailyMap{"2025-01-01": 100}}
	remote := domain.Stats{Total: 5, Daily: domain.DailyMap{"2025-01-02": 200}}

	if got := Merge(local, remote).Total; got != 300 {
		t.Errorf("Total = %d, want 300 (recomputed from merged days)", got)
	}
}

func TestMerge_HourlyElementwiseMax(t *testing.T) {
	local := domain.Stats{
		Hourly: domain.HourlyMap{"2025-01-01": {9: 40, 10: 10}},
	}
	remote := domain.Stats{
		Hourly: domain.HourlyMap{"2025-01-01": {9: 25, 10: 30}, "2025-01-02": {8: 5}},
	}

	got := Merge(local, remote).Hourly
	if h := got["2025-01-01"]; h[9] != 40 || h[10] != 30 {
		t.Errorf("hours on 01-01 = 9:%d 10:%d, want 9:40 10:30", h[9], h[10])
	}
	if h := got["2025-01-02"]; h[8] != 5 {
		t.Errorf("hour 8 on 01-02 = %d, want 5", h[8])
	}
}

func TestMerge_MonotonicTotal(t *testing.T) {
	local := domain.Stats{
		Daily: domain.DailyMap{"2025-01-01": 500, "2025-01-02": 900, "2025-01-03": 11},
	}
	remotes := []domain.Stats{
		{Daily: domain.DailyMap{"2025-01-01": 9999}},
		{Daily: domain.DailyMap{}},
		{},
	}

	before := local.Daily.Sum()
	got := local
	for _, r := range remotes {
		got = Merge(got, r)
		if got.Total < before {
			t.Fatalf("Total = %d after merge, below local %d", got.Total, before)
		}
	}
}

// ─── Achievements ───────────────────────────────────────────────────────────

func TestMerge_AchievementsUnionEarliestWins(t *testing.T) {
	local := domain.Stats{Achievements: []domain.Achievement{
		{ID: "total_1k", UnlockedAt: unlockAt("2025-01-05", 9)},
		{ID: "streak_3", UnlockedAt: unlockAt("2025-01-06", 9)},
	}}
	remote := domain.Stats{Achievements: []domain.Achievement{
		{ID: "total_1k", UnlockedAt: unlockAt("2025-01-02", 14)},
		{ID: "night_owl", UnlockedAt: unlockAt("2025-01-04", 23)},
	}}

	got := Merge(local, remote).Achievements
	if len(got) != 3 {
		t.Fatalf("achievements = %d, want 3", len(got))
	}
	byID := make(map[string]domain.Achievement)
	for _, a := range got {
		byID[a.ID] = a
	}
	if want := unlockAt("2025-01-02", 14); !byID["total_1k"].UnlockedAt.Equal(want) {
		t.Errorf("total_1k unlocked at %v, want earliest %v", byID["total_1k"].UnlockedAt, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i].UnlockedAt.Before(got[i-1].UnlockedAt) {
			t.Errorf("achievements not sorted by unlock time: %v", got)
		}
	}
}

// ─── Streak and Dates ───────────────────────────────────────────────────────

func TestMerge_StreakRecencyWins(t *testing.T) {
	local := domain.Stats{LastActiveDate: "2025-06-03", CurrentStreak: 4, LongestStreak: 9}
	remote := domain.Stats{LastActiveDate: "2025-06-04", CurrentStreak: 2, LongestStreak: 6}

	got := Merge(local, remote)
	if got.LastActiveDate != "2025-06-04" || got.CurrentStreak != 2 {
		t.Errorf("streak = %d on %s, want 2 on 2025-06-04", got.CurrentStreak, got.LastActiveDate)
	}
	if got.LongestStreak != 9 {
		t.Errorf("LongestStreak = %d, want 9", got.LongestStreak)
	}
}

func TestMerge_StreakTieTakesMax(t *testing.T) {
	local := domain.Stats{LastActiveDate: "2025-06-04", CurrentStreak: 3, LongestStreak: 3}
	remote := domain.Stats{LastActiveDate: "2025-06-04", CurrentStreak: 9, LongestStreak: 9}

	if got := Merge(local, remote).CurrentStreak; got != 9 {
		t.Errorf("CurrentStreak = %d, want 9 on an exact date tie", got)
	}
}

func TestMerge_LongestNeverBelowCurrent(t *testing.T) {
	local := domain.Stats{LastActiveDate: "2025-06-04", CurrentStreak: 10, LongestStreak: 1}

	got := Merge(local)
	if got.LongestStreak < got.CurrentStreak {
		t.Errorf("LongestStreak = %d below CurrentStreak = %d", got.LongestStreak, got.CurrentStreak)
	}
}

func TestMerge_FirstUsedEarliest(t *testing.T) {
	local := domain.Stats{FirstUsedDate: "2024-11-20"}
	blank := domain.Stats{}
	remote := domain.Stats{FirstUsedDate: "2024-03-02"}

	if got := Merge(local, blank, remote).FirstUsedDate; got != "2024-03-02" {
		t.Errorf("FirstUsedDate = %q, want 2024-03-02 (blank replicas skipped)", got)
	}
}

// ─── XP and Level ───────────────────────────────────────────────────────────

func TestMerge_XPSelfHeal(t *testing.T) {
	// A replica that lost its XP but kept counters and achievements heals
	// to the floor its history justifies.
	local := domain.Stats{
		XP:    0,
		Daily: domain.DailyMap{"2025-01-01": 12000},
		Achievements: []domain.Achievement{
			{ID: "a", UnlockedAt: unlockAt("2025-01-01", 1)},
			{ID: "b", UnlockedAt: unlockAt("2025-01-01", 2)},
			{ID: "c", UnlockedAt: unlockAt("2025-01-01", 3)},
		},
	}
	remote := domain.Stats{XP: 500}

	got := Merge(local, remote)
	// floor(12000/100) + 250*3 = 870, above the 500 any replica reported.
	if got.XP != 870 {
		t.Errorf("XP = %d, want 870", got.XP)
	}
	if got.Level != 1 {
		t.Errorf("Level = %d, want 1", got.Level)
	}
}

func TestMerge_XPKeepsRewardXP(t *testing.T) {
	// Challenge rewards cannot be reconstructed from counters; the highest
	// reported XP survives.
	local := domain.Stats{XP: 5000, Daily: domain.DailyMap{"2025-01-01": 100}}

	got := Merge(local, domain.Stats{XP: 20})
	if got.XP != 5000 {
		t.Errorf("XP = %d, want 5000", got.XP)
	}
	if got.Level != domain.LevelForXP(5000) {
		t.Errorf("Level = %d, want %d", got.Level, domain.LevelForXP(5000))
	}
}

// ─── Local-Only State ───────────────────────────────────────────────────────

func TestMerge_ChallengesAndSettingsStayLocal(t *testing.T) {
	local := domain.Stats{
		Session:    42,
		DailyGoal:  5000,
		WeeklyGoal: 30000,
		Challenges: []domain.Challenge{{ID: "ch-local", Target: 500}},
	}
	remote := domain.Stats{
		Session:    7,
		DailyGoal:  100,
		WeeklyGoal: 200,
		Challenges: []domain.Challenge{{ID: "ch-remote", Target: 900}},
	}

	got := Merge(local, remote)
	if got.Session != 42 || got.DailyGoal != 5000 || got.WeeklyGoal != 30000 {
		t.Errorf("local settings not carried: %+v", got)
	}
	if len(got.Challenges) != 1 || got.Challenges[0].ID != "ch-local" {
		t.Errorf("Challenges = %+v, want only the local one", got.Challenges)
	}
}

// ─── Goals ──────────────────────────────────────────────────────────────────

func TestMerge_GoalsUnionByID(t *testing.T) {
	created := unlockAt("2025-01-01", 8)
	local := domain.Stats{Goals: []domain.Goal{
		{ID: "g1", Name: "Million", Type: domain.GoalTotal, Target: 1000000,
			Current: 4000, CreatedAt: unlockAt("2025-01-03", 8)},
	}}
	remote := domain.Stats{Goals: []domain.Goal{
		{ID: "g1", Name: "Million", Type: domain.GoalTotal, Target: 1000000,
			Current: 9000, Completed: true, CreatedAt: created},
		{ID: "g2", Name: "Habit", Type: domain.GoalStreak, Target: 30,
			Current: 3, CreatedAt: unlockAt("2025-01-02", 8)},
	}}

	got := Merge(local, remote).Goals
	if len(got) != 2 {
		t.Fatalf("goals = %d, want 2", len(got))
	}
	// Sorted by creation time: g1 (01-01 after taking the earliest) first.
	if got[0].ID != "g1" || got[1].ID != "g2" {
		t.Fatalf("goal order = [%s %s], want [g1 g2]", got[0].ID, got[1].ID)
	}
	g1 := got[0]
	if g1.Current != 9000 || !g1.Completed || !g1.CreatedAt.Equal(created) {
		t.Errorf("g1 = %+v, want current 9000, completed, created %v", g1, created)
	}
}

// ─── Personality ────────────────────────────────────────────────────────────

func TestMerge_PersonalityRecomputed(t *testing.T) {
	local := domain.Stats{
		PersonalityType: domain.PersonalityBalanced,
		LastActiveDate:  "2025-06-04",
		Hourly:          domain.HourlyMap{"2025-06-04": {6: 900}},
		Daily:           domain.DailyMap{"2025-06-04": 900},
	}
	remote := domain.Stats{
		PersonalityType: domain.PersonalityBalanced,
		Hourly:          domain.HourlyMap{"2025-06-03": {7: 600}},
		Daily:           domain.DailyMap{"2025-06-03": 600},
	}

	if got := Merge(local, remote).PersonalityType; got != domain.PersonalityEarlyBird {
		t.Errorf("PersonalityType = %q, want recomputed %q", got, domain.PersonalityEarlyBird)
	}
}

// ─── Algebraic Properties ───────────────────────────────────────────────────

func richReplica(seed int) domain.Stats {
	base := unlockAt("2025-03-01", 0)
	return domain.Stats{
		Daily: domain.DailyMap{
			"2025-03-01": int64(1000 * seed),
			"2025-03-02": int64(700 + seed),
		},
		Hourly: domain.HourlyMap{
			"2025-03-01": {9: int64(500 * seed), 14: int64(100 + seed)},
		},
		FirstUsedDate:  fmt.Sprintf("2025-01-0%d", 1+seed),
		LastActiveDate: fmt.Sprintf("2025-03-0%d", 1+seed),
		CurrentStreak:  seed + 1,
		LongestStreak:  seed + 3,
		XP:             int64(300 * seed),
		Achievements: []domain.Achievement{
			{ID: "total_1k", UnlockedAt: base.Add(time.Duration(seed) * time.Hour)},
			{ID: fmt.Sprintf("streak_%d", seed), UnlockedAt: base},
		},
		Goals: []domain.Goal{
			{ID: "g-shared", Name: "Million", Type: domain.GoalTotal, Target: 1000000,
				Current: int64(100 * seed), CreatedAt: base.Add(time.Duration(seed) * time.Minute)},
		},
	}
}

func TestMerge_Idempotent(t *testing.T) {
	a, b := richReplica(1), richReplica(2)

	once := Merge(a, b)
	twice := Merge(once, b)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Merge(Merge(a,b), b) != Merge(a,b):\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_Commutative(t *testing.T) {
	a, b, c := richReplica(1), richReplica(2), richReplica(3)

	bc := Merge(a, b, c)
	cb := Merge(a, c, b)
	if !reflect.DeepEqual(bc, cb) {
		t.Errorf("Merge(a,b,c) != Merge(a,c,b):\nbc: %+v\ncb: %+v", bc, cb)
	}
}

func TestMerge_NoRemotes(t *testing.T) {
	local := richReplica(2)

	got := Merge(local)
	if got.Total != local.Daily.Sum() {
		t.Errorf("Total = %d, want %d", got.Total, local.Daily.Sum())
	}
	if got.CurrentStreak != local.CurrentStreak || got.LastActiveDate != local.LastActiveDate {
		t.Errorf("streak fields changed in a solo merge: %+v", got)
	}
	// Even a solo merge heals XP up to the counter floor.
	if floor := baseXP(got.Total, len(got.Achievements)); got.XP < floor {
		t.Errorf("XP = %d, below floor %d", got.XP, floor)
	}
}
