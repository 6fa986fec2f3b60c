package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "state.db")); os.IsNotExist(err) {
		t.Error("state.db should exist")
	}
}

func TestOpen_Ping(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}
}

// ─── State Key-Value ────────────────────────────────────────────────────────

func TestSetState_GetState(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetState("device_id", "dev-1"); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	got, err := db.GetState("device_id")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if got != "dev-1" {
		t.Errorf("GetState() = %q, want %q", got, "dev-1")
	}

	// Overwrite
	if err := db.SetState("device_id", "dev-2"); err != nil {
		t.Fatalf("SetState() overwrite error: %v", err)
	}
	got, _ = db.GetState("device_id")
	if got != "dev-2" {
		t.Errorf("GetState() after overwrite = %q, want %q", got, "dev-2")
	}
}

func TestGetState_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.GetState("nope")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if got != "" {
		t.Errorf("GetState() for missing key = %q, want empty", got)
	}
}

// ─── Snapshot Round Trip ────────────────────────────────────────────────────

func testStats() domain.Stats {
	hourly := domain.HourCounts{}
	hourly[9] = 300
	hourly[10] = 200
	return domain.Stats{
		Total:           500,
		Session:         500,
		Daily:           domain.DailyMap{"2025-06-01": 500},
		Hourly:          domain.HourlyMap{"2025-06-01": hourly},
		FirstUsedDate:   "2025-06-01",
		LastActiveDate:  "2025-06-01",
		CurrentStreak:   1,
		LongestStreak:   1,
		XP:              500,
		Level:           domain.LevelForXP(500),
		PersonalityType: "Balanced",
		DailyGoal:       5000,
		WeeklyGoal:      30000,
	}
}

func TestSaveCounters_LoadStats(t *testing.T) {
	db := newTestDB(t)

	s := testStats()
	if err := db.SaveCounters(s, []string{"2025-06-01"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}

	got, err := db.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats() error: %v", err)
	}
	if got.Total != 500 {
		t.Errorf("Total = %d, want 500", got.Total)
	}
	if got.Daily["2025-06-01"] != 500 {
		t.Errorf("Daily[2025-06-01] = %d, want 500", got.Daily["2025-06-01"])
	}
	hc := got.Hourly["2025-06-01"]
	if hc[9] != 300 || hc[10] != 200 {
		t.Errorf("Hourly[2025-06-01] = %v, want 300 at h9 and 200 at h10", hc)
	}
	if hc.Sum() != got.Daily["2025-06-01"] {
		t.Errorf("hourly sum %d != daily count %d", hc.Sum(), got.Daily["2025-06-01"])
	}
	if got.CurrentStreak != 1 || got.LongestStreak != 1 {
		t.Errorf("streak = %d/%d, want 1/1", got.CurrentStreak, got.LongestStreak)
	}
	if got.DailyGoal != 5000 || got.WeeklyGoal != 30000 {
		t.Errorf("goals = %d/%d, want 5000/30000", got.DailyGoal, got.WeeklyGoal)
	}
}

func TestSaveCounters_OnlyDirtyDates(t *testing.T) {
	db := newTestDB(t)

	s := testStats()
	if err := db.SaveCounters(s, []string{"2025-06-01"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}

	// Second day accumulates in memory but is not in the dirty set.
	s.Daily["2025-06-02"] = 100
	if err := db.SaveCounters(s, []string{"2025-06-01"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}

	got, _ := db.LoadStats()
	if _, ok := got.Daily["2025-06-02"]; ok {
		t.Error("undirty date should not have been written")
	}

	if err := db.SaveCounters(s, []string{"2025-06-02"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}
	got, _ = db.LoadStats()
	if got.Daily["2025-06-02"] != 100 {
		t.Errorf("Daily[2025-06-02] = %d, want 100", got.Daily["2025-06-02"])
	}
}

func TestLoadStats_LevelRecomputedFromXP(t *testing.T) {
	db := newTestDB(t)

	// A stale persisted level must never survive a load.
	if err := db.SetState("user_xp", "4000"); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if err := db.SetState("user_level", "99"); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}

	got, err := db.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats() error: %v", err)
	}
	if want := domain.LevelForXP(4000); got.Level != want {
		t.Errorf("Level = %d, want %d", got.Level, want)
	}
}

func TestReplaceStats_Overwrites(t *testing.T) {
	db := newTestDB(t)

	if err := db.SaveCounters(testStats(), []string{"2025-06-01"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}
	if _, err := db.InsertAchievement(domain.Achievement{
		ID: "doomed", Category: domain.CatMilestone, UnlockedAt: time.Now(),
	}); err != nil {
		t.Fatalf("InsertAchievement() error: %v", err)
	}

	merged := domain.Stats{
		Total:  900,
		Daily:  domain.DailyMap{"2025-06-02": 900},
		Hourly: domain.HourlyMap{},
		Achievements: []domain.Achievement{
			{ID: "kept", Category: domain.CatStreak, UnlockedAt: time.Now()},
		},
	}
	if err := db.ReplaceStats(merged); err != nil {
		t.Fatalf("ReplaceStats() error: %v", err)
	}

	got, err := db.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats() error: %v", err)
	}
	if got.Total != 900 {
		t.Errorf("Total = %d, want 900", got.Total)
	}
	if _, ok := got.Daily["2025-06-01"]; ok {
		t.Error("old daily row should be gone after replace")
	}
	if len(got.Achievements) != 1 || got.Achievements[0].ID != "kept" {
		t.Errorf("Achievements = %v, want only %q", got.Achievements, "kept")
	}
}

func TestResetStats_KeepsDeviceIdentity(t *testing.T) {
	db := newTestDB(t)

	if err := db.SetState("device_id", "dev-keep"); err != nil {
		t.Fatalf("SetState() error: %v", err)
	}
	if err := db.SaveCounters(testStats(), []string{"2025-06-01"}); err != nil {
		t.Fatalf("SaveCounters() error: %v", err)
	}
	if _, err := db.AppendXP(domain.XPEntry{Delta: 10, Source: domain.XPEvents, Balance: 10, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("AppendXP() error: %v", err)
	}

	if err := db.ResetStats(); err != nil {
		t.Fatalf("ResetStats() error: %v", err)
	}

	got, err := db.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats() error: %v", err)
	}
	if got.Total != 0 || len(got.Daily) != 0 {
		t.Errorf("stats not cleared: total=%d daily=%v", got.Total, got.Daily)
	}
	balance, _ := db.XPBalance()
	if balance != 0 {
		t.Errorf("ledger balance = %d, want 0 after reset", balance)
	}
	id, _ := db.GetState("device_id")
	if id != "dev-keep" {
		t.Errorf("device_id = %q, want %q (identity survives reset)", id, "dev-keep")
	}
}

// ─── Achievements ───────────────────────────────────────────────────────────

func TestInsertAchievement_Idempotent(t *testing.T) {
	db := newTestDB(t)

	a := domain.Achievement{ID: "first_1k", Category: domain.CatMilestone, UnlockedAt: time.Now()}

	newly, err := db.InsertAchievement(a)
	if err != nil {
		t.Fatalf("InsertAchievement() error: %v", err)
	}
	if !newly {
		t.Error("first insert should report newly unlocked")
	}

	newly, err = db.InsertAchievement(a)
	if err != nil {
		t.Fatalf("second InsertAchievement() error: %v", err)
	}
	if newly {
		t.Error("second insert should not report newly unlocked")
	}

	count, err := db.AchievementCount()
	if err != nil {
		t.Fatalf("AchievementCount() error: %v", err)
	}
	if count != 1 {
		t.Errorf("AchievementCount() = %d, want 1", count)
	}
}

// ─── Challenges ─────────────────────────────────────────────────────────────

func TestChallenge_CRUDAndExpiry(t *testing.T) {
	db := newTestDB(t)

	c := domain.Challenge{
		ID:        "ch-1",
		Type:      domain.ChallengeDaily,
		Title:     "Sprint",
		Target:    1000,
		StartDate: "2025-06-01",
		EndDate:   "2025-06-01",
		RewardXP:  100,
	}
	if err := db.InsertChallenge(c); err != nil {
		t.Fatalf("InsertChallenge() error: %v", err)
	}

	c.Progress = 1000
	c.Completed = true
	if err := db.UpdateChallenge(c); err != nil {
		t.Fatalf("UpdateChallenge() error: %v", err)
	}

	got, err := db.GetChallenge("ch-1")
	if err != nil {
		t.Fatalf("GetChallenge() error: %v", err)
	}
	if got == nil || !got.Completed || got.Progress != 1000 {
		t.Errorf("GetChallenge() = %+v, want completed with progress 1000", got)
	}

	n, err := db.DeleteChallengesEndedBefore("2025-06-02")
	if err != nil {
		t.Fatalf("DeleteChallengesEndedBefore() error: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d challenges, want 1", n)
	}
	got, _ = db.GetChallenge("ch-1")
	if got != nil {
		t.Error("challenge should be gone after expiry delete")
	}
}

// ─── Goals ──────────────────────────────────────────────────────────────────

func TestGoal_InsertUpdateList(t *testing.T) {
	db := newTestDB(t)

	g := domain.Goal{
		ID:        "goal-1",
		Name:      "Million club",
		Type:      domain.GoalTotal,
		Target:    1_000_000,
		CreatedAt: time.Now(),
	}
	if err := db.InsertGoal(g); err != nil {
		t.Fatalf("InsertGoal() error: %v", err)
	}

	g.Current = 250_000
	if err := db.UpdateGoal(g); err != nil {
		t.Fatalf("UpdateGoal() error: %v", err)
	}

	goals, err := db.ListGoals()
	if err != nil {
		t.Fatalf("ListGoals() error: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("ListGoals() returned %d goals, want 1", len(goals))
	}
	if goals[0].Current != 250_000 {
		t.Errorf("Current = %d, want 250000", goals[0].Current)
	}
	if goals[0].TargetDate != "" {
		t.Errorf("TargetDate = %q, want empty", goals[0].TargetDate)
	}
}

// ─── XP Ledger ──────────────────────────────────────────────────────────────

func TestAppendXP_Balance(t *testing.T) {
	db := newTestDB(t)

	entries := []domain.XPEntry{
		{Delta: 40, Source: domain.XPEvents, Balance: 40, CreatedAt: time.Now()},
		{Delta: 200, Source: domain.XPAchievement, Ref: "first_1k", Balance: 240, CreatedAt: time.Now()},
	}
	for _, e := range entries {
		if _, err := db.AppendXP(e); err != nil {
			t.Fatalf("AppendXP() error: %v", err)
		}
	}

	balance, err := db.XPBalance()
	if err != nil {
		t.Fatalf("XPBalance() error: %v", err)
	}
	if balance != 240 {
		t.Errorf("XPBalance() = %d, want 240", balance)
	}

	list, err := db.ListXP(10)
	if err != nil {
		t.Fatalf("ListXP() error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListXP() returned %d entries, want 2", len(list))
	}
	if list[0].Source != domain.XPAchievement {
		t.Errorf("newest entry source = %q, want achievement", list[0].Source)
	}
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestNotificationCountOn(t *testing.T) {
	db := newTestDB(t)

	now := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := db.InsertNotification(domain.Notification{
			Kind: domain.NotifyAchievement, Title: "t", Body: "b", CreatedAt: now,
		}); err != nil {
			t.Fatalf("InsertNotification() error: %v", err)
		}
	}

	count, err := db.NotificationCountOn(domain.DayKeyOf(now))
	if err != nil {
		t.Fatalf("NotificationCountOn() error: %v", err)
	}
	if count != 3 {
		t.Errorf("NotificationCountOn(today) = %d, want 3", count)
	}

	count, err = db.NotificationCountOn(domain.DayKeyOf(now.AddDate(0, 0, -1)))
	if err != nil {
		t.Fatalf("NotificationCountOn() error: %v", err)
	}
	if count != 0 {
		t.Errorf("NotificationCountOn(yesterday) = %d, want 0", count)
	}
}

// ─── Replicas ───────────────────────────────────────────────────────────────

func TestUpsertReplica_ReplacesWholesale(t *testing.T) {
	db := newTestDB(t)

	r := domain.Replica{
		UserID:          "user-1",
		DeviceID:        "dev-a",
		DeviceName:      "desk",
		TotalKeystrokes: 100,
		DailyKeystrokes: domain.DailyMap{"2025-06-01": 100},
		LastUpdated:     time.Unix(1000, 0),
	}
	if err := db.UpsertReplica(r); err != nil {
		t.Fatalf("UpsertReplica() error: %v", err)
	}

	// Replacement drops fields absent from the new row.
	r2 := r
	r2.TotalKeystrokes = 50
	r2.DailyKeystrokes = domain.DailyMap{"2025-06-02": 50}
	r2.LastUpdated = time.Unix(2000, 0)
	if err := db.UpsertReplica(r2); err != nil {
		t.Fatalf("second UpsertReplica() error: %v", err)
	}

	got, err := db.ListReplicas("user-1")
	if err != nil {
		t.Fatalf("ListReplicas() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("ListReplicas() returned %d rows, want 1", len(got))
	}
	if got[0].TotalKeystrokes != 50 {
		t.Errorf("TotalKeystrokes = %d, want 50 (wholesale replace)", got[0].TotalKeystrokes)
	}
	if _, ok := got[0].DailyKeystrokes["2025-06-01"]; ok {
		t.Error("old daily key should not survive a wholesale replace")
	}
}

func TestListReplicas_NewestFirst(t *testing.T) {
	db := newTestDB(t)

	for i, dev := range []string{"dev-old", "dev-mid", "dev-new"} {
		r := domain.Replica{
			UserID:      "user-1",
			DeviceID:    dev,
			LastUpdated: time.Unix(int64(1000*(i+1)), 0),
		}
		if err := db.UpsertReplica(r); err != nil {
			t.Fatalf("UpsertReplica(%s) error: %v", dev, err)
		}
	}

	got, err := db.ListReplicas("user-1")
	if err != nil {
		t.Fatalf("ListReplicas() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListReplicas() returned %d rows, want 3", len(got))
	}
	if got[0].DeviceID != "dev-new" || got[2].DeviceID != "dev-old" {
		t.Errorf("order = [%s %s %s], want newest first",
			got[0].DeviceID, got[1].DeviceID, got[2].DeviceID)
	}

	other, err := db.ListReplicas("user-2")
	if err != nil {
		t.Fatalf("ListReplicas(user-2) error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListReplicas(user-2) returned %d rows, want 0", len(other))
	}
}
