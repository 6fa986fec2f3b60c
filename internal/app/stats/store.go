// Package stats maintains the live keystroke statistics snapshot and its
// write-behind persistence. All mutation funnels through one Store guarded
// by a single mutex: the hot path (RecordKeystrokeAt) touches memory only,
// and durable writes happen in Flush or in the rare reward and merge paths.
package stats

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
)

// Store holds the current statistics and writes them through to sqlite.
type Store struct {
	db *sqlite.DB

	mu           sync.Mutex
	cur          domain.Stats // maps are always non-nil
	dirtyDays    map[string]struct{}
	dirtyScalars bool
	pendingXP    int64 // event XP not yet settled into the ledger

	lastFlush    time.Time
	flushFails   int
	lastFlushErr error
}

// NewStore loads persisted statistics and starts a fresh session counter.
func NewStore(db *sqlite.DB) (*Store, error) {
	loaded, err := db.LoadStats()
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	loaded.Session = 0
	if err := db.SetState("session_keystrokes", "0"); err != nil {
		return nil, fmt.Errorf("reset session counter: %w", err)
	}
	return &Store{
		db:        db,
		cur:       *loaded,
		dirtyDays: make(map[string]struct{}),
		lastFlush: time.Now(),
	}, nil
}

// RecordKeystrokeAt applies one accepted event to the in-memory snapshot.
// Durable persistence waits for the next Flush.
func (s *Store) RecordKeystrokeAt(at time.Time) {
	day := domain.DayKeyOf(at)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rollDayLocked(day)

	s.cur.Total++
	s.cur.Session++
	s.cur.Daily[day]++
	hours := s.cur.Hourly[day]
	hours[at.Hour()]++
	s.cur.Hourly[day] = hours

	earned := domain.XPPerEvent(s.cur.CurrentStreak)
	s.cur.XP += earned
	s.pendingXP += earned
	s.cur.Level = domain.LevelForXP(s.cur.XP)

	s.dirtyDays[day] = struct{}{}
	s.dirtyScalars = true
}

// rollDayLocked advances streak state when the event day changes: same day is
// a no-op, the day after the last active day extends the streak, anything
// else starts over at 1. A merge can move LastActiveDate past the local
// clock; stale days leave the streak alone.
func (s *Store) rollDayLocked(day string) {
	if s.cur.FirstUsedDate == "" || day < s.cur.FirstUsedDate {
		s.cur.FirstUsedDate = day
	}
	if s.cur.LastActiveDate == day || day < s.cur.LastActiveDate {
		return
	}
	switch s.cur.LastActiveDate {
	case "":
		s.cur.CurrentStreak = 1
	case yesterdayOf(day):
		s.cur.CurrentStreak++
	default:
		s.cur.CurrentStreak = 1
	}
	if s.cur.CurrentStreak > s.cur.LongestStreak {
		s.cur.LongestStreak = s.cur.CurrentStreak
	}
	s.cur.LastActiveDate = day
}

func yesterdayOf(day string) string {
	t, err := domain.ParseDayKey(day)
	if err != nil {
		return ""
	}
	return domain.DayKeyOf(t.AddDate(0, 0, -1))
}

// Snapshot returns a deep copy of the current statistics.
func (s *Store) Snapshot() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.Clone()
}

// LiveUpdateAt builds the compact live-feed payload for the given moment.
func (s *Store) LiveUpdateAt(now time.Time) domain.LiveUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.LiveUpdateOn(domain.DayKeyOf(now))
}

// Flush persists dirty counters and settles pending event XP into the
// ledger. The snapshot is copied under the lock and written outside it, so
// recording never stalls behind sqlite. A failed flush keeps the dirty set
// for the next cycle.
func (s *Store) Flush() error {
	start := time.Now()

	s.mu.Lock()
	if len(s.dirtyDays) == 0 && !s.dirtyScalars {
		s.mu.Unlock()
		return nil
	}
	if err := s.settleEventsLocked(start); err != nil {
		s.flushFails++
		s.lastFlushErr = err
		s.mu.Unlock()
		metrics.FlushTotal.WithLabelValues("error").Inc()
		return err
	}
	snap := s.cur.Clone()
	days := make([]string, 0, len(s.dirtyDays))
	for d := range s.dirtyDays {
		days = append(days, d)
	}
	sort.Strings(days)
	s.dirtyDays = make(map[string]struct{})
	s.dirtyScalars = false
	s.mu.Unlock()

	if err := s.db.SaveCounters(snap, days); err != nil {
		s.mu.Lock()
		for _, d := range days {
			s.dirtyDays[d] = struct{}{}
		}
		s.dirtyScalars = true
		s.flushFails++
		s.lastFlushErr = err
		s.mu.Unlock()
		metrics.FlushTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("save counters: %w", err)
	}

	s.mu.Lock()
	s.lastFlush = time.Now()
	s.flushFails = 0
	s.lastFlushErr = nil
	s.mu.Unlock()

	metrics.FlushTotal.WithLabelValues("ok").Inc()
	metrics.FlushDuration.Observe(time.Since(start).Seconds())
	return nil
}

// FlushHealth reports flush freshness for the health checker.
func (s *Store) FlushHealth() (last time.Time, fails int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFlush, s.flushFails, s.lastFlushErr
}

// Dirty reports whether counter changes are waiting on a flush.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirtyDays) > 0 || s.dirtyScalars
}

// settleEventsLocked writes accumulated per-event XP as one ledger entry.
// Ledger appends stay under the lock so entry order matches balance order.
func (s *Store) settleEventsLocked(at time.Time) error {
	if s.pendingXP == 0 {
		return nil
	}
	_, err := s.db.AppendXP(domain.XPEntry{
		Delta:     s.pendingXP,
		Source:    domain.XPEvents,
		Balance:   s.cur.XP,
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("append events ledger entry: %w", err)
	}
	s.pendingXP = 0
	return nil
}

// awardLocked settles pending event XP, then applies and records a one-time
// reward. Caller holds mu.
func (s *Store) awardLocked(delta int64, source domain.XPSource, ref string, at time.Time) error {
	if err := s.settleEventsLocked(at); err != nil {
		return err
	}
	s.cur.XP += delta
	s.cur.Level = domain.LevelForXP(s.cur.XP)
	s.dirtyScalars = true
	_, err := s.db.AppendXP(domain.XPEntry{
		Delta:     delta,
		Source:    source,
		Ref:       ref,
		Balance:   s.cur.XP,
		CreatedAt: at,
	})
	if err != nil {
		return fmt.Errorf("append %s ledger entry: %w", source, err)
	}
	return nil
}

// UnlockAchievement grants an achievement and its XP reward once. The row
// insert is the commit point: a second call for the same id is a no-op.
func (s *Store) UnlockAchievement(def domain.AchievementDef, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.HasAchievement(def.ID) {
		return false, nil
	}
	ach := domain.Achievement{ID: def.ID, Category: def.Category, UnlockedAt: at}
	newly, err := s.db.InsertAchievement(ach)
	if err != nil {
		return false, fmt.Errorf("unlock %s: %w", def.ID, err)
	}
	if !newly {
		// Already durable from an earlier run; nothing to grant.
		return false, nil
	}
	s.cur.Achievements = append(s.cur.Achievements, ach)
	s.dirtyScalars = true
	if err := s.awardLocked(def.RewardXP, domain.XPAchievement, def.ID, at); err != nil {
		return true, err
	}
	metrics.AchievementsUnlocked.Inc()
	return true, nil
}

// AddChallenge stores a newly generated challenge.
func (s *Store) AddChallenge(c domain.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.InsertChallenge(c); err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}
	s.cur.Challenges = append(s.cur.Challenges, c)
	return nil
}

// UpsertChallengeProgress records evaluator-computed progress and completes
// the challenge when the target is reached. Completion flips exactly once
// and grants the reward exactly once; the completed challenge is returned on
// that transition.
func (s *Store) UpsertChallengeProgress(id string, progress int64, at time.Time) (*domain.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cur.Challenges {
		c := &s.cur.Challenges[i]
		if c.ID != id {
			continue
		}
		completedNow := !c.Completed && progress >= c.Target
		if progress == c.Progress && !completedNow {
			return nil, nil
		}
		c.Progress = progress
		if completedNow {
			c.Completed = true
		}
		if err := s.db.UpdateChallenge(*c); err != nil {
			return nil, fmt.Errorf("update challenge %s: %w", id, err)
		}
		if completedNow {
			if err := s.awardLocked(c.RewardXP, domain.XPChallenge, c.ID, at); err != nil {
				return nil, err
			}
			metrics.ChallengesCompleted.Inc()
			done := *c
			return &done, nil
		}
		return nil, nil
	}
	return nil, nil
}

// RemoveExpiredChallenges deletes challenges whose window ended before today.
func (s *Store) RemoveExpiredChallenges(today string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.db.DeleteChallengesEndedBefore(today)
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	if n > 0 {
		kept := s.cur.Challenges[:0]
		for _, c := range s.cur.Challenges {
			if !c.ExpiredOn(today) {
				kept = append(kept, c)
			}
		}
		s.cur.Challenges = kept
	}
	return int(n), nil
}

// AddGoal stores a user-defined goal.
func (s *Store) AddGoal(g domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.InsertGoal(g); err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	s.cur.Goals = append(s.cur.Goals, g)
	return nil
}

// SetGoalProgress records evaluator-computed progress toward a goal.
// Completed flips once and stays set.
func (s *Store) SetGoalProgress(id string, current int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cur.Goals {
		g := &s.cur.Goals[i]
		if g.ID != id {
			continue
		}
		completed := g.Completed || current >= g.Target
		if current == g.Current && completed == g.Completed {
			return nil
		}
		g.Current = current
		g.Completed = completed
		if err := s.db.UpdateGoal(*g); err != nil {
			return fmt.Errorf("update goal %s: %w", id, err)
		}
		return nil
	}
	return fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
}

// SetDailyGoal updates the daily keystroke target and persists it
// immediately.
func (s *Store) SetDailyGoal(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.DailyGoal = n
	if err := s.db.SetState("daily_goal", strconv.FormatInt(n, 10)); err != nil {
		return fmt.Errorf("persist daily goal: %w", err)
	}
	return nil
}

// SetWeeklyGoal updates the weekly keystroke target and persists it
// immediately.
func (s *Store) SetWeeklyGoal(n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.WeeklyGoal = n
	if err := s.db.SetState("weekly_goal", strconv.FormatInt(n, 10)); err != nil {
		return fmt.Errorf("persist weekly goal: %w", err)
	}
	return nil
}

// SetPersonality stores the derived personality label when it changes.
func (s *Store) SetPersonality(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur.PersonalityType == p {
		return nil
	}
	s.cur.PersonalityType = p
	if err := s.db.SetState("personality_type", p); err != nil {
		return fmt.Errorf("persist personality: %w", err)
	}
	return nil
}

// ApplyMerged folds a reconciliation result into live state. combine runs
// against the current snapshot under the lock, so keystrokes recorded while
// the sync was in flight are not lost. Memory changes only after the full
// rewrite lands in sqlite; the returned snapshot is the persisted result.
func (s *Store) ApplyMerged(at time.Time, combine func(local domain.Stats) domain.Stats) (domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settleEventsLocked(at); err != nil {
		return domain.Stats{}, err
	}

	final := combine(s.cur)
	if err := s.db.ReplaceStats(final); err != nil {
		return domain.Stats{}, fmt.Errorf("persist merged stats: %w", err)
	}

	prior := s.cur.XP
	s.cur = final
	s.dirtyDays = make(map[string]struct{})
	s.dirtyScalars = false

	if final.XP != prior {
		_, err := s.db.AppendXP(domain.XPEntry{
			Delta:     final.XP - prior,
			Source:    domain.XPMerge,
			Balance:   final.XP,
			CreatedAt: at,
		})
		if err != nil {
			// The merge itself stands; the ledger is an audit trail.
			log.Printf("[stats] merge ledger entry failed: %v", err)
		}
	}
	return final.Clone(), nil
}

// Reset wipes all statistics and history, keeping only device identity.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ResetStats(); err != nil {
		return fmt.Errorf("reset stats: %w", err)
	}
	s.cur = domain.Stats{
		Daily:  make(domain.DailyMap),
		Hourly: make(domain.HourlyMap),
		Level:  1,
	}
	s.dirtyDays = make(map[string]struct{})
	s.dirtyScalars = false
	s.pendingXP = 0
	return nil
}
