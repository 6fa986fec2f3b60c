package engagement

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/keybeat-app/keybeat/internal/app/stats"
	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/metrics"
)

// DefaultEvalEveryEvents is the count leg of the evaluation throttle; the
// time leg is the daemon's sweep ticker.
const DefaultEvalEveryEvents = 50

// Evaluator runs throttled engagement passes: achievement predicates,
// challenge lifecycle, goal progress, and personality derivation. Passes are
// single-flight; a pass already in progress absorbs concurrent triggers.
type Evaluator struct {
	store    *stats.Store
	notifier *Notifier
	defs     []domain.AchievementDef
	everyN   int

	mu       sync.Mutex
	rng      *rand.Rand // guarded by the single-flight pass
	sinceRun int
	running  bool
}

// NewEvaluator wires the evaluator over the store. everyEvents ≤ 0 falls
// back to the default; seed fixes challenge template selection for tests.
func NewEvaluator(store *stats.Store, notifier *Notifier, everyEvents int, seed int64) *Evaluator {
	if everyEvents <= 0 {
		everyEvents = DefaultEvalEveryEvents
	}
	return &Evaluator{
		store:    store,
		notifier: notifier,
		defs:     AllAchievements(),
		everyN:   everyEvents,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// NoteAccepted counts one accepted event toward the throttle and starts an
// async pass when the count leg trips. Never blocks the ingest path.
func (e *Evaluator) NoteAccepted(at time.Time) {
	e.mu.Lock()
	e.sinceRun++
	trip := e.sinceRun >= e.everyN && !e.running
	if trip {
		e.running = true
		e.sinceRun = 0
	}
	e.mu.Unlock()

	if trip {
		go func() {
			e.run(at)
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()
	}
}

// SweepAt runs the time leg synchronously: challenge expiry, window rules,
// and day boundaries advance even when no events arrive.
func (e *Evaluator) SweepAt(now time.Time) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.sinceRun = 0
	e.mu.Unlock()

	e.run(now)

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// run is one full evaluation pass. Only the single-flight holder calls it.
func (e *Evaluator) run(now time.Time) {
	today := domain.DayKeyOf(now)

	if _, err := e.store.RemoveExpiredChallenges(today); err != nil {
		log.Printf("[engagement] challenge expiry sweep failed: %v", err)
	}
	e.ensureChallenges(now)

	snap := e.store.Snapshot()
	e.checkAchievements(snap, now)
	e.updateChallenges(snap, today, now)
	e.updateGoals(snap, today)
	if err := e.store.SetPersonality(domain.DerivePersonality(&snap, today)); err != nil {
		log.Printf("[engagement] personality update failed: %v", err)
	}
	metrics.EvaluatorRuns.Inc()
}

// ensureChallenges creates a daily and a weekly challenge when the current
// window has none.
func (e *Evaluator) ensureChallenges(now time.Time) {
	snap := e.store.Snapshot()
	today := domain.DayKeyOf(now)

	hasDaily, hasWeekly := false, false
	for _, c := range snap.Challenges {
		if c.ExpiredOn(today) {
			continue
		}
		switch c.Type {
		case domain.ChallengeDaily:
			hasDaily = true
		case domain.ChallengeWeekly:
			hasWeekly = true
		}
	}

	if !hasDaily {
		if err := e.store.AddChallenge(newDailyChallenge(e.rng, snap, now)); err != nil {
			log.Printf("[engagement] daily challenge create failed: %v", err)
		}
	}
	if !hasWeekly {
		if err := e.store.AddChallenge(newWeeklyChallenge(e.rng, snap, now)); err != nil {
			log.Printf("[engagement] weekly challenge create failed: %v", err)
		}
	}
}

// checkAchievements fires catalog rules whose predicate holds and whose id
// is not yet unlocked.
func (e *Evaluator) checkAchievements(snap domain.Stats, now time.Time) {
	for _, def := range e.defs {
		if snap.HasAchievement(def.ID) || def.Predicate == nil || !def.Predicate(snap) {
			continue
		}
		newly, err := e.store.UnlockAchievement(def, now)
		if err != nil {
			log.Printf("[engagement] unlock %s failed: %v", def.ID, err)
			continue
		}
		if newly {
			log.Printf("[engagement] achievement unlocked: %s (%s)", def.Name, def.ID)
			e.notifier.AchievementUnlocked(def, now)
		}
	}
}

// updateChallenges recomputes progress for active challenges from the live
// counters and announces completions.
func (e *Evaluator) updateChallenges(snap domain.Stats, today string, now time.Time) {
	for _, c := range snap.Challenges {
		if c.ExpiredOn(today) {
			continue
		}
		progress := windowCount(snap, c.StartDate, c.EndDate)
		done, err := e.store.UpsertChallengeProgress(c.ID, progress, now)
		if err != nil {
			log.Printf("[engagement] challenge %s update failed: %v", c.ID, err)
			continue
		}
		if done != nil {
			log.Printf("[engagement] challenge completed: %s (%d/%d)", done.Title, done.Progress, done.Target)
			e.notifier.ChallengeCompleted(*done, now)
		}
	}
}

// updateGoals recomputes goal progress from the live counters per goal type.
func (e *Evaluator) updateGoals(snap domain.Stats, today string) {
	for _, g := range snap.Goals {
		var current int64
		switch g.Type {
		case domain.GoalTotal:
			current = snap.Total
		case domain.GoalStreak:
			current = int64(snap.CurrentStreak)
		case domain.GoalDaily:
			current = snap.CountOn(today)
		default:
			continue
		}
		if err := e.store.SetGoalProgress(g.ID, current); err != nil {
			log.Printf("[engagement] goal %s update failed: %v", g.ID, err)
		}
	}
}
