package domain

import "time"

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory groups achievement rules by theme.
type AchievementCategory string

const (
	CatMilestone  AchievementCategory = "milestone"
	CatStreak     AchievementCategory = "streak"
	CatTimeWindow AchievementCategory = "time_window"
	CatSpecial    AchievementCategory = "special"
)

// AchievementDef defines a single rule in the fixed catalog.
type AchievementDef struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Category  AchievementCategory  `json:"category"`
	Icon      string               `json:"icon"`
	RewardXP  int64                `json:"reward_xp"`
	Predicate func(Stats) bool     `json:"-"`
}

// Achievement records an unlocked rule. An id appears at most once and is
// never removed.
type Achievement struct {
	ID         string              `json:"id"`
	Category   AchievementCategory `json:"category"`
	UnlockedAt time.Time           `json:"unlocked_at"`
}

// ─── Challenge Types ────────────────────────────────────────────────────────

// ChallengeType is the challenge window kind.
type ChallengeType string

const (
	ChallengeDaily  ChallengeType = "daily"
	ChallengeWeekly ChallengeType = "weekly"
)

// Challenge is a time-boxed target generated from a template. Completed
// flips false to true exactly once and grants RewardXP at that transition.
// StartDate and EndDate are inclusive day keys.
type Challenge struct {
	ID        string        `json:"id"`
	Type      ChallengeType `json:"type"`
	Title     string        `json:"title"`
	Target    int64         `json:"target"`
	Progress  int64         `json:"progress"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Completed bool          `json:"completed"`
	RewardXP  int64         `json:"reward_xp"`
}

// ExpiredOn reports whether the challenge window has passed on the given day.
func (c Challenge) ExpiredOn(day string) bool {
	return day > c.EndDate
}

// ProgressPct returns completion percentage (0-100).
func (c Challenge) ProgressPct() float64 {
	if c.Target <= 0 {
		return 100.0
	}
	pct := float64(c.Progress) / float64(c.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ChallengeTemplate defines the pool of possible challenges. Target is
// parameterized at creation: Factor times a trailing average, floored.
type ChallengeTemplate struct {
	Type     ChallengeType `json:"type"`
	Title    string        `json:"title"`
	Factor   float64       `json:"factor"`
	Floor    int64         `json:"floor"`
	RewardXP int64         `json:"reward_xp"`
}

// ─── Goal Types ─────────────────────────────────────────────────────────────

// GoalType selects which live counter a goal tracks.
type GoalType string

const (
	GoalTotal  GoalType = "total"  // lifetime keystrokes
	GoalStreak GoalType = "streak" // current streak days
	GoalDaily  GoalType = "daily"  // keystrokes in a single day
)

// Goal is a user-defined target. Never auto-expired; Current is recomputed
// from live counters on each evaluation pass.
type Goal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        GoalType  `json:"type"`
	Target      int64     `json:"target"`
	Current     int64     `json:"current"`
	TargetDate  string    `json:"target_date,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProgressPct returns completion percentage (0-100).
func (g Goal) ProgressPct() float64 {
	if g.Target <= 0 {
		return 100.0
	}
	pct := float64(g.Current) / float64(g.Target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return pct
}

// ─── Progression ────────────────────────────────────────────────────────────

// MaxLevel caps the level curve.
const MaxLevel = 100

// LevelForXP derives the level from XP: floor(sqrt(xp/1000)) + 1, capped.
// Level is never stored independently of this recompute path.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	level := 1
	// Integer search avoids float edge cases at the 1000*n^2 boundaries.
	for level < MaxLevel && xp >= XPForLevel(level+1) {
		level++
	}
	return level
}

// XPForLevel returns the minimum XP for a level: 1000*(level-1)^2.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return 1000 * n * n
}

// LevelProgress returns percent progress (0-100) from the current level
// toward the next. At MaxLevel it is always 100.
func LevelProgress(xp int64) float64 {
	level := LevelForXP(xp)
	if level >= MaxLevel {
		return 100.0
	}
	lo := XPForLevel(level)
	hi := XPForLevel(level + 1)
	return float64(xp-lo) / float64(hi-lo) * 100.0
}

// XPPerEvent returns the XP granted for one accepted event: a base point
// plus a streak bonus of one point per 7 consecutive days.
func XPPerEvent(currentStreak int) int64 {
	if currentStreak < 0 {
		currentStreak = 0
	}
	return 1 + int64(currentStreak/7)
}

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPEvents      XPSource = "events"      // batched per flush
	XPAchievement XPSource = "achievement" // one-time unlock reward
	XPChallenge   XPSource = "challenge"   // one-time completion reward
	XPMerge       XPSource = "merge"       // reconciliation adjustment
)

// XPEntry is one append-only ledger row. Balance equals the stats XP after
// the entry was applied.
type XPEntry struct {
	Seq       int64     `json:"seq"`
	Delta     int64     `json:"delta"`
	Source    XPSource  `json:"source"`
	Ref       string    `json:"ref,omitempty"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationKind categorizes one-shot notifications.
type NotificationKind string

const (
	NotifyAchievement NotificationKind = "achievement"
	NotifyChallenge   NotificationKind = "challenge"
)

// Notification is a user-facing one-shot message.
type Notification struct {
	Seq       int64            `json:"seq"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationPolicy bounds notification volume.
type NotificationPolicy struct {
	MaxPerDay int `json:"max_per_day"`
}

// DefaultNotificationPolicy allows at most 10 notifications per calendar day.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{MaxPerDay: 10}
}
