package engagement

import (
	"fmt"
	"log"
	"time"

	"github.com/keybeat-app/keybeat/internal/domain"
	"github.com/keybeat-app/keybeat/internal/infra/sqlite"
)

// Notifier emits one-shot engagement notifications: durable log first, live
// publish second. Volume is capped per calendar day; the unlock or
// completion behind a dropped notification always stands.
type Notifier struct {
	db     *sqlite.DB
	pub    domain.Publisher
	policy domain.NotificationPolicy
}

// NewNotifier creates a notifier with the default policy. pub may be nil
// when no live consumers exist.
func NewNotifier(db *sqlite.DB, pub domain.Publisher) *Notifier {
	return &Notifier{db: db, pub: pub, policy: domain.DefaultNotificationPolicy()}
}

// NewNotifierWithPolicy creates a notifier with a custom policy.
func NewNotifierWithPolicy(db *sqlite.DB, pub domain.Publisher, policy domain.NotificationPolicy) *Notifier {
	return &Notifier{db: db, pub: pub, policy: policy}
}

// AchievementUnlocked announces a newly unlocked achievement.
func (n *Notifier) AchievementUnlocked(def domain.AchievementDef, at time.Time) {
	n.emit(domain.Notification{
		Kind:      domain.NotifyAchievement,
		Title:     "Achievement Unlocked",
		Body:      fmt.Sprintf("%s %s (+%d XP)", def.Icon, def.Name, def.RewardXP),
		CreatedAt: at,
	})
}

// ChallengeCompleted announces a completed challenge.
func (n *Notifier) ChallengeCompleted(c domain.Challenge, at time.Time) {
	n.emit(domain.Notification{
		Kind:      domain.NotifyChallenge,
		Title:     "Challenge Complete",
		Body:      fmt.Sprintf("%s: %d keystrokes (+%d XP)", c.Title, c.Target, c.RewardXP),
		CreatedAt: at,
	})
}

// emit applies the per-day cap, appends to the durable log, and publishes.
func (n *Notifier) emit(notif domain.Notification) {
	day := domain.DayKeyOf(notif.CreatedAt)
	count, err := n.db.NotificationCountOn(day)
	if err != nil {
		log.Printf("[engagement] notification count failed: %v", err)
		return
	}
	if count >= n.policy.MaxPerDay {
		log.Printf("[engagement] daily notification cap (%d) reached, dropping %q", n.policy.MaxPerDay, notif.Title)
		return
	}
	seq, err := n.db.InsertNotification(notif)
	if err != nil {
		log.Printf("[engagement] notification insert failed: %v", err)
		return
	}
	notif.Seq = seq
	if n.pub != nil {
		n.pub.PublishNotification(notif)
	}
}
