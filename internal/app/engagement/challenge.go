package engagement

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/keybeat-app/keybeat/internal/domain"
)

// Challenge templates. Targets scale from the trailing activity average so a
// light typist and a heavy typist both get a reachable stretch; the floor
// keeps day one meaningful.
var dailyTemplates = []domain.ChallengeTemplate{
	{Type: domain.ChallengeDaily, Title: "Warm-Up", Factor: 0.8, Floor: 500, RewardXP: 100},
	{Type: domain.ChallengeDaily, Title: "Daily Push", Factor: 1.2, Floor: 1000, RewardXP: 150},
	{Type: domain.ChallengeDaily, Title: "Overdrive", Factor: 1.5, Floor: 2000, RewardXP: 250},
}

var weeklyTemplates = []domain.ChallengeTemplate{
	{Type: domain.ChallengeWeekly, Title: "Steady Week", Factor: 1.0, Floor: 5000, RewardXP: 500},
	{Type: domain.ChallengeWeekly, Title: "Strong Week", Factor: 1.25, Floor: 10000, RewardXP: 750},
}

// newDailyChallenge picks a random daily template and parameterizes its
// target from the trailing 7-day average.
func newDailyChallenge(rng *rand.Rand, s domain.Stats, now time.Time) domain.Challenge {
	tmpl := dailyTemplates[rng.Intn(len(dailyTemplates))]
	today := domain.DayKeyOf(now)
	return domain.Challenge{
		ID:        uuid.NewString(),
		Type:      domain.ChallengeDaily,
		Title:     tmpl.Title,
		Target:    scaleTarget(tmpl, trailingDailyAverage(s, today, 7)),
		StartDate: today,
		EndDate:   today,
		RewardXP:  tmpl.RewardXP,
	}
}

// newWeeklyChallenge picks a random weekly template; the window runs Monday
// through Sunday and the target comes from the trailing 4-week average.
func newWeeklyChallenge(rng *rand.Rand, s domain.Stats, now time.Time) domain.Challenge {
	tmpl := weeklyTemplates[rng.Intn(len(weeklyTemplates))]
	start, end := weekWindow(now)
	return domain.Challenge{
		ID:        uuid.NewString(),
		Type:      domain.ChallengeWeekly,
		Title:     tmpl.Title,
		Target:    scaleTarget(tmpl, trailingWeeklyAverage(s, start)),
		StartDate: start,
		EndDate:   end,
		RewardXP:  tmpl.RewardXP,
	}
}

func scaleTarget(tmpl domain.ChallengeTemplate, avg int64) int64 {
	target := int64(tmpl.Factor * float64(avg))
	if target < tmpl.Floor {
		return tmpl.Floor
	}
	return target
}

// trailingDailyAverage averages the n calendar days before today. Untyped
// days count as zero.
func trailingDailyAverage(s domain.Stats, today string, n int) int64 {
	end, err := domain.ParseDayKey(today)
	if err != nil {
		return 0
	}
	var sum int64
	for i := 1; i <= n; i++ {
		sum += s.CountOn(domain.DayKeyOf(end.AddDate(0, 0, -i)))
	}
	return sum / int64(n)
}

// trailingWeeklyAverage averages the 4 weeks before the week starting at
// weekStart.
func trailingWeeklyAverage(s domain.Stats, weekStart string) int64 {
	start, err := domain.ParseDayKey(weekStart)
	if err != nil {
		return 0
	}
	var sum int64
	for i := 1; i <= 28; i++ {
		sum += s.CountOn(domain.DayKeyOf(start.AddDate(0, 0, -i)))
	}
	return sum / 4
}

// weekWindow returns the Monday and Sunday day keys of the week holding now.
func weekWindow(now time.Time) (start, end string) {
	daysBack := (int(now.Weekday()) + 6) % 7 // Monday = 0
	monday := now.AddDate(0, 0, -daysBack)
	return domain.DayKeyOf(monday), domain.DayKeyOf(monday.AddDate(0, 0, 6))
}

// windowCount sums daily activity across an inclusive day-key window.
func windowCount(s domain.Stats, start, end string) int64 {
	t, err := domain.ParseDayKey(start)
	if err != nil {
		return 0
	}
	var sum int64
	for day := start; day <= end; {
		sum += s.CountOn(day)
		t = t.AddDate(0, 0, 1)
		day = domain.DayKeyOf(t)
	}
	return sum
}
