package domain

// Personality labels derived from typing patterns.
const (
	PersonalityEarlyBird = "Early Bird"
	PersonalityNightOwl  = "Night Owl"
	PersonalitySprinter  = "Sprinter"
	PersonalityMetronome = "Metronome"
	PersonalityBalanced  = "Balanced"
)

// DerivePersonality classifies the typing pattern from the full hourly
// history. today anchors the recent-activity window. Rules are checked in
// order and the first match wins:
//
//   - Early Bird: ≥40% of all activity falls in hours [5,12)
//   - Night Owl:  ≥40% of all activity falls in hours [21,24) or [0,4)
//   - Sprinter:   the single busiest hour of the day holds ≥50% of activity
//   - Metronome:  active on ≥80% of the last 14 calendar days
//   - Balanced:   everything else, including an empty history
func DerivePersonality(s *Stats, today string) string {
	var byHour HourCounts
	var total int64
	for _, hours := range s.Hourly {
		for h, n := range hours {
			byHour[h] += n
			total += n
		}
	}
	if total == 0 {
		return PersonalityBalanced
	}

	var morning, night, peak int64
	for h, n := range byHour {
		if h >= 5 && h < 12 {
			morning += n
		}
		if h >= 21 || h < 4 {
			night += n
		}
		if n > peak {
			peak = n
		}
	}

	if morning*100 >= total*40 {
		return PersonalityEarlyBird
	}
	if night*100 >= total*40 {
		return PersonalityNightOwl
	}
	if peak*100 >= total*50 {
		return PersonalitySprinter
	}
	if activeDaysInWindow(s, today, 14)*100 >= 14*80 {
		return PersonalityMetronome
	}
	return PersonalityBalanced
}

// activeDaysInWindow counts days with recorded activity among the last n
// calendar days ending at today (inclusive).
func activeDaysInWindow(s *Stats, today string, n int) int {
	end, err := ParseDayKey(today)
	if err != nil {
		return 0
	}
	active := 0
	for i := 0; i < n; i++ {
		day := DayKeyOf(end.AddDate(0, 0, -i))
		if s.CountOn(day) > 0 {
			active++
		}
	}
	return active
}
