package domain

import "time"

// Replica is one device's complete copy of a user's statistics as stored in
// the remote replica store. One row per (UserID, DeviceID); owned exclusively
// by that device until merged.
type Replica struct {
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`

	TotalKeystrokes  int64     `json:"total_keystrokes"`
	DailyKeystrokes  DailyMap  `json:"daily_keystrokes"`
	HourlyKeystrokes HourlyMap `json:"hourly_keystrokes"`

	Achievements []Achievement `json:"achievements"`
	Challenges   []Challenge   `json:"challenges"`
	Goals        []Goal        `json:"goals"`

	UserLevel       int    `json:"user_level"`
	UserXP          int64  `json:"user_xp"`
	PersonalityType string `json:"personality_type"`

	StreakDays     int    `json:"streak_days"`
	LongestStreak  int    `json:"longest_streak"`
	FirstUsedDate  string `json:"first_used_date"`
	LastActiveDate string `json:"last_active_date"`

	LastUpdated time.Time `json:"last_updated"`
}

// Replica converts the snapshot into this device's replica row. Session and
// goal settings are device-local and never leave the device.
func (s Stats) Replica(userID, deviceID, deviceName string) Replica {
	c := s.Clone()
	return Replica{
		UserID:           userID,
		DeviceID:         deviceID,
		DeviceName:       deviceName,
		TotalKeystrokes:  c.Total,
		DailyKeystrokes:  c.Daily,
		HourlyKeystrokes: c.Hourly,
		Achievements:     c.Achievements,
		Challenges:       c.Challenges,
		Goals:            c.Goals,
		UserLevel:        c.Level,
		UserXP:           c.XP,
		PersonalityType:  c.PersonalityType,
		StreakDays:       c.CurrentStreak,
		LongestStreak:    c.LongestStreak,
		FirstUsedDate:    c.FirstUsedDate,
		LastActiveDate:   c.LastActiveDate,
	}
}

// Stats converts a replica back into a snapshot. Session, DailyGoal and
// WeeklyGoal are zero: the caller keeps its own local values for those.
func (r Replica) Stats() Stats {
	return Stats{
		Total:           r.TotalKeystrokes,
		Daily:           r.DailyKeystrokes.Clone(),
		Hourly:          r.HourlyKeystrokes.Clone(),
		FirstUsedDate:   r.FirstUsedDate,
		LastActiveDate:  r.LastActiveDate,
		CurrentStreak:   r.StreakDays,
		LongestStreak:   r.LongestStreak,
		XP:              r.UserXP,
		Level:           r.UserLevel,
		PersonalityType: r.PersonalityType,
		Achievements:    append([]Achievement(nil), r.Achievements...),
		Challenges:      append([]Challenge(nil), r.Challenges...),
		Goals:           append([]Goal(nil), r.Goals...),
	}
}
