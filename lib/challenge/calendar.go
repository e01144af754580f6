// Package challenge holds the pure calendar arithmetic of the 52-week savings
// challenge: week numbering, reminder-day policy and calendar-day identity.
//
// All functions read the calendar fields of the supplied time in its own
// location. Callers pass server-local time, so day boundaries follow the
// server's wall clock for both the reminder-day check and per-day dedup.
package challenge

import "time"

// Weeks is the fixed length of the challenge calendar.
const Weeks = 52

const week = 7 * 24 * time.Hour

// CurrentWeekNumber returns the 1-based challenge week for t, counting whole
// weeks elapsed since January 1 of t's year. The result is always clamped
// into [1, Weeks] no matter how far into (or before) the year t falls.
func CurrentWeekNumber(t time.Time) int {
	startOfYear := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	n := int(t.Sub(startOfYear)/week) + 1
	return clampWeekNumber(n)
}

func clampWeekNumber(n int) int {
	if n < 1 {
		return 1
	}
	if n > Weeks {
		return Weeks
	}
	return n
}

// DateKey renders t as YYYY-MM-DD. The key is stable across times of day and
// doubles as the dedup key and the notification payload's day marker.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsReminderDay reports whether t falls on a Friday, Saturday or Sunday.
func IsReminderDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return true
	default:
		return false
	}
}

// IsSameDay reports whether a and b fall on the same calendar day.
func IsSameDay(a, b time.Time) bool {
	return DateKey(a) == DateKey(b)
}
