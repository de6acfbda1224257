// Package Progress derives onboarding day numbers and completion figures from
// an employee's start date and assigned tasks. Every function is pure: "today"
// is always passed in and inputs are never modified.
package Progress

import "time"

const (
	// WindowDays is the length of the onboarding window.
	WindowDays = 30
	// WeekDays is the length of a timeline week. The 30-day window is split
	// into five fixed weeks, independent of calendar weekdays.
	WeekDays = 6
	// Weeks is the number of timeline weeks.
	Weeks = WindowDays / WeekDays
)

// dateOnly keeps the calendar date of t in its own location.
func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from the start date to today
// (negative when today is before the start). Start dates are calendar dates
// held as UTC midnight, so they are read in UTC whatever location the
// database driver hands them back in; today keeps its own location.
func daysBetween(startDate, today time.Time) int {
	return int(dateOnly(today).Sub(dateOnly(startDate.UTC())).Hours() / 24)
}

// CurrentOnboardingDay returns the 1-based onboarding day for today, clamped
// to [1, 30].
func CurrentOnboardingDay(startDate, today time.Time) int {
	day := daysBetween(startDate, today) + 1
	if day < 1 {
		return 1
	}
	if day > WindowDays {
		return WindowDays
	}
	return day
}

// IsOnboardingWindowElapsed reports whether today is strictly after
// startDate + 30 days.
func IsOnboardingWindowElapsed(startDate, today time.Time) bool {
	return daysBetween(startDate, today) > WindowDays
}

// DaysRemaining returns the whole days left until startDate + 30 days, never
// negative.
func DaysRemaining(startDate, today time.Time) int {
	remaining := WindowDays - daysBetween(startDate, today)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasStarted reports whether today is on or after the start date.
func HasStarted(startDate, today time.Time) bool {
	return daysBetween(startDate, today) >= 0
}

func FormatDate(t time.Time) string {
	return t.Format("Jan 02, 2006")
}

func FormatDateTime(t time.Time) string {
	return t.Format("Jan 02, 2006 15:04")
}
