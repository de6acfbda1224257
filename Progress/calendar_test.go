package Progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestCurrentOnboardingDay(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name  string
		today time.Time
		want  int
	}{
		{name: "start date is day 1", today: start, want: 1},
		{name: "two weeks in", today: date(2024, 1, 15), want: 15},
		{name: "last day of the window", today: date(2024, 1, 30), want: 30},
		{name: "clamped after the window", today: date(2024, 3, 1), want: 30},
		{name: "clamped years later", today: date(2031, 6, 1), want: 30},
		{name: "future start date clamps to 1", today: date(2023, 12, 20), want: 1},
		{name: "day before start clamps to 1", today: date(2023, 12, 31), want: 1},
		{name: "time of day is ignored", today: time.Date(2024, 1, 2, 0, 30, 0, 0, time.UTC), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentOnboardingDay(start, tt.today))
		})
	}
}

func TestCurrentOnboardingDay_CalendarDays(t *testing.T) {
	// 23:00 on the start date to 01:00 the next day is one calendar day.
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	today := time.Date(2024, 1, 2, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, CurrentOnboardingDay(start, today))

	// Across a DST change the day count stays whole.
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	start = time.Date(2024, 3, 1, 9, 0, 0, 0, loc)
	today = time.Date(2024, 3, 15, 8, 0, 0, 0, loc)
	assert.Equal(t, 15, CurrentOnboardingDay(start, today))
}

func TestStartDateReadBackInAnotherLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	stored := date(2024, 1, 1)
	readBack := stored.In(loc) // 2023-12-31 19:00 EST
	today := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, CurrentOnboardingDay(stored, today), CurrentOnboardingDay(readBack, today))
	assert.Equal(t, 1, CurrentOnboardingDay(readBack, today))
	assert.Equal(t, 30, DaysRemaining(readBack, today))
	assert.True(t, HasStarted(readBack, today))
	assert.False(t, IsOnboardingWindowElapsed(readBack, date(2024, 1, 31)))
	assert.True(t, IsOnboardingWindowElapsed(readBack, date(2024, 2, 1)))

	east := stored.In(time.FixedZone("UTC+9", 9*60*60))
	assert.Equal(t, 1, CurrentOnboardingDay(east, today))
}

func TestCurrentOnboardingDay_AlwaysInRange(t *testing.T) {
	start := date(2024, 1, 1)
	for offset := -400; offset <= 400; offset += 7 {
		day := CurrentOnboardingDay(start, start.AddDate(0, 0, offset))
		assert.GreaterOrEqual(t, day, 1, "offset %d", offset)
		assert.LessOrEqual(t, day, 30, "offset %d", offset)
	}
}

func TestIsOnboardingWindowElapsed(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name  string
		today time.Time
		want  bool
	}{
		{name: "start date", today: start, want: false},
		{name: "day 30", today: date(2024, 1, 30), want: false},
		{name: "start plus 30 days is not after", today: date(2024, 1, 31), want: false},
		{name: "day after start plus 30", today: date(2024, 2, 1), want: true},
		{name: "months later", today: date(2024, 3, 1), want: true},
		{name: "before start", today: date(2023, 11, 1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOnboardingWindowElapsed(start, tt.today))
		})
	}
}

func TestDaysRemaining(t *testing.T) {
	start := date(2024, 1, 1)

	tests := []struct {
		name  string
		today time.Time
		want  int
	}{
		{name: "start date", today: start, want: 30},
		{name: "mid window", today: date(2024, 1, 15), want: 16},
		{name: "start plus 30 days", today: date(2024, 1, 31), want: 0},
		{name: "after the window", today: date(2024, 5, 1), want: 0},
		{name: "before start counts the extra days", today: date(2023, 12, 30), want: 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysRemaining(start, tt.today))
		})
	}
}

func TestDaysRemaining_ZeroOnceWindowEnds(t *testing.T) {
	start := date(2024, 2, 10)
	end := start.AddDate(0, 0, WindowDays)
	for offset := 0; offset < 100; offset++ {
		assert.Equal(t, 0, DaysRemaining(start, end.AddDate(0, 0, offset)))
	}
}

func TestHasStarted(t *testing.T) {
	start := date(2024, 1, 10)
	assert.False(t, HasStarted(start, date(2024, 1, 9)))
	assert.True(t, HasStarted(start, start))
	assert.True(t, HasStarted(start, date(2024, 2, 1)))
}

func TestFormatDate(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	assert.Equal(t, "Mar 05, 2024", FormatDate(at))
	assert.Equal(t, "Mar 05, 2024 14:07", FormatDateTime(at))
}
