package Progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	emp := employee(7, "ada", false,
		assigned(1, dayPtr(1), true),
		assigned(2, dayPtr(1), false),
		assigned(3, dayPtr(7), true),
		assigned(4, dayPtr(8), false),
		assigned(5, dayPtr(9), false),
	)

	snapshot := NewSnapshot(emp, emp.EmployeeTasks, date(2024, 1, 7))
	assert.Equal(t, 7, snapshot.CurrentDay)
	assert.True(t, snapshot.Started)
	assert.False(t, snapshot.WindowElapsed)
	assert.Equal(t, 24, snapshot.DaysRemaining)
	assert.Equal(t, 40, snapshot.Percentage)
	assert.Equal(t, 2, snapshot.CompletedTasks)
	assert.Equal(t, 3, snapshot.PendingTasks)
	assert.Equal(t, []uint{3}, ids(snapshot.TodayTasks))
	assert.Equal(t, []uint{4, 5}, ids(snapshot.UpcomingTasks))
	assert.Equal(t, []uint{2}, ids(snapshot.OverdueTasks))
	require.Len(t, snapshot.Weekly, 5)
	assert.Equal(t, 50, snapshot.Weekly[0].Percentage)
	assert.Len(t, snapshot.DailyCompletion, 30)
	assert.Len(t, snapshot.Timeline, 5)
	assert.Len(t, snapshot.Recent, 2)
	assert.False(t, snapshot.ReviewDue)
}

func TestNewSnapshot_BeforeStart(t *testing.T) {
	emp := employee(1, "ada", false, assigned(1, dayPtr(1), false))

	snapshot := NewSnapshot(emp, emp.EmployeeTasks, date(2023, 12, 25))
	assert.Equal(t, 1, snapshot.CurrentDay)
	assert.False(t, snapshot.Started)
	assert.Empty(t, snapshot.OverdueTasks)
}

func TestReviewDue(t *testing.T) {
	emp := employee(1, "ada", false)
	assert.False(t, ReviewDue(emp, date(2024, 1, 31)))
	assert.True(t, ReviewDue(emp, date(2024, 2, 1)))

	emp.OnboardingCompleted = true
	assert.False(t, ReviewDue(emp, date(2024, 2, 1)))
}
