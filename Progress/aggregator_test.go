package Progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"Onboarding/Models"
)

func dayPtr(n int) *int {
	return &n
}

// assigned builds an assigned task; day nil means an ad-hoc task.
func assigned(id uint, day *int, completed bool) Models.EmployeeTask {
	return Models.EmployeeTask{
		Model:     gorm.Model{ID: id},
		TaskID:    id,
		Task:      &Models.Task{Model: gorm.Model{ID: id}, DayNumber: day},
		Completed: completed,
	}
}

func ids(tasks []Models.EmployeeTask) []uint {
	result := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}

func TestCompletionPercentage(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Models.EmployeeTask
		want  int
	}{
		{name: "no tasks", tasks: nil, want: 0},
		{name: "empty slice", tasks: []Models.EmployeeTask{}, want: 0},
		{
			name: "three of five",
			tasks: []Models.EmployeeTask{
				assigned(1, dayPtr(1), true), assigned(2, dayPtr(1), true), assigned(3, dayPtr(2), true),
				assigned(4, dayPtr(3), false), assigned(5, dayPtr(4), false),
			},
			want: 60,
		},
		{
			name: "two of three rounds up",
			tasks: []Models.EmployeeTask{
				assigned(1, dayPtr(1), true), assigned(2, dayPtr(1), false), assigned(3, dayPtr(7), true),
			},
			want: 67,
		},
		{
			name: "one of three rounds down",
			tasks: []Models.EmployeeTask{
				assigned(1, dayPtr(1), true), assigned(2, dayPtr(1), false), assigned(3, dayPtr(7), false),
			},
			want: 33,
		},
		{
			name: "half rounds up",
			tasks: []Models.EmployeeTask{
				assigned(1, dayPtr(1), true), assigned(2, nil, false), assigned(3, nil, false), assigned(4, nil, false),
				assigned(5, nil, false), assigned(6, nil, false), assigned(7, nil, false), assigned(8, nil, false),
			},
			want: 13,
		},
		{
			name:  "ad-hoc tasks still count",
			tasks: []Models.EmployeeTask{assigned(1, nil, true), assigned(2, dayPtr(40), false)},
			want:  50,
		},
		{
			name:  "all done",
			tasks: []Models.EmployeeTask{assigned(1, dayPtr(1), true), assigned(2, dayPtr(30), true)},
			want:  100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompletionPercentage(tt.tasks))
		})
	}
}

func TestTasksForDay(t *testing.T) {
	tasks := []Models.EmployeeTask{
		assigned(3, dayPtr(2), false),
		assigned(1, dayPtr(1), true),
		assigned(5, nil, false),
		assigned(2, dayPtr(2), true),
		{Model: gorm.Model{ID: 9}, TaskID: 9}, // definition not joined
		assigned(4, dayPtr(2), false),
	}

	assert.Equal(t, []uint{3, 2, 4}, ids(TasksForDay(tasks, 2)))
	assert.Equal(t, []uint{1}, ids(TasksForDay(tasks, 1)))
	assert.Empty(t, TasksForDay(tasks, 30))
	assert.Empty(t, TasksForDay(nil, 1))
}

func TestTasksForCurrentDay(t *testing.T) {
	start := date(2024, 1, 1)
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(1), false),
		assigned(2, dayPtr(15), false),
		assigned(3, dayPtr(30), false),
		assigned(4, dayPtr(15), true),
	}

	assert.Equal(t, []uint{1}, ids(TasksForCurrentDay(tasks, start, start)))
	assert.Equal(t, []uint{2, 4}, ids(TasksForCurrentDay(tasks, start, date(2024, 1, 15))))
	assert.Equal(t, []uint{3}, ids(TasksForCurrentDay(tasks, start, date(2024, 3, 1))))
	assert.Equal(t, []uint{1}, ids(TasksForCurrentDay(tasks, start, date(2023, 6, 1))))
}

func TestWeeklyBuckets(t *testing.T) {
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(1), true),
		assigned(2, dayPtr(1), false),
		assigned(3, dayPtr(7), true),
	}

	buckets := WeeklyBuckets(tasks)
	require.Len(t, buckets, 5)
	assert.Equal(t, WeekBucket{Week: 1, StartDay: 1, EndDay: 6, Completed: 1, Total: 2, Percentage: 50}, buckets[0])
	assert.Equal(t, WeekBucket{Week: 2, StartDay: 7, EndDay: 12, Completed: 1, Total: 1, Percentage: 100}, buckets[1])
	for i, bucket := range buckets[2:] {
		assert.Equal(t, 0, bucket.Total, "week %d", i+3)
		assert.Equal(t, 0, bucket.Percentage, "week %d", i+3)
	}
	assert.Equal(t, 25, buckets[4].StartDay)
	assert.Equal(t, 30, buckets[4].EndDay)
}

func TestWeeklyBuckets_Boundaries(t *testing.T) {
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(6), true),
		assigned(2, dayPtr(12), false),
		assigned(3, dayPtr(13), true),
		assigned(4, dayPtr(24), true),
		assigned(5, dayPtr(25), false),
		assigned(6, dayPtr(30), true),
	}

	buckets := WeeklyBuckets(tasks)
	totals := []int{}
	for _, bucket := range buckets {
		totals = append(totals, bucket.Total)
	}
	assert.Equal(t, []int{1, 1, 1, 1, 2}, totals)
	assert.Equal(t, 50, buckets[4].Percentage)
}

func TestWeeklyBuckets_TotalsMatchScheduledTasks(t *testing.T) {
	tasks := []Models.EmployeeTask{
		assigned(1, nil, true),
		assigned(2, dayPtr(0), false),
		assigned(3, dayPtr(31), true),
		assigned(4, dayPtr(-3), false),
		{Model: gorm.Model{ID: 5}},
	}
	scheduled := 0
	for day := 1; day <= 30; day++ {
		tasks = append(tasks, assigned(uint(100+day), dayPtr(day), day%3 == 0))
		scheduled++
	}

	buckets := WeeklyBuckets(tasks)
	require.Len(t, buckets, 5)
	sum := 0
	for _, bucket := range buckets {
		sum += bucket.Total
		assert.Equal(t, 6, bucket.Total)
		assert.Equal(t, 2, bucket.Completed)
		assert.Equal(t, 33, bucket.Percentage)
	}
	assert.Equal(t, scheduled, sum)
}

func TestWeeklyBuckets_Empty(t *testing.T) {
	buckets := WeeklyBuckets(nil)
	require.Len(t, buckets, 5)
	for i, bucket := range buckets {
		assert.Equal(t, i+1, bucket.Week)
		assert.Zero(t, bucket.Total)
	}
}

func TestDailyCompletionCounts(t *testing.T) {
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(1), true),
		assigned(2, dayPtr(1), true),
		assigned(3, dayPtr(1), false),
		assigned(4, dayPtr(30), true),
		assigned(5, nil, true),
		assigned(6, dayPtr(31), true),
		assigned(7, dayPtr(10), false),
	}

	counts := DailyCompletionCounts(tasks)
	require.Len(t, counts, 30)
	assert.Equal(t, 2, counts[0])
	assert.Equal(t, 1, counts[29])
	assert.Equal(t, 0, counts[9])

	total := 0
	for _, count := range counts {
		total += count
	}
	assert.Equal(t, 3, total)
	assert.Len(t, DailyCompletionCounts(nil), 30)
}

func TestUpcomingTasks(t *testing.T) {
	start := date(2024, 1, 1)
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(5), false),
		assigned(2, dayPtr(6), false),
		assigned(3, dayPtr(8), false),
		assigned(4, dayPtr(9), true),
		assigned(5, dayPtr(5), false),
		assigned(6, nil, false),
	}

	today := date(2024, 1, 5) // day 5
	assert.Equal(t, []uint{2, 3}, ids(UpcomingTasks(tasks, start, today, 3)))
	assert.Equal(t, []uint{2, 3, 4}, ids(UpcomingTasks(tasks, start, today, 4)))
	assert.Empty(t, UpcomingTasks(tasks, start, today, 0))
	assert.Empty(t, UpcomingTasks(tasks, start, date(2024, 3, 1), 3))
}

func TestOverdueTasks(t *testing.T) {
	start := date(2024, 1, 1)
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(1), false),
		assigned(2, dayPtr(2), true),
		assigned(3, dayPtr(4), false),
		assigned(4, dayPtr(5), false),
		assigned(5, nil, false),
	}

	assert.Equal(t, []uint{1, 3}, ids(OverdueTasks(tasks, start, date(2024, 1, 5))))
	assert.Empty(t, OverdueTasks(tasks, start, start))
}

func TestAggregatorsDoNotMutateInput(t *testing.T) {
	completedAt := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	tasks := []Models.EmployeeTask{
		assigned(1, dayPtr(2), false),
		assigned(2, dayPtr(1), true),
		assigned(3, nil, true),
		assigned(4, dayPtr(8), true),
	}
	tasks[1].CompletedAt = &completedAt

	before := make([]Models.EmployeeTask, len(tasks))
	copy(before, tasks)
	start := date(2024, 1, 1)
	today := date(2024, 1, 9)

	first := []interface{}{
		CompletionPercentage(tasks),
		TasksForDay(tasks, 2),
		TasksForCurrentDay(tasks, start, today),
		WeeklyBuckets(tasks),
		DailyCompletionCounts(tasks),
		Timeline(tasks, start, today),
		RecentCompletions(tasks, 5),
	}
	second := []interface{}{
		CompletionPercentage(tasks),
		TasksForDay(tasks, 2),
		TasksForCurrentDay(tasks, start, today),
		WeeklyBuckets(tasks),
		DailyCompletionCounts(tasks),
		Timeline(tasks, start, today),
		RecentCompletions(tasks, 5),
	}

	assert.Equal(t, first, second)
	assert.Equal(t, before, tasks)
}
