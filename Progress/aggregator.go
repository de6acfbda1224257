package Progress

import (
	"time"

	"Onboarding/Models"
)

// WeekBucket summarises one 6-day week of the onboarding window.
type WeekBucket struct {
	Week       int `json:"week"`
	StartDay   int `json:"start_day"`
	EndDay     int `json:"end_day"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// percentage rounds 100*part/whole half up. Zero when whole is zero.
func percentage(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}

// scheduledDay returns the day of the task when it lies on the 30-day grid.
func scheduledDay(task Models.EmployeeTask) (int, bool) {
	day, ok := task.DayNumber()
	if !ok || day < 1 || day > WindowDays {
		return 0, false
	}
	return day, true
}

// CompletionPercentage returns round(100 * completed / all), 0 for no tasks.
func CompletionPercentage(tasks []Models.EmployeeTask) int {
	completed := 0
	for _, task := range tasks {
		if task.Completed {
			completed++
		}
	}
	return percentage(completed, len(tasks))
}

// TasksForDay keeps the tasks scheduled for dayNumber, in input order.
func TasksForDay(tasks []Models.EmployeeTask, dayNumber int) []Models.EmployeeTask {
	result := []Models.EmployeeTask{}
	for _, task := range tasks {
		if day, ok := task.DayNumber(); ok && day == dayNumber {
			result = append(result, task)
		}
	}
	return result
}

// TasksForCurrentDay keeps the tasks scheduled for today's onboarding day.
func TasksForCurrentDay(tasks []Models.EmployeeTask, startDate, today time.Time) []Models.EmployeeTask {
	return TasksForDay(tasks, CurrentOnboardingDay(startDate, today))
}

// WeeklyBuckets splits the window into weeks 1-6, 7-12, 13-18, 19-24 and 25-30.
// Tasks without a day on the grid are counted in no bucket.
func WeeklyBuckets(tasks []Models.EmployeeTask) []WeekBucket {
	buckets := make([]WeekBucket, Weeks)
	for i := range buckets {
		buckets[i] = WeekBucket{
			Week:     i + 1,
			StartDay: i*WeekDays + 1,
			EndDay:   (i + 1) * WeekDays,
		}
	}

	for _, task := range tasks {
		day, ok := scheduledDay(task)
		if !ok {
			continue
		}
		bucket := &buckets[(day-1)/WeekDays]
		bucket.Total++
		if task.Completed {
			bucket.Completed++
		}
	}

	for i := range buckets {
		buckets[i].Percentage = percentage(buckets[i].Completed, buckets[i].Total)
	}
	return buckets
}

// DailyCompletionCounts returns, for days 1..30, how many tasks scheduled on
// that day are completed. Index 0 is day 1.
func DailyCompletionCounts(tasks []Models.EmployeeTask) []int {
	counts := make([]int, WindowDays)
	for _, task := range tasks {
		day, ok := scheduledDay(task)
		if ok && task.Completed {
			counts[day-1]++
		}
	}
	return counts
}

// UpcomingTasks keeps the tasks scheduled within the next days after today's
// onboarding day.
func UpcomingTasks(tasks []Models.EmployeeTask, startDate, today time.Time, days int) []Models.EmployeeTask {
	current := CurrentOnboardingDay(startDate, today)
	result := []Models.EmployeeTask{}
	for _, task := range tasks {
		day, ok := task.DayNumber()
		if ok && day > current && day <= current+days {
			result = append(result, task)
		}
	}
	return result
}

// OverdueTasks keeps the open tasks scheduled before today's onboarding day.
func OverdueTasks(tasks []Models.EmployeeTask, startDate, today time.Time) []Models.EmployeeTask {
	current := CurrentOnboardingDay(startDate, today)
	result := []Models.EmployeeTask{}
	for _, task := range tasks {
		day, ok := scheduledDay(task)
		if ok && !task.Completed && day < current {
			result = append(result, task)
		}
	}
	return result
}

// CountCompleted returns completed and pending counts.
func CountCompleted(tasks []Models.EmployeeTask) (completed, pending int) {
	for _, task := range tasks {
		if task.Completed {
			completed++
		} else {
			pending++
		}
	}
	return completed, pending
}
