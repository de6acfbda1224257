package Progress

import (
	"time"

	"golang.org/x/exp/slices"

	"Onboarding/Models"
)

type TimelineDay struct {
	Day       int  `json:"day"`
	TaskCount int  `json:"task_count"`
	HasTasks  bool `json:"has_tasks"`
	// Completed is true only for days that have tasks, all of them done.
	Completed bool `json:"completed"`
	Current   bool `json:"current"`
	Past      bool `json:"past"`
}

type TimelineWeek struct {
	Week int           `json:"week"`
	Days []TimelineDay `json:"days"`
}

// Timeline lays the window out as 5 weeks of 6 days.
func Timeline(tasks []Models.EmployeeTask, startDate, today time.Time) []TimelineWeek {
	current := CurrentOnboardingDay(startDate, today)

	var total, done [WindowDays]int
	for _, task := range tasks {
		day, ok := scheduledDay(task)
		if !ok {
			continue
		}
		total[day-1]++
		if task.Completed {
			done[day-1]++
		}
	}

	weeks := make([]TimelineWeek, Weeks)
	for w := range weeks {
		days := make([]TimelineDay, WeekDays)
		for d := range days {
			day := w*WeekDays + d + 1
			days[d] = TimelineDay{
				Day:       day,
				TaskCount: total[day-1],
				HasTasks:  total[day-1] > 0,
				Completed: total[day-1] > 0 && done[day-1] == total[day-1],
				Current:   day == current,
				Past:      day < current,
			}
		}
		weeks[w] = TimelineWeek{Week: w + 1, Days: days}
	}
	return weeks
}

// RecentCompletions returns up to limit completed tasks, latest completion
// first. Tasks completed at the same instant keep their input order.
func RecentCompletions(tasks []Models.EmployeeTask, limit int) []Models.EmployeeTask {
	completed := []Models.EmployeeTask{}
	for _, task := range tasks {
		if task.Completed {
			completed = append(completed, task)
		}
	}

	slices.SortStableFunc(completed, func(a, b Models.EmployeeTask) int {
		return completedAt(b).Compare(completedAt(a))
	})

	if limit >= 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed
}

func completedAt(task Models.EmployeeTask) time.Time {
	if task.CompletedAt == nil {
		return time.Time{}
	}
	return *task.CompletedAt
}
