package Progress

import (
	"time"

	"Onboarding/Models"
)

const (
	DefaultUpcomingDays = 3
	RecentLimit         = 5
)

// Snapshot is everything the employee dashboard shows for one point in time.
type Snapshot struct {
	CurrentDay      int                   `json:"current_day"`
	Started         bool                  `json:"started"`
	WindowElapsed   bool                  `json:"window_elapsed"`
	DaysRemaining   int                   `json:"days_remaining"`
	Completed       bool                  `json:"onboarding_completed"`
	Percentage      int                   `json:"percentage"`
	CompletedTasks  int                   `json:"completed_tasks"`
	PendingTasks    int                   `json:"pending_tasks"`
	TodayTasks      []Models.EmployeeTask `json:"today_tasks"`
	UpcomingTasks   []Models.EmployeeTask `json:"upcoming_tasks"`
	OverdueTasks    []Models.EmployeeTask `json:"overdue_tasks"`
	Weekly          []WeekBucket          `json:"weekly"`
	DailyCompletion []int                 `json:"daily_completion"`
	Timeline        []TimelineWeek        `json:"timeline"`
	Recent          []Models.EmployeeTask `json:"recent_completions"`
	ReviewDue       bool                  `json:"review_due"`
}

// NewSnapshot computes the dashboard figures for an employee's tasks.
func NewSnapshot(employee Models.Employee, tasks []Models.EmployeeTask, today time.Time) Snapshot {
	completed, pending := CountCompleted(tasks)
	elapsed := IsOnboardingWindowElapsed(employee.StartDate, today)
	return Snapshot{
		CurrentDay:      CurrentOnboardingDay(employee.StartDate, today),
		Started:         HasStarted(employee.StartDate, today),
		WindowElapsed:   elapsed,
		DaysRemaining:   DaysRemaining(employee.StartDate, today),
		Completed:       employee.OnboardingCompleted,
		Percentage:      CompletionPercentage(tasks),
		CompletedTasks:  completed,
		PendingTasks:    pending,
		TodayTasks:      TasksForCurrentDay(tasks, employee.StartDate, today),
		UpcomingTasks:   UpcomingTasks(tasks, employee.StartDate, today, DefaultUpcomingDays),
		OverdueTasks:    OverdueTasks(tasks, employee.StartDate, today),
		Weekly:          WeeklyBuckets(tasks),
		DailyCompletion: DailyCompletionCounts(tasks),
		Timeline:        Timeline(tasks, employee.StartDate, today),
		Recent:          RecentCompletions(tasks, RecentLimit),
		ReviewDue:       ReviewDue(employee, today),
	}
}

// ReviewDue reports whether the feedback form is open: the window has
// elapsed and the employee has not closed onboarding yet.
func ReviewDue(employee Models.Employee, today time.Time) bool {
	return !employee.OnboardingCompleted && IsOnboardingWindowElapsed(employee.StartDate, today)
}
