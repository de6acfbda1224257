package Progress

import (
	"math"
	"time"

	"golang.org/x/exp/slices"

	"Onboarding/Models"
)

type AtRiskEmployee struct {
	EmployeeID   uint   `json:"employee_id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	CurrentDay   int    `json:"current_day"`
	OverdueCount int    `json:"overdue_count"`
	Progress     int    `json:"progress"`
}

// AtRisk lists employees still onboarding that have overdue tasks, most
// overdue first. Employees need their EmployeeTasks and Task loaded.
func AtRisk(employees []Models.Employee, today time.Time) []AtRiskEmployee {
	result := []AtRiskEmployee{}
	for _, employee := range employees {
		if employee.OnboardingCompleted {
			continue
		}
		overdue := OverdueTasks(employee.EmployeeTasks, employee.StartDate, today)
		if len(overdue) == 0 {
			continue
		}
		result = append(result, AtRiskEmployee{
			EmployeeID:   employee.ID,
			FullName:     employee.FullName,
			Email:        employee.Email,
			CurrentDay:   CurrentOnboardingDay(employee.StartDate, today),
			OverdueCount: len(overdue),
			Progress:     CompletionPercentage(employee.EmployeeTasks),
		})
	}

	slices.SortStableFunc(result, func(a, b AtRiskEmployee) int {
		return b.OverdueCount - a.OverdueCount
	})
	return result
}

type AdminOverview struct {
	ActiveOnboarding    int      `json:"active_onboarding"`
	CompletedOnboarding int      `json:"completed_onboarding"`
	TotalTasks          int      `json:"total_tasks"`
	CompletedTasks      int      `json:"completed_tasks"`
	TaskCompletion      int      `json:"task_completion"`
	AverageRating       *float64 `json:"average_rating"`
	ReviewCount         int      `json:"review_count"`
}

// Overview summarises every employee's assigned tasks and the reviews.
func Overview(employees []Models.Employee, reviews []Models.OnboardingReview) AdminOverview {
	overview := AdminOverview{ReviewCount: len(reviews)}
	for _, employee := range employees {
		if employee.OnboardingCompleted {
			overview.CompletedOnboarding++
		} else {
			overview.ActiveOnboarding++
		}
		completed, _ := CountCompleted(employee.EmployeeTasks)
		overview.CompletedTasks += completed
		overview.TotalTasks += len(employee.EmployeeTasks)
	}
	overview.TaskCompletion = percentage(overview.CompletedTasks, overview.TotalTasks)
	overview.AverageRating = AverageRating(reviews)
	return overview
}

// AverageRating is the mean overall rating rounded to one decimal, nil when
// there are no reviews.
func AverageRating(reviews []Models.OnboardingReview) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, review := range reviews {
		sum += review.OverallRating
	}
	average := math.Round(float64(sum)*10/float64(len(reviews))) / 10
	return &average
}

type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// RatingDistribution counts reviews per rating, from 5 down to 1.
func RatingDistribution(reviews []Models.OnboardingReview) []RatingCount {
	distribution := make([]RatingCount, 0, 5)
	for rating := 5; rating >= 1; rating-- {
		count := 0
		for _, review := range reviews {
			if review.OverallRating == rating {
				count++
			}
		}
		distribution = append(distribution, RatingCount{Rating: rating, Count: count})
	}
	return distribution
}
