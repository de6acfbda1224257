// Package Realtime tells subscribers which onboarding rows changed. Events
// carry identifiers only; consumers reload what they need and recompute.
package Realtime

import "time"

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Tables whose changes are published.
const (
	TableEmployees     = "employees"
	TableEmployeeTasks = "employee_tasks"
	TableTasks         = "tasks"
	TableReviews       = "onboarding_reviews"
)

var trackedTables = map[string]bool{
	TableEmployees:     true,
	TableEmployeeTasks: true,
	TableTasks:         true,
	TableReviews:       true,
}

type ChangeEvent struct {
	Table  string `json:"table"`
	Action Action `json:"action"`
	RowID  uint   `json:"row_id"`
	// EmployeeID is zero for rows shared by every employee, such as task
	// definitions.
	EmployeeID uint      `json:"employee_id"`
	At         time.Time `json:"at"`
}

// Filter selects events. Zero fields match everything; events without an
// employee reach every employee filter.
type Filter struct {
	Table      string
	EmployeeID uint
}

func (f Filter) Matches(event ChangeEvent) bool {
	if f.Table != "" && f.Table != event.Table {
		return false
	}
	if f.EmployeeID != 0 && event.EmployeeID != 0 && f.EmployeeID != event.EmployeeID {
		return false
	}
	return true
}
