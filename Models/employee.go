package Models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Employee struct {
	gorm.Model
	UserID              uint      `json:"user_id" gorm:"uniqueIndex;not null"`
	FullName            string    `json:"full_name" gorm:"not null"`
	Email               string    `json:"email" gorm:"index"`
	Department          string    `json:"department"`
	Position            string    `json:"position"`
	StartDate           time.Time `json:"start_date"`
	OnboardingCompleted bool      `json:"onboarding_completed"`

	EmployeeTasks []EmployeeTask `json:"employee_tasks,omitempty" gorm:"foreignKey:EmployeeID"`
}

// AfterFind brings the start date back to UTC midnight. Drivers may return
// the stored instant in the server's local zone, which shifts the calendar
// date west of UTC.
func (e *Employee) AfterFind(tx *gorm.DB) error {
	e.StartDate = e.StartDate.UTC()
	return nil
}

// RealtimeKey identifies the row and the employee it belongs to.
func (e *Employee) RealtimeKey() (uint, uint) {
	return e.ID, e.ID
}

// EmployeeUpdate holds the fields an employee may change after onboarding
// started. The start date is deliberately absent.
type EmployeeUpdate struct {
	FullName   *string
	Department *string
	Position   *string
}

// CreateEmployee stores the employee details for a user. A user has at most
// one employee record.
func CreateEmployee(db *gorm.DB, employee *Employee) error {
	var count int64
	if err := db.Model(&Employee{}).Where("user_id = ?", employee.UserID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing employee: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: employee for user %d", ErrAlreadyExists, employee.UserID)
	}
	if err := db.Create(employee).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: employee for user %d", ErrAlreadyExists, employee.UserID)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func GetEmployee(db *gorm.DB, id uint) (*Employee, error) {
	var employee Employee
	if err := db.First(&employee, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &employee, nil
}

func GetEmployeeByUserID(db *gorm.DB, userID uint) (*Employee, error) {
	var employee Employee
	if err := db.Where("user_id = ?", userID).First(&employee).Error; err != nil {
		return nil, notFound(err)
	}
	return &employee, nil
}

func UpdateEmployee(db *gorm.DB, employee *Employee, update EmployeeUpdate) error {
	changes := map[string]interface{}{}
	if update.FullName != nil {
		changes["full_name"] = *update.FullName
	}
	if update.Department != nil {
		changes["department"] = *update.Department
	}
	if update.Position != nil {
		changes["position"] = *update.Position
	}
	if len(changes) == 0 {
		return nil
	}
	if err := db.Model(employee).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update employee %d: %w", employee.ID, err)
	}
	return nil
}

// GetAllEmployees returns employees, newest first.
func GetAllEmployees(db *gorm.DB) ([]Employee, error) {
	var employees []Employee
	if err := db.Order("created_at DESC").Order("id DESC").Find(&employees).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch employees: %w", err)
	}
	return employees, nil
}

// GetEmployeesWithProgress returns employees, newest first, with their
// assigned tasks and task definitions loaded.
func GetEmployeesWithProgress(db *gorm.DB) ([]Employee, error) {
	var employees []Employee
	err := db.Preload("EmployeeTasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("employee_tasks.id")
	}).Preload("EmployeeTasks.Task").
		Order("created_at DESC").Order("id DESC").
		Find(&employees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employees with progress: %w", err)
	}
	return employees, nil
}
