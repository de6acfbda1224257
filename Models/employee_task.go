package Models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeTask binds one employee to one task definition and tracks its
// completion. Completion flips false -> true once and is never undone.
type EmployeeTask struct {
	gorm.Model
	EmployeeID  uint       `json:"employee_id" gorm:"uniqueIndex:idx_employee_task;not null"`
	TaskID      uint       `json:"task_id" gorm:"uniqueIndex:idx_employee_task;not null"`
	Task        *Task      `json:"task,omitempty" gorm:"foreignKey:TaskID"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Notes       string     `json:"notes"`
}

func (et *EmployeeTask) RealtimeKey() (uint, uint) {
	return et.ID, et.EmployeeID
}

// DayNumber is the scheduled day of the joined definition, if any.
func (et EmployeeTask) DayNumber() (int, bool) {
	if et.Task == nil || et.Task.DayNumber == nil {
		return 0, false
	}
	return *et.Task.DayNumber, true
}

// GetEmployeeTasks returns the tasks assigned to an employee in assignment
// order with their definitions joined.
func GetEmployeeTasks(db *gorm.DB, employeeID uint) ([]EmployeeTask, error) {
	var tasks []EmployeeTask
	err := db.Preload("Task").
		Where("employee_id = ?", employeeID).
		Order("created_at").Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks of employee %d: %w", employeeID, err)
	}
	return tasks, nil
}

// AssignActiveTasks assigns every active task definition to the employee.
// Pairs that already exist are left untouched, so it can run again safely.
func AssignActiveTasks(db *gorm.DB, employeeID uint) (int64, error) {
	tasks, err := GetTasks(db)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	employeeTasks := make([]EmployeeTask, 0, len(tasks))
	for _, task := range tasks {
		employeeTasks = append(employeeTasks, EmployeeTask{
			EmployeeID: employeeID,
			TaskID:     task.ID,
			Completed:  false,
		})
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "employee_id"}, {Name: "task_id"}},
		DoNothing: true,
	}).Create(&employeeTasks)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to assign tasks to employee %d: %w", employeeID, result.Error)
	}
	return result.RowsAffected, nil
}

// AssignTask assigns a single task definition to an employee.
func AssignTask(db *gorm.DB, employeeID, taskID uint) (*EmployeeTask, error) {
	var employeeTask EmployeeTask
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&EmployeeTask{}).
			Where("employee_id = ? AND task_id = ?", employeeID, taskID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: task %d already assigned to employee %d", ErrAlreadyExists, taskID, employeeID)
		}

		employeeTask = EmployeeTask{EmployeeID: employeeID, TaskID: taskID}
		if err := tx.Create(&employeeTask).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: task %d already assigned to employee %d", ErrAlreadyExists, taskID, employeeID)
			}
			return fmt.Errorf("failed to assign task %d: %w", taskID, err)
		}
		return tx.Preload("Task").First(&employeeTask, employeeTask.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &employeeTask, nil
}

// CreateAndAssignTask creates an ad-hoc task definition and assigns it to the
// employee in one transaction, so a failed assignment leaves no orphan task.
func CreateAndAssignTask(db *gorm.DB, task *Task, employeeID uint) (*EmployeeTask, error) {
	var employeeTask EmployeeTask
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		employeeTask = EmployeeTask{EmployeeID: employeeID, TaskID: task.ID}
		if err := tx.Create(&employeeTask).Error; err != nil {
			return fmt.Errorf("failed to assign task %d: %w", task.ID, err)
		}
		employeeTask.Task = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &employeeTask, nil
}

// CompleteTask marks the employee's task as done. Only tasks assigned to the
// employee can be completed; completing an already completed task returns it
// as is.
func CompleteTask(db *gorm.DB, employeeID, taskID uint, notes string, now time.Time) (*EmployeeTask, error) {
	var employeeTask EmployeeTask
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("employee_id = ? AND task_id = ?", employeeID, taskID).First(&employeeTask).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("%w: task %d is not assigned to employee %d", ErrNotFound, taskID, employeeID)
		case err != nil:
			return err
		case employeeTask.Completed:
			// already done; keep the first completion
		default:
			err := tx.Model(&employeeTask).Updates(map[string]interface{}{
				"completed":    true,
				"completed_at": now,
				"notes":        notes,
			}).Error
			if err != nil {
				return fmt.Errorf("failed to complete task %d: %w", taskID, err)
			}
		}
		return tx.Preload("Task").First(&employeeTask, employeeTask.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &employeeTask, nil
}
