package Models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FirstOnboardingDay = 1
	LastOnboardingDay  = 30
)

type TaskLink struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required,url"`
}

// Task is a task definition. DayNumber is nil for ad-hoc tasks.
type Task struct {
	gorm.Model
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	DayNumber   *int           `json:"day_number" gorm:"index"`
	Links       datatypes.JSON `json:"links"`
	IsActive    bool           `json:"is_active"`
	CreatedBy   uint           `json:"created_by"`
}

func (t *Task) RealtimeKey() (uint, uint) {
	return t.ID, 0
}

// Scheduled reports the day the task belongs to, if it sits on the 30-day grid.
func (t Task) Scheduled() (int, bool) {
	if t.DayNumber == nil {
		return 0, false
	}
	day := *t.DayNumber
	return day, day >= FirstOnboardingDay && day <= LastOnboardingDay
}

func (t Task) LinkList() []TaskLink {
	if len(t.Links) == 0 {
		return nil
	}
	var links []TaskLink
	if err := json.Unmarshal(t.Links, &links); err != nil {
		return nil
	}
	return links
}

func (t *Task) SetLinks(links []TaskLink) error {
	if len(links) == 0 {
		t.Links = nil
		return nil
	}
	data, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to encode task links: %w", err)
	}
	t.Links = datatypes.JSON(data)
	return nil
}

// TaskUpdate holds the editable fields of a task definition.
type TaskUpdate struct {
	Title       *string
	Description *string
	DayNumber   *int
	Links       []TaskLink
	IsActive    *bool
}

// GetTasks returns the active catalogue ordered by day.
func GetTasks(db *gorm.DB) ([]Task, error) {
	var tasks []Task
	if err := db.Where("is_active = ?", true).Order("day_number").Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

// GetAllTasks returns the whole catalogue, inactive and ad-hoc tasks included.
func GetAllTasks(db *gorm.DB) ([]Task, error) {
	var tasks []Task
	if err := db.Order("day_number").Order("id").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

func GetTasksForDay(db *gorm.DB, dayNumber int) ([]Task, error) {
	var tasks []Task
	err := db.Where("day_number = ? AND is_active = ?", dayNumber, true).
		Order("created_at").Order("id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks for day %d: %w", dayNumber, err)
	}
	return tasks, nil
}

func GetTask(db *gorm.DB, id uint) (*Task, error) {
	var task Task
	if err := db.First(&task, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func CreateTask(db *gorm.DB, task *Task) error {
	if err := db.Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func UpdateTask(db *gorm.DB, task *Task, update TaskUpdate) error {
	changes := map[string]interface{}{}
	if update.Title != nil {
		changes["title"] = *update.Title
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if update.DayNumber != nil {
		changes["day_number"] = *update.DayNumber
	}
	if update.IsActive != nil {
		changes["is_active"] = *update.IsActive
	}
	if update.Links != nil {
		if err := task.SetLinks(update.Links); err != nil {
			return err
		}
		changes["links"] = task.Links
	}
	if len(changes) == 0 {
		return nil
	}
	if err := db.Model(task).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, err)
	}
	return db.First(task, task.ID).Error
}

func CountTasks(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}
