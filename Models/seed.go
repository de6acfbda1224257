package Models

import (
	"fmt"
	"os"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gorm.io/gorm"
)

// SeedTask is one entry of the task catalogue file.
type SeedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Day         int        `json:"day"`
	Links       []TaskLink `json:"links"`
}

// LoadSeedTasks parses a JSON5 task catalogue.
func LoadSeedTasks(path string) ([]SeedTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task catalogue: %w", err)
	}

	var seeds []SeedTask
	if err := json5.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse task catalogue %s: %w", path, err)
	}

	for i, seed := range seeds {
		if seed.Title == "" {
			return nil, fmt.Errorf("task catalogue entry %d has no title", i)
		}
		if seed.Day < FirstOnboardingDay || seed.Day > LastOnboardingDay {
			return nil, fmt.Errorf("task catalogue entry %q has day %d outside 1..30", seed.Title, seed.Day)
		}
	}
	return seeds, nil
}

// SeedTasks fills an empty catalogue from the file at path. It returns the
// number of tasks created; a non-empty catalogue is never touched.
func SeedTasks(db *gorm.DB, path string) (int, error) {
	count, err := CountTasks(db)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	seeds, err := LoadSeedTasks(path)
	if err != nil {
		return 0, err
	}

	tasks := make([]Task, 0, len(seeds))
	for _, seed := range seeds {
		day := seed.Day
		task := Task{
			Title:       seed.Title,
			Description: seed.Description,
			DayNumber:   &day,
			IsActive:    true,
		}
		if err := task.SetLinks(seed.Links); err != nil {
			return 0, err
		}
		tasks = append(tasks, task)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	if err := db.Create(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to seed tasks: %w", err)
	}
	return len(tasks), nil
}
