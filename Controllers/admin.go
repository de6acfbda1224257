package Controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Models"
	"Onboarding/Progress"
	"Onboarding/Session"
)

// AdminController serves the HR dashboard
type AdminController struct {
	DB        *gorm.DB
	Validator *Validator
	Notifier  Notifier
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

func NewAdminController(db *gorm.DB, validator *Validator, notifier Notifier, logger logrus.FieldLogger, now func() time.Time) *AdminController {
	return &AdminController{DB: db, Validator: validator, Notifier: notifier, Logger: logger, Now: now}
}

type employeeSummary struct {
	Models.Employee
	CurrentDay     int `json:"current_day"`
	Percentage     int `json:"percentage"`
	CompletedTasks int `json:"completed_tasks"`
	TotalTasks     int `json:"total_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
}

type assignTaskInput struct {
	TaskID uint `json:"task_id" validate:"required"`
}

type taskInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	DayNumber   int               `json:"day_number" validate:"required,min=1,max=30"`
	Links       []Models.TaskLink `json:"links" validate:"omitempty,dive"`
	IsActive    *bool             `json:"is_active"`
}

type customTaskInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	DayNumber   *int              `json:"day_number" validate:"omitempty,min=1,max=30"`
	Links       []Models.TaskLink `json:"links" validate:"omitempty,dive"`
}

type taskUpdateInput struct {
	Title       *string           `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string           `json:"description" validate:"omitempty,max=5000"`
	DayNumber   *int              `json:"day_number" validate:"omitempty,min=1,max=30"`
	Links       []Models.TaskLink `json:"links" validate:"omitempty,dive"`
	IsActive    *bool             `json:"is_active"`
}

// GetEmployees lists every employee with their headline progress
func (c *AdminController) GetEmployees(ctx *fiber.Ctx) error {
	employees, err := Models.GetEmployeesWithProgress(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch employees")
	}

	today := c.Now()
	summaries := make([]employeeSummary, 0, len(employees))
	for _, employee := range employees {
		tasks := employee.EmployeeTasks
		completed, _ := Progress.CountCompleted(tasks)
		employee.EmployeeTasks = nil
		summaries = append(summaries, employeeSummary{
			Employee:       employee,
			CurrentDay:     Progress.CurrentOnboardingDay(employee.StartDate, today),
			Percentage:     Progress.CompletionPercentage(tasks),
			CompletedTasks: completed,
			TotalTasks:     len(tasks),
			OverdueTasks:   len(Progress.OverdueTasks(tasks, employee.StartDate, today)),
		})
	}
	return ctx.JSON(summaries)
}

// employeeParam loads the employee named by :id. When it returns nil the
// response has been written.
func (c *AdminController) employeeParam(ctx *fiber.Ctx) (*Models.Employee, error) {
	id, ok := idParam(ctx, "id")
	if !ok {
		return nil, ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid employee ID"})
	}
	employee, err := Models.GetEmployee(c.DB, id)
	if errors.Is(err, Models.ErrNotFound) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Employee not found"})
	}
	if err != nil {
		return nil, serverError(ctx, c.Logger, err, "Failed to fetch employee")
	}
	return employee, nil
}

// GetEmployeeProgress returns the dashboard snapshot of one employee
func (c *AdminController) GetEmployeeProgress(ctx *fiber.Ctx) error {
	employee, err := c.employeeParam(ctx)
	if employee == nil {
		return err
	}
	tasks, err := Models.GetEmployeeTasks(c.DB, employee.ID)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch tasks")
	}
	return ctx.JSON(fiber.Map{
		"employee": employee,
		"tasks":    tasks,
		"progress": Progress.NewSnapshot(*employee, tasks, c.Now()),
	})
}

// AssignTask assigns an existing task definition to the employee
func (c *AdminController) AssignTask(ctx *fiber.Ctx) error {
	employee, err := c.employeeParam(ctx)
	if employee == nil {
		return err
	}

	var input assignTaskInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}
	if _, err := Models.GetTask(c.DB, input.TaskID); errors.Is(err, Models.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	} else if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch task")
	}

	assigned, err := Models.AssignTask(c.DB, employee.ID, input.TaskID)
	if errors.Is(err, Models.ErrAlreadyExists) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Task already assigned to this employee"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to assign task")
	}

	c.notifyAssigned(*employee, assigned)
	return ctx.Status(fiber.StatusCreated).JSON(assigned)
}

// CreateCustomTask creates an ad-hoc task for one employee. It stays out of
// the catalogue so new hires never receive it.
func (c *AdminController) CreateCustomTask(ctx *fiber.Ctx) error {
	employee, err := c.employeeParam(ctx)
	if employee == nil {
		return err
	}

	var input customTaskInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	task := Models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		DayNumber:   input.DayNumber,
		IsActive:    false,
		CreatedBy:   Session.From(ctx).User.ID,
	}
	if err := task.SetLinks(input.Links); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid links"})
	}

	assigned, err := Models.CreateAndAssignTask(c.DB, &task, employee.ID)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to create task")
	}

	c.notifyAssigned(*employee, assigned)
	return ctx.Status(fiber.StatusCreated).JSON(assigned)
}

func (c *AdminController) notifyAssigned(employee Models.Employee, assigned *Models.EmployeeTask) {
	if c.Notifier == nil || assigned.Task == nil {
		return
	}
	task := *assigned.Task
	notify(c.Logger, "task_assigned", func(nctx context.Context) error {
		return c.Notifier.TaskAssigned(nctx, employee, task)
	})
}

// GetTasks lists the whole catalogue, inactive tasks included
func (c *AdminController) GetTasks(ctx *fiber.Ctx) error {
	tasks, err := Models.GetAllTasks(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch tasks")
	}
	return ctx.JSON(tasks)
}

// GetTasksForDay lists the active tasks of one onboarding day
func (c *AdminController) GetTasksForDay(ctx *fiber.Ctx) error {
	day, err := ctx.ParamsInt("day")
	if err != nil || day < Models.FirstOnboardingDay || day > Models.LastOnboardingDay {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "day must be between 1 and 30"})
	}
	tasks, err := Models.GetTasksForDay(c.DB, day)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch tasks")
	}
	return ctx.JSON(tasks)
}

// CreateTask adds a task to the catalogue. New tasks are active unless
// is_active is false.
func (c *AdminController) CreateTask(ctx *fiber.Ctx) error {
	var input taskInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	day := input.DayNumber
	task := Models.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		DayNumber:   &day,
		IsActive:    input.IsActive == nil || *input.IsActive,
		CreatedBy:   Session.From(ctx).User.ID,
	}
	if err := task.SetLinks(input.Links); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid links"})
	}
	if err := Models.CreateTask(c.DB, &task); err != nil {
		return serverError(ctx, c.Logger, err, "Failed to create task")
	}
	return ctx.Status(fiber.StatusCreated).JSON(task)
}

// UpdateTask edits a catalogue entry. Existing assignments keep pointing at it.
func (c *AdminController) UpdateTask(ctx *fiber.Ctx) error {
	id, ok := idParam(ctx, "id")
	if !ok {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var input taskUpdateInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	task, err := Models.GetTask(c.DB, id)
	if errors.Is(err, Models.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch task")
	}

	update := Models.TaskUpdate{
		Title:       input.Title,
		Description: input.Description,
		DayNumber:   input.DayNumber,
		Links:       input.Links,
		IsActive:    input.IsActive,
	}
	if err := Models.UpdateTask(c.DB, task, update); err != nil {
		return serverError(ctx, c.Logger, err, "Failed to update task")
	}
	return ctx.JSON(task)
}

// GetReviews lists the submitted reviews with their summary figures
func (c *AdminController) GetReviews(ctx *fiber.Ctx) error {
	reviews, err := Models.GetAllReviews(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch reviews")
	}
	return ctx.JSON(fiber.Map{
		"reviews":        reviews,
		"count":          len(reviews),
		"average_rating": Progress.AverageRating(reviews),
		"distribution":   Progress.RatingDistribution(reviews),
	})
}

// GetOverview returns the headline figures of the dashboard
func (c *AdminController) GetOverview(ctx *fiber.Ctx) error {
	employees, err := Models.GetEmployeesWithProgress(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch employees")
	}
	reviews, err := Models.GetAllReviews(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch reviews")
	}
	return ctx.JSON(Progress.Overview(employees, reviews))
}

// GetAtRisk lists employees with overdue tasks, most overdue first
func (c *AdminController) GetAtRisk(ctx *fiber.Ctx) error {
	employees, err := Models.GetEmployeesWithProgress(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch employees")
	}
	return ctx.JSON(Progress.AtRisk(employees, c.Now()))
}
