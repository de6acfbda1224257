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

const dateLayout = "2006-01-02"

// EmployeeController serves the signed-in employee's own onboarding
type EmployeeController struct {
	DB        *gorm.DB
	Validator *Validator
	Notifier  Notifier
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

func NewEmployeeController(db *gorm.DB, validator *Validator, notifier Notifier, logger logrus.FieldLogger, now func() time.Time) *EmployeeController {
	return &EmployeeController{DB: db, Validator: validator, Notifier: notifier, Logger: logger, Now: now}
}

type onboardingInput struct {
	FullName   string `json:"full_name" validate:"required,max=120"`
	Department string `json:"department" validate:"max=120"`
	Position   string `json:"position" validate:"max=120"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type employeeUpdateInput struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Department *string `json:"department" validate:"omitempty,max=120"`
	Position   *string `json:"position" validate:"omitempty,max=120"`
	StartDate  *string `json:"start_date"`
}

type completeTaskInput struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type reviewInput struct {
	OverallRating int    `json:"overall_rating" validate:"required,min=1,max=5"`
	Feedback      string `json:"feedback" validate:"max=5000"`
	Suggestions   string `json:"suggestions" validate:"max=5000"`
}

// SubmitOnboarding stores the employee details and assigns every active task
func (c *EmployeeController) SubmitOnboarding(ctx *fiber.Ctx) error {
	session := Session.From(ctx)
	if session.Employee != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Onboarding details already submitted"})
	}

	var input onboardingInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}
	startDate, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_date format. Use YYYY-MM-DD"})
	}

	employee := Models.Employee{
		UserID:     session.User.ID,
		FullName:   strings.TrimSpace(input.FullName),
		Email:      session.User.Email,
		Department: input.Department,
		Position:   input.Position,
		StartDate:  startDate,
	}
	var assigned int64
	err = c.DB.Transaction(func(tx *gorm.DB) error {
		if err := Models.CreateEmployee(tx, &employee); err != nil {
			return err
		}
		n, err := Models.AssignActiveTasks(tx, employee.ID)
		assigned = n
		return err
	})
	if errors.Is(err, Models.ErrAlreadyExists) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Onboarding details already submitted"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to save onboarding details")
	}

	if err := session.Refresh(c.DB); err != nil {
		c.Logger.WithError(err).Warn("failed to refresh session after onboarding")
	}
	if c.Notifier != nil {
		notify(c.Logger, "welcome", func(nctx context.Context) error {
			return c.Notifier.Welcome(nctx, employee, int(assigned))
		})
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"employee":       employee,
		"assigned_tasks": assigned,
	})
}

// GetEmployee returns the signed-in employee's record
func (c *EmployeeController) GetEmployee(ctx *fiber.Ctx) error {
	employee, err := employeeOf(ctx)
	if employee == nil {
		return err
	}
	return ctx.JSON(employee)
}

// UpdateEmployee changes name, department or position. The start date is fixed.
func (c *EmployeeController) UpdateEmployee(ctx *fiber.Ctx) error {
	employee, err := employeeOf(ctx)
	if employee == nil {
		return err
	}

	var input employeeUpdateInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}
	if input.StartDate != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "The start date cannot be changed"})
	}

	update := Models.EmployeeUpdate{
		FullName:   input.FullName,
		Department: input.Department,
		Position:   input.Position,
	}
	if err := Models.UpdateEmployee(c.DB, employee, update); err != nil {
		return serverError(ctx, c.Logger, err, "Failed to update employee")
	}

	updated, err := Models.GetEmployee(c.DB, employee.ID)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to load employee")
	}
	return ctx.JSON(updated)
}

// loadTasks returns the employee and their assigned tasks, or writes the
// error response and returns a nil employee.
func (c *EmployeeController) loadTasks(ctx *fiber.Ctx) (*Models.Employee, []Models.EmployeeTask, error) {
	employee, err := employeeOf(ctx)
	if employee == nil {
		return nil, nil, err
	}
	tasks, err := Models.GetEmployeeTasks(c.DB, employee.ID)
	if err != nil {
		return nil, nil, serverError(ctx, c.Logger, err, "Failed to load tasks")
	}
	return employee, tasks, nil
}

// GetTasks lists every task assigned to the employee
func (c *EmployeeController) GetTasks(ctx *fiber.Ctx) error {
	employee, tasks, err := c.loadTasks(ctx)
	if employee == nil {
		return err
	}
	return ctx.JSON(tasks)
}

// GetTodayTasks lists the tasks of the current onboarding day
func (c *EmployeeController) GetTodayTasks(ctx *fiber.Ctx) error {
	employee, tasks, err := c.loadTasks(ctx)
	if employee == nil {
		return err
	}
	today := c.Now()
	return ctx.JSON(fiber.Map{
		"day":   Progress.CurrentOnboardingDay(employee.StartDate, today),
		"tasks": Progress.TasksForCurrentDay(tasks, employee.StartDate, today),
	})
}

// GetUpcomingTasks lists the tasks of the next days (?days=N, default 3)
func (c *EmployeeController) GetUpcomingTasks(ctx *fiber.Ctx) error {
	days := queryInt(ctx, "days", Progress.DefaultUpcomingDays)
	if days < 1 || days > Progress.WindowDays {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "days must be between 1 and 30"})
	}

	employee, tasks, err := c.loadTasks(ctx)
	if employee == nil {
		return err
	}
	return ctx.JSON(Progress.UpcomingTasks(tasks, employee.StartDate, c.Now(), days))
}

// CompleteTask marks one of the employee's tasks as done
func (c *EmployeeController) CompleteTask(ctx *fiber.Ctx) error {
	employee, err := employeeOf(ctx)
	if employee == nil {
		return err
	}
	taskID, ok := idParam(ctx, "taskId")
	if !ok {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	var input completeTaskInput
	if len(ctx.Body()) > 0 {
		if ok, err := c.Validator.Bind(ctx, &input); !ok {
			return err
		}
	}

	task, err := Models.CompleteTask(c.DB, employee.ID, taskID, input.Notes, c.Now())
	if errors.Is(err, Models.ErrNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to complete task")
	}
	return ctx.JSON(task)
}

// GetProgress returns the full dashboard snapshot
func (c *EmployeeController) GetProgress(ctx *fiber.Ctx) error {
	employee, tasks, err := c.loadTasks(ctx)
	if employee == nil {
		return err
	}
	return ctx.JSON(Progress.NewSnapshot(*employee, tasks, c.Now()))
}

// SubmitReview stores the feedback form and closes onboarding. The form opens
// once the 30-day window has elapsed.
func (c *EmployeeController) SubmitReview(ctx *fiber.Ctx) error {
	employee, err := employeeOf(ctx)
	if employee == nil {
		return err
	}
	if employee.OnboardingCompleted {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Onboarding review already submitted"})
	}
	if !Progress.ReviewDue(*employee, c.Now()) {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "The review opens after the 30-day onboarding window"})
	}

	var input reviewInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	review := Models.OnboardingReview{
		EmployeeID:    employee.ID,
		OverallRating: input.OverallRating,
		Feedback:      input.Feedback,
		Suggestions:   input.Suggestions,
		SubmittedAt:   c.Now(),
	}
	err = Models.SubmitOnboardingReview(c.DB, &review)
	if errors.Is(err, Models.ErrAlreadyExists) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Onboarding review already submitted"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to submit review")
	}

	employee.OnboardingCompleted = true
	if c.Notifier != nil {
		closed := *employee
		notify(c.Logger, "review", func(nctx context.Context) error {
			return c.Notifier.ReviewSubmitted(nctx, closed, review)
		})
	}
	return ctx.Status(fiber.StatusCreated).JSON(review)
}
