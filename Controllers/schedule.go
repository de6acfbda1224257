package Controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Onboarding/Progress"
)

// Scheduler is implemented by CronJobs.OnboardingScheduler.
type Scheduler interface {
	Schedules() (reminders, atRisk string)
	NextRuns() (reminders, atRisk time.Time)
	UpdateReminderSchedule(schedule string) error
	UpdateAtRiskSchedule(schedule string) error
	RunReminders(ctx context.Context) (int, error)
	RunAtRiskDigest(ctx context.Context) ([]Progress.AtRiskEmployee, error)
}

const manualRunTimeout = 2 * time.Minute

// ScheduleController lets HR inspect, reschedule and trigger the background jobs
type ScheduleController struct {
	Scheduler Scheduler
	Validator *Validator
	Logger    logrus.FieldLogger
}

func NewScheduleController(scheduler Scheduler, validator *Validator, logger logrus.FieldLogger) *ScheduleController {
	return &ScheduleController{Scheduler: scheduler, Validator: validator, Logger: logger}
}

type jobSchedule struct {
	Schedule string     `json:"schedule"`
	NextRun  *time.Time `json:"next_run"`
}

type scheduleResponse struct {
	Reminders jobSchedule `json:"reminders"`
	AtRisk    jobSchedule `json:"at_risk"`
}

type scheduleInput struct {
	Reminders *string `json:"reminders" validate:"omitempty,min=1"`
	AtRisk    *string `json:"at_risk" validate:"omitempty,min=1"`
}

func nextRun(at time.Time) *time.Time {
	if at.IsZero() {
		return nil
	}
	return &at
}

func (c *ScheduleController) current() scheduleResponse {
	reminders, atRisk := c.Scheduler.Schedules()
	nextReminders, nextAtRisk := c.Scheduler.NextRuns()
	return scheduleResponse{
		Reminders: jobSchedule{Schedule: reminders, NextRun: nextRun(nextReminders)},
		AtRisk:    jobSchedule{Schedule: atRisk, NextRun: nextRun(nextAtRisk)},
	}
}

func (c *ScheduleController) GetSchedule(ctx *fiber.Ctx) error {
	return ctx.JSON(c.current())
}

// UpdateSchedule replaces one or both cron schedules (six fields, with seconds).
// A schedule that does not parse leaves the running one in place.
func (c *ScheduleController) UpdateSchedule(ctx *fiber.Ctx) error {
	var input scheduleInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}
	if input.Reminders == nil && input.AtRisk == nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Nothing to update"})
	}

	if input.Reminders != nil {
		if err := c.Scheduler.UpdateReminderSchedule(*input.Reminders); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	if input.AtRisk != nil {
		if err := c.Scheduler.UpdateAtRiskSchedule(*input.AtRisk); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return ctx.JSON(c.current())
}

// RunReminders sends today's reminders now
func (c *ScheduleController) RunReminders(ctx *fiber.Ctx) error {
	runCtx, cancel := context.WithTimeout(context.Background(), manualRunTimeout)
	defer cancel()

	sent, err := c.Scheduler.RunReminders(runCtx)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to send reminders")
	}
	return ctx.JSON(fiber.Map{"sent": sent})
}

// RunAtRiskDigest posts the at-risk digest now
func (c *ScheduleController) RunAtRiskDigest(ctx *fiber.Ctx) error {
	runCtx, cancel := context.WithTimeout(context.Background(), manualRunTimeout)
	defer cancel()

	employees, err := c.Scheduler.RunAtRiskDigest(runCtx)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to send the at-risk digest")
	}
	return ctx.JSON(fiber.Map{"count": len(employees), "employees": employees})
}
