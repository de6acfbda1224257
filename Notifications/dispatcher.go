// Package Notifications tells people about onboarding events by e-mail, push
// notification and Slack. Every channel is optional.
package Notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Models"
	"Onboarding/Progress"
	"Onboarding/Slack"
	"Onboarding/email"
)

// Mailer is satisfied by *email.Sender.
type Mailer interface {
	Send(ctx context.Context, message Models.EmailMessage) error
}

type Dispatcher struct {
	DB        *gorm.DB
	Mailer    Mailer
	Templates *email.Templates
	Pusher    Pusher
	Slack     *Slack.Client
	Logger    logrus.FieldLogger
}

type reminderTask struct {
	Title       string
	Description string
	Links       []Models.TaskLink
}

// Welcome greets a new employee once their tasks are assigned.
func (d *Dispatcher) Welcome(ctx context.Context, employee Models.Employee, taskCount int) error {
	return d.mail(ctx, employee, "Welcome to your onboarding", email.TemplateWelcome, map[string]interface{}{
		"Name":       employee.FullName,
		"StartDate":  Progress.FormatDate(employee.StartDate),
		"Department": employee.Department,
		"Position":   employee.Position,
		"TaskCount":  taskCount,
	})
}

// TaskAssigned tells the employee an admin added a task to their checklist.
func (d *Dispatcher) TaskAssigned(ctx context.Context, employee Models.Employee, task Models.Task) error {
	day := ""
	if n, ok := task.Scheduled(); ok {
		day = strconv.Itoa(n)
	}
	mailErr := d.mail(ctx, employee, "New onboarding task: "+task.Title, email.TemplateTaskAssigned, map[string]interface{}{
		"Name":        employee.FullName,
		"Title":       task.Title,
		"Description": task.Description,
		"Day":         day,
	})
	pushErr := d.push(ctx, employee, "New onboarding task", task.Title, map[string]string{
		"type":    "task_assigned",
		"task_id": strconv.FormatUint(uint64(task.ID), 10),
	})
	return errors.Join(mailErr, pushErr)
}

// ReviewSubmitted announces a finished onboarding to the admins on Slack.
func (d *Dispatcher) ReviewSubmitted(ctx context.Context, employee Models.Employee, review Models.OnboardingReview) error {
	if d.Slack == nil {
		return nil
	}
	return d.Slack.PostReview(ctx, employee, review)
}

// DailyReminder sends the employee today's tasks.
func (d *Dispatcher) DailyReminder(ctx context.Context, employee Models.Employee, tasks []Models.EmployeeTask, today time.Time) error {
	snapshot := Progress.NewSnapshot(employee, tasks, today)

	open := make([]reminderTask, 0, len(snapshot.TodayTasks))
	for _, task := range snapshot.TodayTasks {
		if task.Completed || task.Task == nil {
			continue
		}
		open = append(open, reminderTask{
			Title:       task.Task.Title,
			Description: task.Task.Description,
			Links:       task.Task.LinkList(),
		})
	}

	mailErr := d.mail(ctx, employee, fmt.Sprintf("Onboarding day %d", snapshot.CurrentDay), email.TemplateDailyTasks, map[string]interface{}{
		"Name":          employee.FullName,
		"Day":           snapshot.CurrentDay,
		"DaysRemaining": snapshot.DaysRemaining,
		"Percentage":    snapshot.Percentage,
		"Overdue":       len(snapshot.OverdueTasks),
		"Tasks":         open,
	})

	var pushErr error
	if len(open) > 0 {
		pushErr = d.push(ctx, employee,
			fmt.Sprintf("Day %d of your onboarding", snapshot.CurrentDay),
			fmt.Sprintf("You have %d task(s) for today", len(open)),
			map[string]string{"type": "daily_reminder", "day": strconv.Itoa(snapshot.CurrentDay)})
	}
	return errors.Join(mailErr, pushErr)
}

// AtRiskDigest posts the at-risk list to Slack.
func (d *Dispatcher) AtRiskDigest(ctx context.Context, employees []Progress.AtRiskEmployee, now time.Time) error {
	if d.Slack == nil {
		return nil
	}
	return d.Slack.PostAtRiskDigest(ctx, employees, now)
}

func (d *Dispatcher) mail(ctx context.Context, employee Models.Employee, subject, template string, data interface{}) error {
	if d.Mailer == nil || d.Templates == nil || employee.Email == "" {
		return nil
	}
	body, err := d.Templates.Render(template, data)
	if err != nil {
		return err
	}
	err = d.Mailer.Send(ctx, Models.EmailMessage{
		To:      []string{employee.Email},
		Subject: subject,
		Body:    body,
		IsHTML:  true,
	})
	if errors.Is(err, email.ErrNotConfigured) {
		return nil
	}
	return err
}

func (d *Dispatcher) push(ctx context.Context, employee Models.Employee, title, body string, data map[string]string) error {
	if d.Pusher == nil || d.DB == nil {
		return nil
	}
	tokens, err := Models.GetTokens(d.DB.WithContext(ctx), employee.UserID)
	if err != nil {
		return err
	}
	stale, err := d.Pusher.Push(ctx, tokens, title, body, data)
	if err != nil {
		return err
	}
	for _, token := range stale {
		if err := Models.DeleteToken(d.DB.WithContext(ctx), token); err != nil {
			d.Logger.WithError(err).Warn("failed to drop stale device token")
		}
	}
	return nil
}
