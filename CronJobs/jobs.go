package CronJobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Models"
	"Onboarding/Progress"
)

const jobTimeout = 10 * time.Minute

// Reminder is implemented by Notifications.Dispatcher.
type Reminder interface {
	DailyReminder(ctx context.Context, employee Models.Employee, tasks []Models.EmployeeTask, today time.Time) error
	AtRiskDigest(ctx context.Context, employees []Progress.AtRiskEmployee, now time.Time) error
}

// OnboardingScheduler sends the daily task reminders and the at-risk digest.
type OnboardingScheduler struct {
	cronScheduler *cron.Cron
	db            *gorm.DB
	reminder      Reminder
	logger        logrus.FieldLogger
	now           func() time.Time

	mu               sync.Mutex
	reminderSchedule string
	atRiskSchedule   string
	reminderJob      cron.EntryID
	atRiskJob        cron.EntryID
}

// NewOnboardingScheduler builds the scheduler. Schedules use the six-field
// cron format with seconds, e.g. "0 0 8 * * *" = 08:00:00 every day.
func NewOnboardingScheduler(db *gorm.DB, reminder Reminder, logger logrus.FieldLogger, location *time.Location, now func() time.Time, reminderSchedule, atRiskSchedule string) *OnboardingScheduler {
	cronLogger := cronLogger{logger.WithField("component", "cron")}
	return &OnboardingScheduler{
		cronScheduler: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		db:               db,
		reminder:         reminder,
		logger:           logger,
		now:              now,
		reminderSchedule: reminderSchedule,
		atRiskSchedule:   atRiskSchedule,
	}
}

// Start schedules both jobs and starts the cron goroutine
func (s *OnboardingScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.reminderJob, err = s.cronScheduler.AddFunc(s.reminderSchedule, s.reminderRun)
	if err != nil {
		return fmt.Errorf("error scheduling reminder job: %w", err)
	}
	s.atRiskJob, err = s.cronScheduler.AddFunc(s.atRiskSchedule, s.atRiskRun)
	if err != nil {
		s.cronScheduler.Remove(s.reminderJob)
		return fmt.Errorf("error scheduling at-risk job: %w", err)
	}

	s.cronScheduler.Start()
	s.logger.WithFields(logrus.Fields{
		"reminders": s.reminderSchedule,
		"at_risk":   s.atRiskSchedule,
	}).Info("onboarding scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *OnboardingScheduler) Stop() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
		s.logger.Info("onboarding scheduler stopped")
	}
}

// UpdateReminderSchedule replaces the reminder schedule. The old schedule is
// kept when the new one does not parse.
func (s *OnboardingScheduler) UpdateReminderSchedule(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronScheduler.AddFunc(schedule, s.reminderRun)
	if err != nil {
		return fmt.Errorf("error updating reminder schedule: %w", err)
	}
	s.cronScheduler.Remove(s.reminderJob)
	s.reminderJob = id
	s.reminderSchedule = schedule
	s.logger.WithField("schedule", schedule).Info("reminder schedule updated")
	return nil
}

// UpdateAtRiskSchedule replaces the digest schedule, see UpdateReminderSchedule.
func (s *OnboardingScheduler) UpdateAtRiskSchedule(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cronScheduler.AddFunc(schedule, s.atRiskRun)
	if err != nil {
		return fmt.Errorf("error updating at-risk schedule: %w", err)
	}
	s.cronScheduler.Remove(s.atRiskJob)
	s.atRiskJob = id
	s.atRiskSchedule = schedule
	s.logger.WithField("schedule", schedule).Info("at-risk schedule updated")
	return nil
}

// Schedules returns the cron expressions in use.
func (s *OnboardingScheduler) Schedules() (reminders, atRisk string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminderSchedule, s.atRiskSchedule
}

// NextRuns reports when each job fires next; zero before Start.
func (s *OnboardingScheduler) NextRuns() (reminders, atRisk time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cronScheduler.Entry(s.reminderJob).Next, s.cronScheduler.Entry(s.atRiskJob).Next
}

func (s *OnboardingScheduler) reminderRun() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.RunReminders(ctx); err != nil {
		s.logger.WithError(err).Error("reminder job failed")
	}
}

func (s *OnboardingScheduler) atRiskRun() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.RunAtRiskDigest(ctx); err != nil {
		s.logger.WithError(err).Error("at-risk digest failed")
	}
}

// RunReminders sends today's tasks to every employee inside their onboarding
// window and returns how many reminders went out. A failed reminder is
// logged and does not stop the others.
func (s *OnboardingScheduler) RunReminders(ctx context.Context) (int, error) {
	employees, err := Models.GetEmployeesWithProgress(s.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	today := s.now()
	sent := 0
	for _, employee := range employees {
		if employee.OnboardingCompleted ||
			!Progress.HasStarted(employee.StartDate, today) ||
			Progress.IsOnboardingWindowElapsed(employee.StartDate, today) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		tasks := employee.EmployeeTasks
		employee.EmployeeTasks = nil
		if err := s.reminder.DailyReminder(ctx, employee, tasks, today); err != nil {
			s.logger.WithError(err).WithField("employee_id", employee.ID).Warn("failed to send daily reminder")
			continue
		}
		sent++
	}

	s.logger.WithField("sent", sent).Info("daily reminders sent")
	return sent, nil
}

// RunAtRiskDigest posts the employees with overdue tasks. Nothing is posted
// when nobody is at risk.
func (s *OnboardingScheduler) RunAtRiskDigest(ctx context.Context) ([]Progress.AtRiskEmployee, error) {
	employees, err := Models.GetEmployeesWithProgress(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	now := s.now()
	atRisk := Progress.AtRisk(employees, now)
	if len(atRisk) == 0 {
		s.logger.Info("no employees at risk")
		return atRisk, nil
	}
	if err := s.reminder.AtRiskDigest(ctx, atRisk, now); err != nil {
		return atRisk, fmt.Errorf("failed to post at-risk digest: %w", err)
	}
	s.logger.WithField("employees", len(atRisk)).Info("at-risk digest posted")
	return atRisk, nil
}

// cronLogger routes robfig/cron's messages to logrus.
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	result := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		result[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return result
}
