package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Config"
	"Onboarding/CronJobs"
	"Onboarding/FiberConfig"
	"Onboarding/Models"
	"Onboarding/Notifications"
	"Onboarding/Realtime"
	"Onboarding/Session"
	"Onboarding/Slack"
	"Onboarding/email"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := Config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := cfg.NewLogger()
	if cfg.JWTSecret == Config.DefaultJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg *Config.Config, logger *logrus.Logger) error {
	db, err := Models.ConnectWithLogger(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	if seeded, err := Models.SeedTasks(db, cfg.SeedTasksFile); err != nil {
		logger.WithError(err).Warn("failed to seed the task catalogue")
	} else if seeded > 0 {
		logger.WithField("tasks", seeded).Info("seeded the task catalogue")
	}

	hub := Realtime.NewHub(logger.WithField("component", "realtime"), Realtime.DefaultBuffer)
	defer hub.Close()
	if err := setupRealtime(ctx, cfg, db, hub, logger); err != nil {
		return err
	}

	dispatcher, err := newDispatcher(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	scheduler := CronJobs.NewOnboardingScheduler(db, dispatcher, logger, cfg.Location, cfg.Now, cfg.ReminderSchedule, cfg.AtRiskSchedule)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	app := FiberConfig.NewApp(cfg, FiberConfig.Dependencies{
		DB:        db,
		Sessions:  Session.NewManager(db, cfg.JWTSecret, cfg.SessionTTL),
		Hub:       hub,
		Notifier:  dispatcher,
		Scheduler: scheduler,
		Logger:    logger,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Port).Info("server up")
		serverErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	hub.Close()
	return shutdown(app, shutdownTimeout)
}

// shutdown stops accepting connections and waits for open requests, giving
// up after timeout.
func shutdown(app *fiber.App, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- app.Shutdown()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown did not finish within %s", timeout)
	}
}

// setupRealtime publishes row changes to the hub. With Postgres the changes
// travel through NOTIFY so every instance receives them.
func setupRealtime(ctx context.Context, cfg *Config.Config, db *gorm.DB, hub *Realtime.Hub, logger *logrus.Logger) error {
	if cfg.DBDriver != "postgres" {
		return Realtime.RegisterCallbacks(db, Realtime.HubSink(hub))
	}

	if err := Realtime.RegisterCallbacks(db, Realtime.NotifySink(cfg.RealtimeChannel, logger)); err != nil {
		return err
	}
	listener := &Realtime.Listener{
		DSN:     cfg.DBDSN,
		Channel: cfg.RealtimeChannel,
		Hub:     hub,
		Logger:  logger.WithField("component", "realtime"),
	}
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.WithError(err).Error("realtime listener stopped")
		}
	}()
	return nil
}

func newDispatcher(ctx context.Context, cfg *Config.Config, db *gorm.DB, logger *logrus.Logger) (*Notifications.Dispatcher, error) {
	dispatcher := &Notifications.Dispatcher{
		DB:     db,
		Slack:  Slack.NewClient(cfg.SlackToken, cfg.SlackChannel),
		Logger: logger.WithField("component", "notifications"),
	}

	if cfg.Email.Enabled() {
		templates, err := email.LoadTemplates(cfg.TemplatesDir)
		if err != nil {
			return nil, err
		}
		dispatcher.Mailer = email.NewSender(cfg.Email)
		dispatcher.Templates = templates
	} else {
		logger.Info("SMTP is not configured, e-mails are disabled")
	}

	if cfg.FirebaseCredentials != "" {
		fcm, err := Notifications.NewFCM(ctx, cfg.FirebaseCredentials)
		if err != nil {
			return nil, err
		}
		dispatcher.Pusher = fcm
	}
	if dispatcher.Slack == nil {
		logger.Info("Slack is not configured, digests are disabled")
	}
	return dispatcher, nil
}
