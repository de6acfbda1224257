package FiberConfig

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Config"
	"Onboarding/Controllers"
	"Onboarding/Models"
	"Onboarding/Realtime"
	"Onboarding/Session"
	"Onboarding/middleware"
)

// Dependencies are the shared services the routes are built from.
type Dependencies struct {
	DB       *gorm.DB
	Sessions *Session.Manager
	Hub      *Realtime.Hub
	// Notifier may be nil, then nobody is notified.
	Notifier Controllers.Notifier
	// Scheduler may be nil, then the schedule routes are not registered.
	Scheduler Controllers.Scheduler
	Logger    logrus.FieldLogger
	// Now defaults to cfg.Now.
	Now func() time.Time
}

// NewApp builds the Fiber app with its middleware and every route.
func NewApp(cfg *Config.Config, deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Onboarding",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(deps.Logger, middleware.DefaultLogConfig(cfg.LogFile)))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		// browsers refuse credentials with a wildcard origin
		AllowCredentials: cfg.CORSOrigins != "*",
		MaxAge:           300,
	}))

	SetupRoutes(app, cfg, deps)
	return app
}

func SetupRoutes(app *fiber.App, cfg *Config.Config, deps Dependencies) {
	now := deps.Now
	if now == nil {
		now = cfg.Now
	}
	validator := Controllers.NewValidator()
	auth := middleware.NewAuth(deps.Sessions, deps.Logger)

	authController := Controllers.NewAuthController(deps.DB, deps.Sessions, validator, deps.Logger, cfg.IsAdminEmail)
	deviceController := Controllers.NewDeviceController(deps.DB, validator, deps.Logger)
	employeeController := Controllers.NewEmployeeController(deps.DB, validator, deps.Notifier, deps.Logger, now)
	adminController := Controllers.NewAdminController(deps.DB, validator, deps.Notifier, deps.Logger, now)
	logsController := Controllers.NewLogsController(cfg.LogFile, deps.Logger, now)
	realtimeController := Controllers.NewRealtimeController(deps.DB, deps.Hub, deps.Logger, now)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Auth routes
	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", authController.SignUp)
	authRoutes.Post("/login", authController.Login)
	authRoutes.Post("/logout", authController.Logout)
	authRoutes.Get("/me", auth.Verify(Models.PermissionEmployee), authController.Me)

	api.Post("/devices/token", auth.Verify(Models.PermissionEmployee), deviceController.SaveToken)
	api.Post("/onboarding", auth.Verify(Models.PermissionEmployee), employeeController.SubmitOnboarding)

	// Self-service routes
	me := api.Group("/me", auth.Verify(Models.PermissionEmployee))
	me.Get("/employee", employeeController.GetEmployee)
	me.Patch("/employee", employeeController.UpdateEmployee)
	me.Get("/tasks", employeeController.GetTasks)
	me.Get("/tasks/today", employeeController.GetTodayTasks)
	me.Get("/tasks/upcoming", employeeController.GetUpcomingTasks)
	me.Post("/tasks/:taskId/complete", employeeController.CompleteTask)
	me.Get("/progress", employeeController.GetProgress)
	me.Post("/review", employeeController.SubmitReview)

	// Admin routes
	admin := api.Group("/admin", auth.Verify(Models.PermissionAdmin))
	admin.Get("/employees", adminController.GetEmployees)
	admin.Get("/employees/:id/progress", adminController.GetEmployeeProgress)
	admin.Post("/employees/:id/tasks", adminController.AssignTask)
	admin.Post("/employees/:id/custom-tasks", adminController.CreateCustomTask)

	// Place /tasks/day/:day before the ID route
	admin.Get("/tasks", adminController.GetTasks)
	admin.Post("/tasks", adminController.CreateTask)
	admin.Get("/tasks/day/:day", adminController.GetTasksForDay)
	admin.Put("/tasks/:id", adminController.UpdateTask)

	admin.Get("/reviews", adminController.GetReviews)
	admin.Get("/overview", adminController.GetOverview)
	admin.Get("/at-risk", adminController.GetAtRisk)
	admin.Get("/export/progress", adminController.ExportProgress)

	if deps.Scheduler != nil {
		scheduleController := Controllers.NewScheduleController(deps.Scheduler, validator, deps.Logger)
		admin.Get("/schedule", scheduleController.GetSchedule)
		admin.Put("/schedule", scheduleController.UpdateSchedule)
		admin.Post("/schedule/reminders/run", scheduleController.RunReminders)
		admin.Post("/schedule/at-risk/run", scheduleController.RunAtRiskDigest)
	}

	// Logs API routes
	admin.Get("/logs", logsController.GetLogs)
	admin.Get("/logs/stats", logsController.GetLogStats)

	// WebSocket
	api.Get("/ws/progress", auth.Verify(Models.PermissionEmployee), realtimeController.Upgrade, realtimeController.Progress())
	admin.Get("/ws/changes", realtimeController.Upgrade, realtimeController.Changes())
}
