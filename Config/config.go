// Package Config reads the service settings from the environment. A .env file
// in the working directory is loaded first when present.
package Config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"Onboarding/Models"
)

const DefaultJWTSecret = "secret"

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port string

	DBDriver string
	DBDSN    string

	JWTSecret  string
	SessionTTL time.Duration
	AdminEmail string

	// Location decides which calendar day "today" is.
	Location    *time.Location
	CORSOrigins string

	TemplatesDir  string
	SeedTasksFile string
	LogFile       string
	LogLevel      logrus.Level

	Email Models.EmailConfig

	SlackToken   string
	SlackChannel string

	FirebaseCredentials string

	RealtimeChannel  string
	ReminderSchedule string
	AtRiskSchedule   string
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv, applying defaults for unset
// keys.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	cfg := &Config{
		Port:                env("PORT", "8080"),
		DBDriver:            strings.ToLower(env("DB_DRIVER", "sqlite")),
		DBDSN:               env("DB_DSN", "onboarding.db"),
		JWTSecret:           env("JWT_SECRET", DefaultJWTSecret),
		AdminEmail:          Models.NormalizeEmail(getenv("ADMIN_EMAIL")),
		CORSOrigins:         env("CORS_ORIGINS", "*"),
		TemplatesDir:        env("TEMPLATES_DIR", "./Templates"),
		SeedTasksFile:       env("SEED_TASKS_FILE", "seed/tasks.json5"),
		LogFile:             env("LOG_FILE", "logs/requests.log"),
		SlackToken:          getenv("SLACK_BOT_TOKEN"),
		SlackChannel:        getenv("SLACK_CHANNEL_ID"),
		FirebaseCredentials: getenv("FIREBASE_CREDENTIALS"),
		RealtimeChannel:     env("REALTIME_CHANNEL", "onboarding_changes"),
		ReminderSchedule:    env("REMINDER_SCHEDULE", "0 0 8 * * *"),
		AtRiskSchedule:      env("AT_RISK_SCHEDULE", "0 0 9 * * 1-5"),
	}

	ttl, err := time.ParseDuration(env("SESSION_TTL", "72h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("%w: SESSION_TTL %q", ErrInvalidConfig, getenv("SESSION_TTL"))
	}
	cfg.SessionTTL = ttl

	cfg.Location, err = time.LoadLocation(env("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("%w: TIMEZONE: %v", ErrInvalidConfig, err)
	}

	cfg.LogLevel, err = logrus.ParseLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalidConfig, err)
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	case "mysql":
		cfg.DBDSN, err = normalizeMySQLDSN(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: DB_DRIVER %q", ErrInvalidConfig, cfg.DBDriver)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{"REMINDER_SCHEDULE": cfg.ReminderSchedule, "AT_RISK_SCHEDULE": cfg.AtRiskSchedule} {
		if _, err := parser.Parse(spec); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
	}

	cfg.Email, err = emailConfig(env)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalizeMySQLDSN checks the DSN and turns on parseTime, which the
// DATETIME columns need.
func normalizeMySQLDSN(dsn string) (string, error) {
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("%w: DB_DSN: %v", ErrInvalidConfig, err)
	}
	parsed.ParseTime = true
	if parsed.Loc == nil {
		parsed.Loc = time.UTC
	}
	return parsed.FormatDSN(), nil
}

func emailConfig(env func(key, fallback string) string) (Models.EmailConfig, error) {
	port, err := strconv.Atoi(env("SMTP_PORT", "587"))
	if err != nil {
		return Models.EmailConfig{}, fmt.Errorf("%w: SMTP_PORT: %v", ErrInvalidConfig, err)
	}
	tls, err := strconv.ParseBool(env("SMTP_TLS", "false"))
	if err != nil {
		return Models.EmailConfig{}, fmt.Errorf("%w: SMTP_TLS: %v", ErrInvalidConfig, err)
	}
	skip, err := strconv.ParseBool(env("SMTP_SKIP_TLS_CHECK", "false"))
	if err != nil {
		return Models.EmailConfig{}, fmt.Errorf("%w: SMTP_SKIP_TLS_CHECK: %v", ErrInvalidConfig, err)
	}

	return Models.EmailConfig{
		SMTPServer:   env("SMTP_SERVER", ""),
		SMTPPort:     port,
		Username:     env("SMTP_USERNAME", ""),
		Password:     env("SMTP_PASSWORD", ""),
		FromEmail:    env("SMTP_FROM_EMAIL", ""),
		FromName:     env("SMTP_FROM_NAME", "Onboarding"),
		TLSEnabled:   tls,
		SkipTLSCheck: skip,
	}, nil
}

// Now returns the current time in the configured location.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location)
}

func (c *Config) IsAdminEmail(email string) bool {
	return c.AdminEmail != "" && Models.NormalizeEmail(email) == c.AdminEmail
}

// NewLogger builds the JSON logger shared by every component.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	logger.SetLevel(c.LogLevel)
	return logger
}
