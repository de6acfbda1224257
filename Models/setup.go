package Models

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Connect opens the database for the given driver and migrates the schema.
// GORM warnings go to the standard logrus logger.
func Connect(driver, dsn string) (*gorm.DB, error) {
	return ConnectWithLogger(driver, dsn, logrus.StandardLogger())
}

// ConnectWithLogger is Connect with GORM's slow query and error traces sent
// to log at warning level. Missing records are expected and not logged.
func ConnectWithLogger(driver, dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(gormWriter{log.WithField("component", "gorm")}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}
	return connection, nil
}

// Migrate creates or updates every table, parents first.
func Migrate(db *gorm.DB) error {
	// 1. Models with no dependencies
	if err := db.AutoMigrate(&User{}, &Task{}); err != nil {
		return fmt.Errorf("failed to migrate base tables: %w", err)
	}

	// 2. Models that hang off a user
	if err := db.AutoMigrate(&Session{}, &FCMToken{}, &Employee{}); err != nil {
		return fmt.Errorf("failed to migrate user tables: %w", err)
	}

	// 3. Employee scoped models
	if err := db.AutoMigrate(&EmployeeTask{}, &OnboardingReview{}); err != nil {
		return fmt.Errorf("failed to migrate employee tables: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// gormWriter hands GORM's formatted traces to logrus.
type gormWriter struct {
	log logrus.FieldLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}
