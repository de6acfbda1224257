package Controllers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Onboarding/Models"
	"Onboarding/Session"
)

// Notifier is told about events people should hear about. Implemented by
// Notifications.Dispatcher.
type Notifier interface {
	Welcome(ctx context.Context, employee Models.Employee, taskCount int) error
	TaskAssigned(ctx context.Context, employee Models.Employee, task Models.Task) error
	ReviewSubmitted(ctx context.Context, employee Models.Employee, review Models.OnboardingReview) error
}

const notifyTimeout = 30 * time.Second

// notify runs send in the background so slow mail servers never hold up a
// response.
func notify(logger logrus.FieldLogger, event string, send func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			logger.WithError(err).WithField("event", event).Warn("failed to send notification")
		}
	}()
}

func idParam(ctx *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryInt reads an integer query value, falling back when it is missing or
// not a number.
func queryInt(ctx *fiber.Ctx, key string, fallback int) int {
	value, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

// employeeOf returns the employee record of the signed-in user. When it
// returns nil the response has been written.
func employeeOf(ctx *fiber.Ctx) (*Models.Employee, error) {
	session := Session.From(ctx)
	if session == nil {
		return nil, ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not Logged In."})
	}
	if session.Employee == nil {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Onboarding details not submitted yet"})
	}
	return session.Employee, nil
}

func serverError(ctx *fiber.Ctx, logger logrus.FieldLogger, err error, message string) error {
	logger.WithError(err).WithField("path", ctx.Path()).Error(message)
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": message})
}
