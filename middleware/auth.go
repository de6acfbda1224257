package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Onboarding/Models"
	"Onboarding/Session"
)

// Auth guards routes with the session cookie.
type Auth struct {
	Sessions *Session.Manager
	Logger   logrus.FieldLogger
}

func NewAuth(sessions *Session.Manager, logger logrus.FieldLogger) *Auth {
	return &Auth{Sessions: sessions, Logger: logger}
}

// Verify resolves the session and requires at least requiredPermission
// (Models.PermissionEmployee or Models.PermissionAdmin).
func (a *Auth) Verify(requiredPermission int) fiber.Handler {
	if requiredPermission <= 0 {
		requiredPermission = Models.PermissionEmployee
	}
	return func(c *fiber.Ctx) error {
		token := Session.Token(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not Logged In.",
			})
		}

		ctx, err := a.Sessions.Resolve(token)
		if errors.Is(err, Session.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		if err != nil {
			a.Logger.WithError(err).Error("failed to resolve session")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to resolve session",
			})
		}

		// Store the session for handlers and the request logger
		Session.Store(c, ctx)

		if ctx.User.Permission >= requiredPermission {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Insufficient permissions to access this resource",
		})
	}
}
