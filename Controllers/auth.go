package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"Onboarding/Models"
	"Onboarding/Session"
)

// AuthController handles sign-up, sign-in and sign-out
type AuthController struct {
	DB        *gorm.DB
	Sessions  *Session.Manager
	Validator *Validator
	Logger    logrus.FieldLogger
	// IsAdminEmail decides which sign-ups become admins.
	IsAdminEmail func(email string) bool
}

func NewAuthController(db *gorm.DB, sessions *Session.Manager, validator *Validator, logger logrus.FieldLogger, isAdminEmail func(string) bool) *AuthController {
	return &AuthController{DB: db, Sessions: sessions, Validator: validator, Logger: logger, IsAdminEmail: isAdminEmail}
}

type signUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=120"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUp registers an account and signs it in
func (c *AuthController) SignUp(ctx *fiber.Ctx) error {
	var input signUpInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	permission := Models.PermissionEmployee
	if c.IsAdminEmail != nil && c.IsAdminEmail(input.Email) {
		permission = Models.PermissionAdmin
	}

	user, err := Models.CreateUser(c.DB, input.Email, input.Name, input.Password, permission)
	if errors.Is(err, Models.ErrAlreadyExists) {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "An account with this email already exists"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to create account")
	}

	token, session, err := c.Sessions.Issue(*user)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to sign in")
	}
	ctx.Cookie(Session.Cookie(token, session.ExpiresAt))
	return ctx.Status(fiber.StatusCreated).JSON(session)
}

// Login signs in with email and password
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input loginInput
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	token, session, err := c.Sessions.SignIn(input.Email, input.Password)
	if errors.Is(err, Session.ErrInvalidCredentials) {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to sign in")
	}

	ctx.Cookie(Session.Cookie(token, session.ExpiresAt))
	return ctx.JSON(session)
}

// Logout revokes the session and clears the cookie. Signing out without a
// valid session still succeeds.
func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	if token := Session.Token(ctx); token != "" {
		err := c.Sessions.SignOut(token)
		if err != nil && !errors.Is(err, Session.ErrInvalidToken) {
			return serverError(ctx, c.Logger, err, "Failed to sign out")
		}
	}
	ctx.Cookie(Session.Cookie("", ctx.Context().Time()))
	return ctx.JSON(fiber.Map{"message": "Signed out"})
}

// Me returns the signed-in user and their employee record, if any
func (c *AuthController) Me(ctx *fiber.Ctx) error {
	return ctx.JSON(Session.From(ctx))
}

// DeviceController stores push notification tokens
type DeviceController struct {
	DB        *gorm.DB
	Validator *Validator
	Logger    logrus.FieldLogger
}

func NewDeviceController(db *gorm.DB, validator *Validator, logger logrus.FieldLogger) *DeviceController {
	return &DeviceController{DB: db, Validator: validator, Logger: logger}
}

// SaveToken registers the device token of the signed-in user
func (c *DeviceController) SaveToken(ctx *fiber.Ctx) error {
	var input Models.UpdateTokenRequest
	if ok, err := c.Validator.Bind(ctx, &input); !ok {
		return err
	}

	token, err := Models.SaveToken(c.DB, Session.From(ctx).User.ID, input.Value)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to save device token")
	}
	return ctx.Status(fiber.StatusCreated).JSON(token)
}
