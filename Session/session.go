// Package Session owns the signed-in state of a browser: a JWT cookie whose
// "jti" names a row in the sessions table. Handlers receive the resolved
// Context instead of reading tokens themselves.
package Session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"Onboarding/Models"
)

const (
	CookieName = "jwt"
	localsKey  = "session"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

// Context is the per-request view of the signed-in user. Employee is nil until
// the user has submitted their onboarding details.
type Context struct {
	SessionID string           `json:"-"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      Models.User      `json:"user"`
	Employee  *Models.Employee `json:"employee"`
}

func (c *Context) IsAdmin() bool {
	return c.User.IsAdmin()
}

// Refresh reloads the employee record, e.g. after onboarding details were
// submitted within the same request.
func (c *Context) Refresh(db *gorm.DB) error {
	employee, err := Models.GetEmployeeByUserID(db, c.User.ID)
	if errors.Is(err, Models.ErrNotFound) {
		c.Employee = nil
		return nil
	}
	if err != nil {
		return err
	}
	c.Employee = employee
	return nil
}

type Manager struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewManager(db *gorm.DB, secret string, ttl time.Duration) *Manager {
	return &Manager{DB: db, Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// SignIn checks the credentials and opens a new session.
func (m *Manager) SignIn(email, password string) (string, *Context, error) {
	user, err := Models.GetUserByEmail(m.DB, email)
	if errors.Is(err, Models.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !user.CheckPassword(password) {
		return "", nil, ErrInvalidCredentials
	}
	return m.Issue(*user)
}

// Issue opens a session for an already authenticated user and returns the
// signed token.
func (m *Manager) Issue(user Models.User) (string, *Context, error) {
	now := m.now()
	session := &Models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.TTL),
	}
	if err := Models.CreateSession(m.DB, session); err != nil {
		return "", nil, err
	}

	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Issuer:    strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	ctx := &Context{SessionID: session.ID, ExpiresAt: session.ExpiresAt, User: user}
	if err := ctx.Refresh(m.DB); err != nil {
		return "", nil, err
	}
	return token, ctx, nil
}

// Resolve turns a token into the session context. Expired, revoked or forged
// tokens give ErrInvalidToken.
func (m *Manager) Resolve(token string) (*Context, error) {
	claims, err := m.parse(token, true)
	if err != nil {
		return nil, err
	}

	session, err := Models.GetSession(m.DB, claims.ID)
	if errors.Is(err, Models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if !session.Active(m.now()) || strconv.FormatUint(uint64(session.UserID), 10) != claims.Issuer {
		return nil, ErrInvalidToken
	}

	user, err := Models.GetUser(m.DB, session.UserID)
	if errors.Is(err, Models.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}

	ctx := &Context{SessionID: session.ID, ExpiresAt: session.ExpiresAt, User: *user}
	if err := ctx.Refresh(m.DB); err != nil {
		return nil, err
	}
	return ctx, nil
}

// SignOut revokes the session behind token. Expired tokens can still be
// signed out.
func (m *Manager) SignOut(token string) error {
	claims, err := m.parse(token, false)
	if err != nil {
		return err
	}
	return Models.RevokeSession(m.DB, claims.ID, m.now())
}

func (m *Manager) parse(token string, validate bool) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var options []jwt.ParserOption
	if !validate {
		options = append(options, jwt.WithoutClaimsValidation())
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.Secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Cookie builds the session cookie; an empty token builds the cookie that
// clears it.
func Cookie(token string, expires time.Time) *fiber.Cookie {
	cookie := &fiber.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if token == "" {
		cookie.Expires = time.Now().Add(-time.Hour)
	}
	return cookie
}

// Token reads the session token from the cookie or a bearer header.
func Token(c *fiber.Ctx) string {
	if token := c.Cookies(CookieName); token != "" {
		return token
	}
	const prefix = "Bearer "
	if header := c.Get(fiber.HeaderAuthorization); len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func Store(c *fiber.Ctx, ctx *Context) {
	c.Locals(localsKey, ctx)
}

// From returns the context stored by the auth middleware, nil on public routes.
func From(c *fiber.Ctx) *Context {
	ctx, _ := c.Locals(localsKey).(*Context)
	return ctx
}
