package middleware

import (
	"strings"

	"pilotopos/internal/model"
	"pilotopos/internal/service"
	"pilotopos/pkg/database"
	"pilotopos/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/pkg/errors"
)

const (
	LocalTenant        = "tenant"
	LocalUserID        = "user_id"
	LocalUsername      = "username"
	LocalAuthenticated = "authenticated"

	// SessionUserKey holds the logged-in user id in the session.
	SessionUserKey = "user_id"
)

// WithTenant binds every request to the deployment's tenant schema.
func WithTenant(tenant database.Tenant) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(LocalTenant, tenant)
		return c.Next()
	}
}

// TenantOf returns the tenant bound to the request.
func TenantOf(c *fiber.Ctx) database.Tenant {
	if t, ok := c.Locals(LocalTenant).(database.Tenant); ok {
		return t
	}
	return database.DefaultTenant
}

// Authenticated reports whether an earlier middleware identified a user.
func Authenticated(c *fiber.Ctx) bool {
	ok, _ := c.Locals(LocalAuthenticated).(bool)
	return ok
}

type Auth struct {
	store *session.Store
	auth  service.AuthService
}

func NewAuth(store *session.Store, auth service.AuthService) *Auth {
	return &Auth{store: store, auth: auth}
}

// Identify resolves the caller from a bearer token or the session cookie.
// A caller with neither gets jwt.ErrMissingToken.
func (a *Auth) Identify(c *fiber.Ctx) (*model.User, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return nil, jwt.ErrInvalidToken
		}
		return a.auth.Authenticate(c.UserContext(), TenantOf(c), strings.TrimSpace(parts[1]))
	}

	sess, err := a.store.Get(c)
	if err != nil {
		return nil, errors.Wrap(err, "load session")
	}
	id, ok := sess.Get(SessionUserKey).(uint)
	if !ok {
		return nil, jwt.ErrMissingToken
	}
	return a.auth.User(c.UserContext(), TenantOf(c), id)
}

// RequireAuth lets identified callers through. The others get a 303 to
// /login on GET and 401 on anything else. Requests matching a skip func
// pass without identification.
func (a *Auth) RequireAuth(skip ...func(*fiber.Ctx) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, s := range skip {
			if s(c) {
				return c.Next()
			}
		}

		user, err := a.Identify(c)
		if err != nil {
			if !isAuthFailure(err) {
				return err
			}
			if c.Method() == fiber.MethodGet && c.Get(fiber.HeaderAuthorization) == "" {
				return c.Redirect("/login", fiber.StatusSeeOther)
			}
			return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
		}

		mark(c, user)
		return c.Next()
	}
}

// Optional identifies the caller when possible and never rejects.
func (a *Auth) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := a.Identify(c)
		if err != nil && !isAuthFailure(err) {
			return err
		}
		if user != nil {
			mark(c, user)
		}
		return c.Next()
	}
}

func mark(c *fiber.Ctx, user *model.User) {
	c.Locals(LocalUserID, user.ID)
	c.Locals(LocalUsername, user.Username)
	c.Locals(LocalAuthenticated, true)
}

func isAuthFailure(err error) bool {
	return errors.Is(err, jwt.ErrMissingToken) ||
		errors.Is(err, jwt.ErrInvalidToken) ||
		errors.Is(err, service.ErrUserNotFound)
}
