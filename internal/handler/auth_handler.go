package handler

import (
	"pilotopos/internal/middleware"
	"pilotopos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type AuthHandler struct {
	sessions    *Sessions
	auth        *middleware.Auth
	authService service.AuthService
}

func NewAuthHandler(sessions *Sessions, auth *middleware.Auth, authService service.AuthService) *AuthHandler {
	return &AuthHandler{sessions: sessions, auth: auth, authService: authService}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginStatus reports who is logged in and any pending login message.
// GET /login
func (h *AuthHandler) LoginStatus(c *fiber.Ctx) error {
	view := fiber.Map{"authenticated": false}
	if user, err := h.auth.Identify(c); err == nil {
		view["authenticated"] = true
		view["username"] = user.Username
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	if msg, ok := h.sessions.PopFlash(sess); ok {
		view["mensaje"] = msg
		if err := sess.Save(); err != nil {
			return errors.Wrap(err, "save session")
		}
	}
	return c.JSON(view)
}

// Login starts a session. JSON clients also get a bearer token; form posts
// are redirected.
// POST /login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	isJSON := c.Is("json")
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.authService.Login(c.UserContext(), middleware.TenantOf(c), req.Username, req.Password)
	if err != nil && !errors.Is(err, service.ErrInvalidCredentials) {
		return err
	}

	sess, serr := h.sessions.Get(c)
	if serr != nil {
		return serr
	}

	if err != nil {
		if isJSON {
			return c.Status(401).JSON(fiber.Map{"error": service.ErrInvalidCredentials.Error()})
		}
		sess.Set(sessFlash, "Usuario o contraseña incorrectos.")
		if err := sess.Save(); err != nil {
			return errors.Wrap(err, "save session")
		}
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	if err := sess.Regenerate(); err != nil {
		return errors.Wrap(err, "regenerate session")
	}
	sess.Set(middleware.SessionUserKey, result.User.ID)
	if err := sess.Save(); err != nil {
		return errors.Wrap(err, "save session")
	}

	if isJSON {
		return c.JSON(result)
	}
	return c.Redirect("/venta", fiber.StatusSeeOther)
}

// Logout clears the whole session, cart included.
// GET /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	if err := sess.Destroy(); err != nil {
		return errors.Wrap(err, "destroy session")
	}
	return c.Redirect("/login", fiber.StatusSeeOther)
}
