package handler

import (
	"pilotopos/internal/model"
	"pilotopos/internal/service"
	"pilotopos/pkg/database"
	"pilotopos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Session keys.
const (
	sessCart        = "carrito"
	sessFlash       = "mensaje"
	sessLastReceipt = "ultimo_ticket"
)

// statusFor maps service errors onto HTTP status codes. Zero means the
// error is unexpected and goes to the fiber error handler.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidCartLine),
		errors.Is(err, service.ErrIndexOutOfRange),
		errors.Is(err, service.ErrEmptyCart):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrSupplierNotFound),
		errors.Is(err, service.ErrSaleNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, database.ErrConstraint):
		return fiber.StatusConflict
	}
	return 0
}

// fail answers known errors with key=false plus the message and hands the
// rest to the error handler.
func fail(c *fiber.Ctx, key string, err error) error {
	status := statusFor(err)
	if status == 0 {
		return err
	}
	return c.Status(status).JSON(fiber.Map{key: false, "error": message(err)})
}

// message is the client facing text of a known error.
func message(err error) string {
	if errors.Is(err, service.ErrIndexOutOfRange) {
		return "index out of range"
	}
	return err.Error()
}

// Sessions wraps the session store with the typed values the handlers keep.
type Sessions struct {
	store *session.Store
}

func NewSessions(store *session.Store) *Sessions {
	return &Sessions{store: store}
}

func (s *Sessions) Get(c *fiber.Ctx) (*session.Session, error) {
	sess, err := s.store.Get(c)
	return sess, errors.Wrap(err, "load session")
}

// Cart decodes the session cart. A corrupt value reads as an empty cart.
func (s *Sessions) Cart(c *fiber.Ctx, sess *session.Session) *model.Cart {
	raw, _ := sess.Get(sessCart).(string)
	cart, err := model.ParseCart(raw)
	if err != nil {
		logger.FromCtx(c).Warn("discarding unreadable cart", zap.Error(err))
		return &model.Cart{}
	}
	return cart
}

func (s *Sessions) SaveCart(sess *session.Session, cart *model.Cart) error {
	raw, err := cart.Encode()
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	sess.Set(sessCart, raw)
	return errors.Wrap(sess.Save(), "save session")
}

// PopFlash returns and clears the one-shot message.
func (s *Sessions) PopFlash(sess *session.Session) (string, bool) {
	msg, ok := sess.Get(sessFlash).(string)
	if ok {
		sess.Delete(sessFlash)
	}
	return msg, ok
}
