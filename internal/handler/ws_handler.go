package handler

import (
	"encoding/json"

	"pilotopos/internal/middleware"
	"pilotopos/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WSHandler struct {
	hub *ws.Hub
	log *zap.Logger
}

func NewWSHandler(hub *ws.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log.Named("ws")}
}

type joinRequest struct {
	Role string `json:"role"`
}

// Upgrade rejects plain HTTP. It runs after Auth.Optional, whose mark
// decides if the connection may join as admin.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.SendStatus(fiber.StatusUpgradeRequired)
	}
	c.Locals(middleware.LocalAuthenticated, middleware.Authenticated(c))
	return c.Next()
}

// Serve is the per-connection read loop. All writes go through the hub.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		authenticated, _ := c.Locals(middleware.LocalAuthenticated).(bool)
		rs := h.session(c, authenticated)
		defer h.hub.Leave(c)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			rs.handle(msg)
		}
	})
}

func (h *WSHandler) session(conn ws.Conn, authenticated bool) *relaySession {
	h.hub.Attach(conn)
	return &relaySession{h: h, conn: conn, authenticated: authenticated}
}

// relaySession is the state of one relay connection.
type relaySession struct {
	h             *WSHandler
	conn          ws.Conn
	authenticated bool
	role          ws.Role
}

func (s *relaySession) handle(msg []byte) {
	var frame ws.Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		s.reject("invalid frame")
		return
	}

	switch frame.Event {
	case ws.EventJoin:
		var req joinRequest
		_ = json.Unmarshal(frame.Data, &req)
		role, ok := ws.ParseRole(req.Role)
		if !ok {
			s.reject("unknown role")
			return
		}
		if role == ws.RoleAdmin && !s.authenticated {
			s.reject("admin role requires login")
			return
		}
		s.role = role
		s.h.hub.Join(s.conn, role)

	case ws.EventUpdateDisplay:
		if s.role != ws.RoleAdmin {
			s.reject("only admin clients may update the display")
			return
		}
		s.h.hub.Publish(frame.Data)

	default:
		s.reject("unknown event")
	}
}

func (s *relaySession) reject(reason string) {
	frame, err := ws.NewFrame(ws.EventError, fiber.Map{"message": reason})
	if err != nil {
		return
	}
	s.h.log.Debug("relay frame rejected", zap.String("reason", reason))
	s.h.hub.Reply(s.conn, frame)
}
