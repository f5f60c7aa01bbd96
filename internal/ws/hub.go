package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"pilotopos/internal/metrics"

	"github.com/gofiber/contrib/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// sendBuffer is how many frames a client may lag behind before it is dropped.
	sendBuffer = 8
	writeWait  = 5 * time.Second
)

var (
	// ErrHubStopped is returned once Run has returned.
	ErrHubStopped = errors.New("relay hub stopped")
	// ErrHubBusy is returned when a notification could not be queued.
	ErrHubBusy = errors.New("relay hub busy")
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Role string

const (
	RoleDisplay Role = "display"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleDisplay, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

const (
	EventJoin          = "join"
	EventUpdateDisplay = "update-display"
	EventSaleRecorded  = "venta-registrada"
	EventError         = "error"
)

// Frame is the JSON envelope of every message on the channel.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewFrame(event string, data interface{}) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Event: event, Data: raw}, nil
}

// client is one attached connection. Only its writer goroutine writes to
// conn; the hub only queues on send.
type client struct {
	conn Conn
	role Role // empty until the connection joins
	send chan []byte
}

type subscription struct {
	conn Conn
	role Role
}

type delivery struct {
	role  Role // empty means a single conn
	conn  Conn
	frame Frame
}

// Hub relays display state from admin clients to display clients and keeps
// the last published state for displays that join later.
type Hub struct {
	clients    map[Conn]*client
	last       json.RawMessage
	register   chan subscription
	unregister chan Conn
	publish    chan json.RawMessage
	deliver    chan delivery
	done       chan struct{}
	mutex      sync.RWMutex

	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewHub(log *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:    make(map[Conn]*client),
		register:   make(chan subscription),
		unregister: make(chan Conn),
		publish:    make(chan json.RawMessage),
		deliver:    make(chan delivery, 16),
		done:       make(chan struct{}),
		log:        log.Named("hub"),
		metrics:    m,
	}
}

// Attach registers conn without a role so replies can reach it.
func (h *Hub) Attach(conn Conn) {
	h.Join(conn, "")
}

// Join subscribes conn under role. Joining again switches the role.
func (h *Hub) Join(conn Conn, role Role) {
	select {
	case h.register <- subscription{conn: conn, role: role}:
	case <-h.done:
	}
}

// Leave unsubscribes and closes conn.
func (h *Hub) Leave(conn Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
		conn.Close()
	}
}

// Publish stores payload as the display state and forwards it verbatim.
func (h *Hub) Publish(payload json.RawMessage) {
	select {
	case h.publish <- payload:
	case <-h.done:
	}
}

// NotifyAdmins queues an event for admin clients only. It never waits: a
// full queue drops the notification with ErrHubBusy.
func (h *Hub) NotifyAdmins(event string, data interface{}) error {
	frame, err := NewFrame(event, data)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.deliver <- delivery{role: RoleAdmin, frame: frame}:
		return nil
	case <-h.done:
		return ErrHubStopped
	default:
		return ErrHubBusy
	}
}

// Reply sends a frame to a single attached connection.
func (h *Hub) Reply(conn Conn, frame Frame) {
	select {
	case h.deliver <- delivery{conn: conn, frame: frame}:
	case <-h.done:
	}
}

// LastState returns a copy of the retained display state, nil if none.
func (h *Hub) LastState() json.RawMessage {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.last == nil {
		return nil
	}
	return append(json.RawMessage(nil), h.last...)
}

// Count returns the number of clients joined under role.
func (h *Hub) Count(role Role) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, cl := range h.clients {
		if cl.role == role {
			n++
		}
	}
	return n
}

// Run serves the hub until ctx is done, then closes every client. It never
// writes to a connection itself.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				h.remove(conn)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.join(sub)
			h.mutex.Unlock()

		case conn := <-h.unregister:
			h.mutex.Lock()
			h.remove(conn)
			h.mutex.Unlock()
			conn.Close()

		case payload := <-h.publish:
			h.mutex.Lock()
			h.last = payload
			h.fanOut(RoleDisplay, Frame{Event: EventUpdateDisplay, Data: payload})
			h.mutex.Unlock()
			h.metrics.RecordPublish()

		case d := <-h.deliver:
			h.mutex.Lock()
			if d.conn != nil {
				if cl, ok := h.clients[d.conn]; ok {
					h.enqueue(cl, d.frame)
				}
			} else {
				h.fanOut(d.role, d.frame)
			}
			h.mutex.Unlock()
		}
	}
}

// The helpers below must be called with the mutex held.

func (h *Hub) join(sub subscription) {
	cl, ok := h.clients[sub.conn]
	if !ok {
		cl = &client{conn: sub.conn, send: make(chan []byte, sendBuffer)}
		h.clients[sub.conn] = cl
		go h.writePump(cl)
	}
	if cl.role == sub.role {
		return
	}
	if cl.role != "" {
		h.metrics.ClientLeft(string(cl.role))
	}
	cl.role = sub.role
	if cl.role == "" {
		return
	}
	h.metrics.ClientJoined(string(cl.role))
	h.log.Debug("relay client joined", zap.String("role", string(cl.role)))
	if cl.role == RoleDisplay && h.last != nil {
		h.enqueue(cl, Frame{Event: EventUpdateDisplay, Data: h.last})
	}
}

func (h *Hub) remove(conn Conn) {
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(cl.send)
	if cl.role != "" {
		h.metrics.ClientLeft(string(cl.role))
	}
	conn.Close()
}

func (h *Hub) fanOut(role Role, frame Frame) {
	for _, cl := range h.clients {
		if cl.role == role {
			h.enqueue(cl, frame)
		}
	}
}

// enqueue drops a client whose queue is full.
func (h *Hub) enqueue(cl *client, frame Frame) {
	msg, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("encode relay frame", zap.Error(err))
		return
	}
	select {
	case cl.send <- msg:
	default:
		h.log.Warn("relay client too slow, dropping", zap.String("role", string(cl.role)))
		h.remove(cl.conn)
	}
}

// writePump drains one client's queue. A failed write hands the client back
// to the hub for removal.
func (h *Hub) writePump(cl *client) {
	for msg := range cl.send {
		_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Warn("relay write failed, dropping client", zap.Error(err))
			h.Leave(cl.conn)
			for range cl.send {
			}
			return
		}
	}
}
