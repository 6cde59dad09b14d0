// Package remote serves operator consoles over WebSocket. A console receives
// periodic status snapshots and may call debug functions.
package remote

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/protocol"
)

// ErrNotConnected is returned when sending to an unknown session.
var ErrNotConnected = errors.New("remote: console not connected")

// callTimeout bounds a single debug function call.
const callTimeout = 5 * time.Second

// Caller runs a named debug function.
type Caller interface {
	Call(ctx context.Context, name string, raw map[string]string) error
}

// StatusFunc returns the current robot status.
type StatusFunc func() protocol.StatusData

// Session is a connected console
type Session struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time
	LastSeen  time.Time

	mu sync.Mutex
}

// Send writes a message to the console
func (s *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.LastSeen = time.Now()
	s.mu.Unlock()
}

// Hub manages console sessions
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	caller Caller
	status StatusFunc
	logger *slog.Logger

	// Stats
	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	callsFailed      atomic.Uint64
}

// NewHub creates a console hub. status may be nil.
func NewHub(caller Caller, status StatusFunc) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		caller:   caller,
		status:   status,
		logger:   log.Component("remote"),
	}
}

// RegisterRoutes registers the console WebSocket endpoints
func (h *Hub) RegisterRoutes(router fiber.Router) {
	router.Use("/ws/console", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws/console", websocket.New(h.handleConsole))
	router.Get("/ws/console/:id", websocket.New(h.handleConsole))
}

// RegisterAPIRoutes registers console management routes
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	consoles := api.Group("/consoles")

	consoles.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"consoles": h.SessionInfos(),
			"count":    h.SessionCount(),
		})
	})

	consoles.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.Stats())
	})
}

func (h *Hub) handleConsole(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now()
	session := &Session{ID: id, Conn: c, Connected: now, LastSeen: now}

	h.mu.Lock()
	h.sessions[id] = session
	count := len(h.sessions)
	h.mu.Unlock()
	h.logger.Info("console connected", "id", id, "consoles", count)

	defer func() {
		h.mu.Lock()
		if h.sessions[id] == session {
			delete(h.sessions, id)
		}
		count := len(h.sessions)
		h.mu.Unlock()
		h.logger.Info("console disconnected", "id", id, "consoles", count)
	}()

	if h.status != nil {
		if msg, err := protocol.NewStatusMessage(h.status()); err == nil {
			h.send(session, msg)
		}
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("console read failed", "id", id, "error", err)
			return
		}

		session.touch()
		h.messagesReceived.Add(1)
		h.handleMessage(session, data)
	}
}

func (h *Hub) handleMessage(s *Session, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("bad console message", "id", s.ID, "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeCall:
		call, err := msg.GetCallData()
		if err != nil {
			h.reply(s, msg.ID, "", err)
			return
		}
		h.reply(s, msg.ID, call.Function, h.call(call))

	case protocol.TypePing:
		ping, _ := msg.GetPingData()
		id := ""
		if ping != nil {
			id = ping.ID
		}
		if pong, err := protocol.NewPongMessage(id, msg.Timestamp, time.Now().UnixMilli()); err == nil {
			h.send(s, pong)
		}
	}
}

func (h *Hub) call(call *protocol.CallData) error {
	if h.caller == nil {
		return errors.New("remote: no functions registered")
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	err := h.caller.Call(ctx, call.Function, call.Args)
	if err != nil {
		h.callsFailed.Add(1)
		h.logger.Warn("console call failed", "function", call.Function, "error", err)
	} else {
		h.logger.Info("console call", "function", call.Function)
	}
	return err
}

func (h *Hub) reply(s *Session, callID, function string, err error) {
	msg, merr := protocol.NewResultMessage(callID, function, err)
	if merr != nil {
		return
	}
	h.send(s, msg)
}

func (h *Hub) send(s *Session, msg *protocol.Message) {
	h.messagesSent.Add(1)
	if err := s.Send(msg); err != nil {
		h.logger.Debug("console write failed", "id", s.ID, "error", err)
	}
}

// SendTo sends a message to one console
func (h *Hub) SendTo(id string, msg *protocol.Message) error {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}
	h.messagesSent.Add(1)
	return s.Send(msg)
}

// Broadcast sends a message to every console
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		h.send(s, msg)
	}
}

// Run broadcasts a status snapshot every interval while consoles are
// connected.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	if h.status == nil {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if h.SessionCount() == 0 {
				continue
			}
			msg, err := protocol.NewStatusMessage(h.status())
			if err != nil {
				h.logger.Warn("status encode failed", "error", err)
				continue
			}
			h.Broadcast(msg)
		}
	}
}

// SessionCount returns the number of connected consoles
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Stats contains hub statistics
type Stats struct {
	Consoles         int    `json:"consoles"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	CallsFailed      uint64 `json:"calls_failed"`
}

// Stats returns hub statistics
func (h *Hub) Stats() Stats {
	return Stats{
		Consoles:         h.SessionCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		CallsFailed:      h.callsFailed.Load(),
	}
}

// SessionInfo describes a connected console
type SessionInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
}

// SessionInfos returns info about every connected console
func (h *Hub) SessionInfos() []SessionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		s.mu.Lock()
		infos = append(infos, SessionInfo{ID: s.ID, Connected: s.Connected, LastSeen: s.LastSeen})
		s.mu.Unlock()
	}
	return infos
}
