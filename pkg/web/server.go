// Package web serves the operator HTTP API: robot status, debug variables,
// debug functions and live variable and log streams.
package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/hub"
	"github.com/chamburr/soccer/pkg/protocol"
)

// DefaultPollInterval is how often the variable table is checked for
// changes to stream.
const DefaultPollInterval = 100 * time.Millisecond

// shutdownTimeout bounds graceful shutdown of open connections.
const shutdownTimeout = 3 * time.Second

// RouteRegistrar mounts extra routes, e.g. the console hub.
type RouteRegistrar interface {
	RegisterRoutes(router fiber.Router)
	RegisterAPIRoutes(api fiber.Router)
}

// Deps are the robot-side providers behind the API. Any of them may be nil.
type Deps struct {
	Status    func() protocol.StatusData
	Variables *debug.Variables
	Functions *debug.Registry
	Consoles  RouteRegistrar
}

// Server is the operator API server
type Server struct {
	app  *fiber.App
	addr string
	deps Deps

	// PollInterval is read by Run.
	PollInterval time.Duration

	variablesHub *hub.Hub
	logHub       *hub.Hub
}

// NewServer creates the API server listening on addr once Run is called.
func NewServer(addr string, deps Deps) *Server {
	if deps.Variables == nil {
		deps.Variables = debug.NewVariables()
	}
	if deps.Functions == nil {
		deps.Functions = debug.NewRegistry()
	}

	s := &Server{
		addr:         addr,
		deps:         deps,
		PollInterval: DefaultPollInterval,
		variablesHub: hub.New("variables"),
		logHub:       hub.New("logs"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Soccer",
		DisableStartupMessage: true,
	})

	// CORS for the browser console
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/variables", s.handleVariables)
	api.Get("/variables/:name", s.handleVariable)
	api.Get("/functions", s.handleListFunctions)
	api.Post("/functions/:name", s.handleCallFunction)

	if deps.Consoles != nil {
		deps.Consoles.RegisterRoutes(app)
		deps.Consoles.RegisterAPIRoutes(api)
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/variables", websocket.New(s.handleVariablesWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// LogHandler returns a handler that streams records at or above level to
// /ws/logs viewers. Pass it to log.Tee.
func (s *Server) LogHandler(level slog.Leveler) slog.Handler {
	return hub.NewLogHandler(s.logHub, level)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := log.Component("web")

	go s.variablesHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.pollVariables(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}

// pollVariables streams the variable table whenever it changed and someone
// is watching.
func (s *Server) pollVariables(ctx context.Context) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.variablesHub.ClientCount() == 0 {
				continue
			}
			values, seq := s.deps.Variables.Snapshot()
			if seq == last {
				continue
			}
			last = seq
			if m, err := variablesMessage(values, seq); err == nil {
				s.variablesHub.Broadcast(m)
			}
		}
	}
}

func variablesMessage(values map[string]string, seq uint64) (hub.Message, error) {
	msg, err := protocol.NewVariablesMessage(seq, values)
	if err != nil {
		return hub.Message{}, err
	}
	data, err := msg.Bytes()
	if err != nil {
		return hub.Message{}, err
	}
	return hub.NewJSONMessage(data), nil
}

// Shutdown stops the server immediately.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
