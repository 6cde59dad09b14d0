package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/hub"
	"github.com/chamburr/soccer/pkg/protocol"
)

// CallRequest is the request body for calling a debug function
type CallRequest struct {
	Args map[string]string `json:"args"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the robot's current beliefs
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.deps.Status == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "status not available",
		})
	}
	return c.JSON(s.deps.Status())
}

// handleVariables returns every debug variable
func (s *Server) handleVariables(c *fiber.Ctx) error {
	values, seq := s.deps.Variables.Snapshot()
	return c.JSON(protocol.VariablesData{Seq: seq, Values: values})
}

func (s *Server) handleVariable(c *fiber.Ctx) error {
	name := c.Params("name")
	value, ok := s.deps.Variables.Get(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown variable " + name,
		})
	}
	return c.JSON(fiber.Map{"name": name, "value": value})
}

// handleListFunctions returns the callable debug functions
func (s *Server) handleListFunctions(c *fiber.Ctx) error {
	return c.JSON(s.deps.Functions.List())
}

// handleCallFunction runs a debug function
func (s *Server) handleCallFunction(c *fiber.Ctx) error {
	name := c.Params("name")

	var req CallRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	err := s.deps.Functions.Call(c.UserContext(), name, req.Args)
	switch {
	case err == nil:
	case errors.Is(err, debug.ErrUnknownFunction):
		return c.Status(fiber.StatusNotFound).JSON(protocol.ResultData{Function: name, Error: err.Error()})
	case errors.Is(err, debug.ErrBadArgument):
		return c.Status(fiber.StatusBadRequest).JSON(protocol.ResultData{Function: name, Error: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(protocol.ResultData{Function: name, Error: err.Error()})
	}

	return c.JSON(protocol.ResultData{Function: name, OK: true})
}

// handleVariablesWS streams variable snapshots, starting with the current one
func (s *Server) handleVariablesWS(c *websocket.Conn) {
	var first []hub.Message
	if m, err := variablesMessage(s.deps.Variables.Snapshot()); err == nil {
		first = append(first, m)
	}
	hub.NewClient(s.variablesHub, c, first...).Run()
}

// handleLogsWS streams log records
func (s *Server) handleLogsWS(c *websocket.Conn) {
	hub.NewClient(s.logHub, c).Run()
}
