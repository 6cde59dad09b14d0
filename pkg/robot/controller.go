package robot

import (
	"context"
	"sync"
	"time"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/signal"
)

// DefaultMotorRate is the motor output rate (200Hz).
const DefaultMotorRate = 5 * time.Millisecond

// heartbeatTicks is how often the controller logs its counters.
const heartbeatTicks = 1000

// RateController forwards the latest wheel command to the motor driver at a
// fixed rate. Commands arrive faster than the driver wants them, and most
// of them repeat the previous one; unchanged commands are not re-sent.
type RateController struct {
	driver MotorDriver
	rate   time.Duration

	mu      sync.RWMutex
	pending MotorCommand
	dirty   bool

	// Only touched by the loop goroutine.
	lastSent      MotorCommand
	sentOnce      bool
	tickCount     uint64
	skippedTicks  uint64
	errorCount    uint64
	lastErrorTime time.Time
}

// NewRateController creates a controller running at the given rate.
func NewRateController(driver MotorDriver, rate time.Duration) *RateController {
	if rate <= 0 {
		rate = DefaultMotorRate
	}
	return &RateController{
		driver: driver,
		rate:   rate,
	}
}

// Set stores the command to send on the next tick.
func (c *RateController) Set(cmd MotorCommand) {
	c.mu.Lock()
	c.pending = cmd
	c.dirty = true
	c.mu.Unlock()
}

// Current returns the most recently stored command.
func (c *RateController) Current() MotorCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pending
}

// Run drains src into the controller and drives the output loop until ctx
// is cancelled. The motors are stopped on the way out.
func (c *RateController) Run(ctx context.Context, src *signal.Signal[MotorCommand]) error {
	ticker := time.NewTicker(c.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.halt()
			return nil
		case cmd := <-src.C():
			c.Set(cmd)
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick sends the pending command if it differs from what the driver has.
func (c *RateController) tick() {
	c.mu.Lock()
	cmd := c.pending
	dirty := c.dirty
	c.dirty = false
	c.mu.Unlock()

	if c.driver == nil {
		return
	}

	c.tickCount++

	if !dirty || (c.sentOnce && cmd == c.lastSent) {
		c.skippedTicks++
		c.heartbeat(cmd)
		return
	}

	if err := c.driver.SetMotors(cmd); err != nil {
		// Leave dirty set so the next tick retries.
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()

		c.errorCount++
		if c.lastErrorTime.IsZero() || time.Since(c.lastErrorTime) > 5*time.Second {
			log.Component("motor").Warn("set motors failed", "error", err, "errors", c.errorCount)
			c.lastErrorTime = time.Now()
		}
	} else {
		c.lastSent = cmd
		c.sentOnce = true
	}

	c.heartbeat(cmd)
}

func (c *RateController) heartbeat(cmd MotorCommand) {
	if c.tickCount%heartbeatTicks != 0 {
		return
	}
	log.Component("motor").Debug("heartbeat",
		"ticks", c.tickCount,
		"skipped", c.skippedTicks,
		"errors", c.errorCount,
		"fl", cmd.FL, "fr", cmd.FR, "bl", cmd.BL, "br", cmd.BR)
}

func (c *RateController) halt() {
	if c.driver == nil {
		return
	}
	if err := c.driver.SetMotors(MotorCommand{}); err != nil {
		log.Component("motor").Error("stop motors failed", "error", err)
	}
}

// Stats returns the tick, skipped and error counters. Only safe to call
// once Run has returned, or from tests that drive tick directly.
func (c *RateController) Stats() (ticks, skipped, errors uint64) {
	return c.tickCount, c.skippedTicks, c.errorCount
}
