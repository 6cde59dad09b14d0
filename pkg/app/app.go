// Package app assembles the control core: estimators, strategy, motion
// loops, motor output, the operator API and the MQTT bridge.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/bridge"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/estimate"
	"github.com/chamburr/soccer/pkg/movement"
	"github.com/chamburr/soccer/pkg/protocol"
	"github.com/chamburr/soccer/pkg/remote"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/settings"
	"github.com/chamburr/soccer/pkg/strategy"
	"github.com/chamburr/soccer/pkg/web"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("app: invalid config")

// Config is the application configuration.
type Config struct {
	Addr string // operator API, empty disables it

	// MQTT is used when MQTTEnabled is set; the bridge then also drives
	// the motors unless a driver is passed to New.
	MQTT        bridge.Config
	MQTTEnabled bool

	Settings   settings.Config
	Coordinate estimate.CoordinateConfig

	MotorRate         time.Duration
	StatusInterval    time.Duration // console status push
	TelemetryInterval time.Duration // MQTT status publish

	// StreamLogs tees the global logger into /ws/logs at LogLevel.
	StreamLogs bool
	LogLevel   slog.Level
}

// DefaultConfig returns the on-robot defaults.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		MQTT:              bridge.DefaultConfig(),
		MQTTEnabled:       true,
		Settings:          settings.DefaultConfig(),
		Coordinate:        estimate.DefaultCoordinateConfig(),
		MotorRate:         robot.DefaultMotorRate,
		StatusInterval:    200 * time.Millisecond,
		TelemetryInterval: 100 * time.Millisecond,
		StreamLogs:        true,
		LogLevel:          slog.LevelInfo,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Settings.Validate(); err != nil {
		return err
	}
	if c.MotorRate <= 0 || c.StatusInterval <= 0 || c.TelemetryInterval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	}
	if c.MQTTEnabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt broker required", ErrInvalidConfig)
	}
	if c.Coordinate.DistanceOffset < 0 {
		return fmt.Errorf("%w: negative distance offset", ErrInvalidConfig)
	}
	return nil
}

// App owns every task of the robot.
type App struct {
	cfg    Config
	logger *slog.Logger

	World     *worldmodel.WorldModel
	Bus       *robot.Bus
	Settings  *settings.Store
	Vars      *debug.Variables
	Functions *debug.Registry

	Movement *movement.Manager
	Motors   *robot.RateController

	heading    *estimate.Heading
	coordinate *estimate.CoordinateTask
	ball       *estimate.Ball
	strategy   *strategy.Task

	web      *web.Server
	consoles *remote.Hub
	bridge   *bridge.Bridge
}

// New builds the application. Wheel commands go to driver; when driver is
// nil they go to the MQTT bridge, or nowhere if that is disabled.
func New(cfg Config, driver robot.MotorDriver) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := settings.NewStore(cfg.Settings)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:       cfg,
		World:     worldmodel.New(),
		Bus:       robot.NewBus(),
		Settings:  st,
		Vars:      debug.NewVariables(),
		Functions: debug.NewRegistry(),
	}

	a.consoles = remote.NewHub(a.Functions, a.Status)
	if cfg.Addr != "" {
		a.web = web.NewServer(cfg.Addr, web.Deps{
			Status:    a.Status,
			Variables: a.Vars,
			Functions: a.Functions,
			Consoles:  a.consoles,
		})
		// Before any component logger is created, so they all stream.
		if cfg.StreamLogs {
			log.Tee(a.web.LogHandler(cfg.LogLevel))
		}
	}
	a.logger = log.Component("app")

	if cfg.MQTTEnabled {
		a.bridge = bridge.New(cfg.MQTT, a.Bus)
		if driver == nil {
			driver = a.bridge
		}
	}

	a.heading = estimate.NewHeading(a.World, a.Bus)
	a.coordinate = estimate.NewCoordinateTask(estimate.NewCoordinate(cfg.Coordinate, a.Vars), a.World, a.Bus)
	a.ball = estimate.NewBall(a.World, a.Bus, a.Vars)
	a.strategy = strategy.NewTask(strategy.NewArbiter(nil, a.Vars), a.World, a.Bus, a.Settings)
	a.Movement = movement.NewManager(a.World, a.Bus, a.Settings, a.Vars)
	a.Motors = robot.NewRateController(driver, cfg.MotorRate)

	a.registerFunctions()
	return a, nil
}

// Run starts every task and blocks until ctx is done or a task fails.
func (a *App) Run(ctx context.Context) error {
	if a.bridge != nil {
		if err := a.bridge.Connect(); err != nil {
			return err
		}
	}

	a.logger.Info("starting",
		"goalie", a.Settings.Goalie(),
		"addr", a.cfg.Addr,
		"mqtt", a.cfg.MQTTEnabled)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.heading.Run(ctx) })
	g.Go(func() error { return a.coordinate.Run(ctx) })
	g.Go(func() error { return a.ball.Run(ctx) })
	g.Go(func() error { return a.strategy.Run(ctx) })
	g.Go(func() error { return a.Movement.RunRotation(ctx) })
	g.Go(func() error { return a.Movement.RunTranslation(ctx) })
	g.Go(func() error { return a.Movement.RunDrive(ctx) })
	g.Go(func() error { return a.Motors.Run(ctx, a.Bus.Motor) })
	g.Go(func() error { return a.watchStart(ctx) })
	g.Go(func() error { return a.consoles.Run(ctx, a.cfg.StatusInterval) })

	if a.web != nil {
		g.Go(func() error { return a.web.Run(ctx) })
	}
	if a.bridge != nil {
		g.Go(func() error { return a.bridge.RunTelemetry(ctx, a.Status, a.cfg.TelemetryInterval) })
	}

	err := g.Wait()
	a.logger.Info("shut down")
	return multierr.Append(err, a.Shutdown())
}

// Shutdown releases the external connections. The API server is already
// stopped by Run.
func (a *App) Shutdown() error {
	var err error
	if a.bridge != nil {
		err = multierr.Append(err, a.bridge.Close())
	}
	return err
}

// watchStart follows the start module: high starts the robot, low stops it.
func (a *App) watchStart(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case start := <-a.Bus.Start.C():
			if start {
				if err := a.Start(); err != nil {
					a.logger.Error("start failed", "error", err)
				}
			} else {
				a.Stop()
			}
		}
	}
}

// Start clears the go-home overrides and enables the motion loops.
func (a *App) Start() error {
	if _, err := a.Settings.Update(func(c *settings.Config) {
		c.GoHome, c.GoOther, c.Started = false, false, true
	}); err != nil {
		return err
	}
	a.logger.Info("started")
	return nil
}

// Stop disables the motion loops and stops the wheels.
func (a *App) Stop() {
	a.Movement.Stop()
	a.logger.Info("stopped")
}

// Status returns a snapshot for the operator API and telemetry.
func (a *App) Status() protocol.StatusData {
	s := a.World.State()
	cfg := a.Settings.Get()
	m := a.Motors.Current()

	return protocol.StatusData{
		Strategy:   a.strategy.Kind().String(),
		Started:    cfg.Started,
		Goalie:     cfg.Goalie,
		Heading:    s.Heading,
		Coordinate: protocol.Position(s.Coordinate),
		Ball:       protocol.Position(s.Ball),
		Goal:       protocol.Position(s.Goal),
		Motors:     [4]int16{m.FL, m.FR, m.BL, m.BR},
	}
}
