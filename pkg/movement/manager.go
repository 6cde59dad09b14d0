// Package movement turns heading and coordinate targets into wheel commands.
//
// Three loops run concurrently:
//   - the rotation loop drives the heading error to zero
//   - the translation loop drives the distance to the target coordinate to zero
//   - the drive loop mixes both outputs into motor commands
//
// The rotation and translation loops only produce output while the robot is
// started, and rebuild their PID state whenever the target changes.
package movement

import (
	"context"
	"math"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/settings"
	"github.com/chamburr/soccer/pkg/signal"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

const (
	// NoCoordinateMax caps the translation speed while the robot is lost.
	NoCoordinateMax = 0.5
	// StrikerDistance keeps a field player off its own goal area.
	StrikerDistance = 30.0
)

// SpeedAngle is the translation loop output.
type SpeedAngle struct {
	Speed float64 // [0, 1]
	Angle float64 // degrees, robot frame
}

// Manager owns the motion loops.
type Manager struct {
	world    *worldmodel.WorldModel
	settings *settings.Store
	vars     debug.Reporter
	motor    *signal.Signal[robot.MotorCommand]

	// SpeedAngle and Rotation carry the loop outputs to the drive loop.
	SpeedAngle *signal.Signal[SpeedAngle]
	Rotation   *signal.Signal[float64]
}

// NewManager creates the motion loops. Wheel commands go to bus.Motor.
func NewManager(world *worldmodel.WorldModel, bus *robot.Bus, st *settings.Store, vars debug.Reporter) *Manager {
	if vars == nil {
		vars = debug.Nop{}
	}
	return &Manager{
		world:      world,
		settings:   st,
		vars:       vars,
		motor:      bus.Motor,
		SpeedAngle: signal.New[SpeedAngle](),
		Rotation:   signal.New[float64](),
	}
}

// RunRotation steers the heading towards HeadingTarget on every heading
// update.
func (m *Manager) RunRotation(ctx context.Context) error {
	log.Component("movement").Info("starting rotation loop")

	changed := m.world.HeadingChanged.Subscribe()
	defer changed.Close()

	return runLoop(ctx, m.settings, m.world.HeadingTarget, changed.C(),
		func() *PID {
			g := m.settings.Get().Rotation
			return NewPID(0, 1).P(g.P, 1).D(g.D, 1)
		},
		func(pid *PID, target float64) {
			angle := field.NormalizeAngle(m.world.Heading() - target)
			rotation := pid.Next(angle)
			m.Rotation.Send(rotation)
			m.vars.Set("pid rotation", rotation)
		})
}

// RunTranslation steers the robot towards CoordinateTarget on every
// coordinate update.
func (m *Manager) RunTranslation(ctx context.Context) error {
	log.Component("movement").Info("starting translation loop")

	changed := m.world.CoordinateChanged.Subscribe()
	defer changed.Close()

	return runLoop(ctx, m.settings, m.world.CoordinateTarget, changed.C(),
		func() *PID {
			g := m.settings.Get().Translation
			return NewPID(0, 1).P(g.P, 1).D(g.D, 1)
		},
		m.translate)
}

func (m *Manager) translate(pid *PID, target field.Point) {
	heading := m.world.Heading()
	coord := m.world.Coordinate()

	t := target
	if coord.Valid {
		t = ClampTarget(target, m.settings.Goalie())
	}
	m.vars.Set("target x", t.X)
	m.vars.Set("target y", t.Y)

	distance, angle := field.Vector(t.X-coord.X, coord.Y-t.Y)
	angle = field.NormalizeAngle(field.Degrees(angle) - heading)

	speed := -pid.Next(distance)
	if !coord.Valid {
		speed = math.Min(speed, NoCoordinateMax)
	}

	m.SpeedAngle.Send(SpeedAngle{Speed: speed, Angle: angle})
	m.vars.Set("pid speed", speed)
	m.vars.Set("pid angle", angle)
}

// RunDrive waits for the first output of both loops, then mixes them into
// a motor command whenever either changes.
func (m *Manager) RunDrive(ctx context.Context) error {
	log.Component("movement").Info("starting drive loop")

	sa, err := m.SpeedAngle.Wait(ctx)
	if err != nil {
		return nil
	}
	rotation, err := m.Rotation.Wait(ctx)
	if err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sa = <-m.SpeedAngle.C():
		case rotation = <-m.Rotation.C():
		}
		m.motor.Send(Drive(sa.Speed, sa.Angle, rotation))
	}
}

// Drive sends a motor command directly, bypassing the loops. While the
// robot is started the drive loop overwrites it on the next update.
func (m *Manager) Drive(speed, angle, rotation float64) {
	m.motor.Send(Drive(speed, angle, rotation))
}

// Stop clears the started flag, points the loops at where the robot
// already is and stops the wheels.
func (m *Manager) Stop() {
	m.settings.SetStarted(false)

	coord := m.world.Coordinate()
	m.world.HeadingTarget.Send(0)
	m.world.CoordinateTarget.Send(field.Point{X: coord.X, Y: coord.Y})

	m.SpeedAngle.Send(SpeedAngle{})
	m.Rotation.Send(0)
	m.motor.Send(Drive(0, 0, 0))
}

// ClampTarget keeps a target inside the area the robot may drive to. The
// central lane in front of the defended goal is closed to field players.
func ClampTarget(target field.Point, goalie bool) field.Point {
	p := field.Point{X: field.Clamp(target.X, field.Margin, field.Width-field.Margin)}

	central := target.X > field.MarginX && target.X < field.Width-field.MarginX
	switch {
	case !goalie:
		lo := field.Margin
		if central {
			lo = field.MarginY
		}
		p.Y = field.Clamp(target.Y, lo, field.Length-field.MarginY-StrikerDistance)
	case central:
		p.Y = field.Clamp(target.Y, field.MarginY, field.Length-field.MarginY)
	default:
		p.Y = field.Clamp(target.Y, field.Margin, field.Length-field.Margin)
	}
	return p
}

// runLoop is the re-arming control loop shared by rotation and translation.
// It waits for a first target and, while started, calls step on every
// change notification. A different target, or any target while stopped,
// rebuilds the PID.
func runLoop[T comparable](
	ctx context.Context,
	st *settings.Store,
	targets *signal.Signal[T],
	changed <-chan struct{},
	newPID func() *PID,
	step func(pid *PID, target T),
) error {
	target, err := targets.Wait(ctx)
	if err != nil {
		return nil
	}

	for {
		if !st.Started() {
			if target, err = targets.Wait(ctx); err != nil {
				return nil
			}
			if !st.Started() {
				continue
			}
		}

		pid := newPID()

	rearm:
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-targets.C():
				if next != target || !st.Started() {
					target = next
					break rearm
				}
			case <-changed:
				if st.Started() {
					step(pid, target)
				}
			}
		}
	}
}
