package estimate

import (
	"context"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/signal"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// Locate converts a robot-relative polar observation into a field position.
// angle is relative to the robot's heading; straight ahead is 0 and ahead
// means decreasing Y.
func Locate(robotPos r2.Vec, heading, angle, dist float64) r2.Vec {
	bearing := field.Radians(field.NormalizeAngle(heading + angle))
	offset := r2.Rotate(r2.Vec{X: 0, Y: dist}, bearing, r2.Vec{})
	return r2.Sub(robotPos, offset)
}

// Ball estimates the ball and goal positions from camera frames.
type Ball struct {
	world  *worldmodel.WorldModel
	camera *signal.Signal[robot.CameraData]
	vars   debug.Reporter
	logger *slog.Logger
}

// NewBall creates a ball estimator.
func NewBall(world *worldmodel.WorldModel, bus *robot.Bus, vars debug.Reporter) *Ball {
	if vars == nil {
		vars = debug.Nop{}
	}
	return &Ball{
		world:  world,
		camera: bus.Camera,
		vars:   vars,
		logger: log.Component("ball"),
	}
}

// Update recomputes the ball and goal from the last camera frame and the
// given robot coordinate. The coordinate is used even when it is not valid.
func (b *Ball) Update(camera robot.CameraData, coord field.Position) {
	b.vars.Set("camera angle", camera.Angle)
	b.vars.Set("camera dist", camera.Dist)
	b.vars.Set("camera goal angle", camera.GoalAngle)
	b.vars.Set("camera goal dist", camera.GoalDist)

	heading := b.world.Heading()
	pos := r2.Vec{X: coord.X, Y: coord.Y}

	if camera.BallDetected() {
		v := Locate(pos, heading, camera.Angle, camera.Dist)
		b.world.SetBall(field.Position{X: v.X, Y: v.Y, Valid: true})
	} else {
		b.world.InvalidateBall()
	}

	if camera.GoalDetected() {
		v := Locate(pos, heading, camera.GoalAngle, camera.GoalDist)
		b.world.SetGoal(field.Position{X: v.X, Y: v.Y, Valid: true})
	} else {
		b.world.InvalidateGoal()
	}
}

// Run waits for the first camera frame, then recomputes on that and every new frame
// and on every coordinate change. A coordinate change with an invalid
// coordinate only forwards the notification.
func (b *Ball) Run(ctx context.Context) error {
	b.logger.Info("starting ball")

	coordChanged := b.world.CoordinateChanged.Subscribe()
	defer coordChanged.Close()

	camera, err := b.camera.Wait(ctx)
	if err != nil {
		return nil
	}
	coord := b.world.Coordinate()
	b.Update(camera, coord)
	b.world.BallChanged.Publish(true)

	for {
		var fromCamera bool

		select {
		case <-ctx.Done():
			return nil
		case camera = <-b.camera.C():
			fromCamera = true
		case <-coordChanged.C():
			coord = b.world.Coordinate()
			if !coord.Valid {
				b.world.BallChanged.Publish(false)
				continue
			}
		}

		b.Update(camera, coord)
		b.world.BallChanged.Publish(fromCamera)
	}
}
