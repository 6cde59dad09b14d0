// Package worldmodel is the shared state store of the control core: the
// latest fused heading, robot coordinate, ball and goal positions, plus the
// notifications and target mailboxes the tasks use to hand work to each
// other.
//
// Every field has its own lock. No lock spans two fields, so a reader may
// see a heading and a coordinate from slightly different instants.
package worldmodel

import (
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/signal"
)

// WorldModel holds the estimator outputs and the signals between tasks.
type WorldModel struct {
	heading    *signal.Cell[float64]
	coordinate *signal.Cell[field.Position]
	ball       *signal.Cell[field.Position]
	goal       *signal.Cell[field.Position]

	// HeadingChanged fires after the heading tracker writes a new heading.
	HeadingChanged *signal.Broadcast[struct{}]
	// CoordinateChanged fires after every coordinate estimator cycle,
	// whether or not the coordinate is valid.
	CoordinateChanged *signal.Broadcast[struct{}]
	// BallChanged fires after the ball estimator writes. The payload is
	// true when the update came from a fresh camera frame.
	BallChanged *signal.Broadcast[bool]

	// HeadingTarget is the desired heading in degrees.
	HeadingTarget *signal.Signal[float64]
	// CoordinateTarget is the desired field position.
	CoordinateTarget *signal.Signal[field.Point]
	// Unignore asks the coordinate estimator to trust the given sides again.
	Unignore *signal.Signal[robot.Sides]
}

// New creates a WorldModel with everything zeroed and invalid.
func New() *WorldModel {
	return &WorldModel{
		heading:    signal.NewCell(0.0),
		coordinate: signal.NewCell(field.Position{}),
		ball:       signal.NewCell(field.Position{}),
		goal:       signal.NewCell(field.Position{}),

		HeadingChanged:    signal.NewBroadcast[struct{}](),
		CoordinateChanged: signal.NewBroadcast[struct{}](),
		BallChanged:       signal.NewBroadcast[bool](),

		HeadingTarget:    signal.New[float64](),
		CoordinateTarget: signal.New[field.Point](),
		Unignore:         signal.New[robot.Sides](),
	}
}

// Heading returns the fused heading in degrees, in (-180, 180].
func (w *WorldModel) Heading() float64 {
	return w.heading.Load()
}

// SetHeading stores a new heading.
func (w *WorldModel) SetHeading(deg float64) {
	w.heading.Store(field.NormalizeAngle(deg))
}

// Coordinate returns the robot position.
func (w *WorldModel) Coordinate() field.Position {
	return w.coordinate.Load()
}

// SetCoordinate stores a new robot position.
func (w *WorldModel) SetCoordinate(p field.Position) {
	w.coordinate.Store(p)
}

// InvalidateCoordinate keeps the last coordinate but marks it untrusted.
func (w *WorldModel) InvalidateCoordinate() field.Position {
	return w.coordinate.Update(field.Position.Invalidate)
}

// Ball returns the ball position.
func (w *WorldModel) Ball() field.Position {
	return w.ball.Load()
}

// SetBall stores a new ball position.
func (w *WorldModel) SetBall(p field.Position) {
	w.ball.Store(p)
}

// InvalidateBall keeps the last ball position but marks it unseen.
func (w *WorldModel) InvalidateBall() field.Position {
	return w.ball.Update(field.Position.Invalidate)
}

// Goal returns the attacked goal position.
func (w *WorldModel) Goal() field.Position {
	return w.goal.Load()
}

// SetGoal stores a new goal position.
func (w *WorldModel) SetGoal(p field.Position) {
	w.goal.Store(p)
}

// InvalidateGoal keeps the last goal position but marks it unseen.
func (w *WorldModel) InvalidateGoal() field.Position {
	return w.goal.Update(field.Position.Invalidate)
}

// State is a point-in-time copy of the store for telemetry.
type State struct {
	Heading    float64        `json:"heading"`
	Coordinate field.Position `json:"coordinate"`
	Ball       field.Position `json:"ball"`
	Goal       field.Position `json:"goal"`
}

// State copies each field under its own lock.
func (w *WorldModel) State() State {
	return State{
		Heading:    w.Heading(),
		Coordinate: w.Coordinate(),
		Ball:       w.Ball(),
		Goal:       w.Goal(),
	}
}
