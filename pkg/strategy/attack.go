package strategy

import (
	"math"
	"time"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
)

const (
	alignedThreshold   = 1.5
	capturedDuration   = 250 * time.Millisecond
	movingBackDuration = 200 * time.Millisecond
	initialChange      = 35.0
	gradualChange      = 250.0
	aligningDuration   = 2000 * time.Millisecond
	aligningThreshold  = 3000 * time.Millisecond
)

// attack gets behind the ball, then walks it around towards the goal.
type attack struct {
	vars debug.Reporter

	lastCaptured   time.Time
	movingBack     bool
	lastMovingBack time.Time
	aligned        bool
	lastAligning   time.Time

	// Push-around distance seeded on capture. initialMagnitude is the
	// distance to the aim point at that moment.
	initialChange    float64
	initialMagnitude float64
}

func newAttack(now time.Time, vars debug.Reporter) *attack {
	return &attack{vars: vars, lastCaptured: now}
}

func (a *attack) tick(now time.Time, s Snapshot, out Targets) {
	bx, by := s.Ball.X, s.Ball.Y
	x, y, ok := s.Coordinate.X, s.Coordinate.Y, s.Coordinate.Valid

	out.SetHeading(0)

	if s.Captured || (y > by && y < by+field.BallCapDistance && abs(x-bx) < field.BallCapWidth/2) {
		a.lastCaptured = now
	}

	if now.Sub(a.lastCaptured) < capturedDuration {
		a.vars.Set("reached", true)
		out.SetCoordinate(a.carry(x, y, bx, ok, s.Goal))
		return
	}

	a.aligned = false
	a.initialChange = 0
	a.initialMagnitude = 0
	a.vars.Set("reached", false)

	out.SetCoordinate(a.approach(now, x, y, bx, by, ok))
}

// carry moves with the ball: first line up under it, then swing around it
// towards the aim point.
func (a *attack) carry(x, y, bx float64, ok bool, goal field.Position) field.Point {
	if !a.aligned {
		if abs(x-bx) < alignedThreshold {
			a.aligned = true
		}
		return field.Point{X: bx, Y: y}
	}

	goalX, goalY := field.Width/2, field.Margin
	if !ok {
		goalX, goalY = goal.X, goal.Y
	}

	magnitude, angle := field.Vector(goalX-x, y-goalY)
	sin, cos := math.Sincos(angle)

	if a.initialChange == 0 {
		a.initialMagnitude = magnitude
		a.initialChange = math.Max(cos, 0) * initialChange
	}

	progress := 0.0
	if a.initialMagnitude > 0 {
		progress = math.Max(a.initialMagnitude-magnitude, 0) / a.initialMagnitude
	}

	// Never aim past the goal area line.
	limit := 0.0
	if l := (y - field.MarginY) / cos; l > 0 {
		limit = l
	}

	change := math.Min(a.initialChange+progress*gradualChange, limit)
	a.vars.Set("change", change)

	return field.Point{X: x + change*sin, Y: y - change*cos}
}

// approach gets behind the ball, circling around it when the robot is on
// the wrong side.
func (a *attack) approach(now time.Time, x, y, bx, by float64, ok bool) field.Point {
	if y < by {
		a.movingBack = true
	}

	dx := abs(x - bx)
	offset := field.ClearanceX/2 + 5

	if (a.movingBack || now.Sub(a.lastMovingBack) > movingBackDuration) &&
		(y < by+field.BallCapDistance/3 ||
			(dx > field.BallCapWidth/2+5 && dx < field.ClearanceX/2 && y < by+field.ClearanceY/2)) {
		a.vars.Set("case", 1)
		a.movingBack = true

		var p field.Point
		switch {
		case ok && bx < field.Margin+field.ClearanceX+10:
			p.X = bx + offset
		case ok && bx > field.Width-field.Margin-field.ClearanceX-10:
			p.X = bx - offset
		case x > bx:
			p.X = bx + offset
		default:
			p.X = bx - offset
		}
		if dx > field.ClearanceX/2+3 {
			p.Y = by + field.ClearanceY/2 + 10
		} else {
			p.Y = y
		}
		return p
	}

	if a.movingBack {
		a.movingBack = false
		a.lastMovingBack = now
	}

	a.vars.Set("case", 2)

	aligning := now.Sub(a.lastAligning)
	if (aligning > aligningDuration && aligning < aligningThreshold) || dx < field.BallCapWidth/2 {
		return field.Point{X: bx, Y: math.Min(by+field.BallCapDistance, y-3)}
	}
	if aligning > aligningThreshold {
		a.lastAligning = now
	}
	return field.Point{X: bx, Y: by + field.BallCapDistance + 3}
}
