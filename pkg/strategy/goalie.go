package strategy

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chamburr/soccer/pkg/field"
)

const (
	goalieDistance    = 3.0
	movementThreshold = 7.5
	changedThreshold  = 2500 * time.Millisecond
	goalieMinX        = 10.0

	// GoalWidth is the width of the goal mouth.
	GoalWidth = 60.0
)

// goalie guards the defended goal from its line. It flags itself as
// pushing once the ball has sat in front of it for a while, which lets
// the arbiter hand over to Attack.
type goalie struct {
	lastBX, lastBY float64
	lastChanged    time.Time
	pushing        bool
}

func newGoalie(now time.Time) *goalie {
	return &goalie{lastBX: -999, lastBY: -999, lastChanged: now}
}

func (g *goalie) tick(now time.Time, s Snapshot, out Targets) {
	bx, by := s.Ball.X, s.Ball.Y
	x, y, ok := s.Coordinate.X, s.Coordinate.Y, s.Coordinate.Valid

	out.SetHeading(0)

	if !ok {
		out.SetCoordinate(field.Point{X: x, Y: y + 5})
		return
	}

	if abs(bx-g.lastBX) > movementThreshold || abs(by-g.lastBY) > movementThreshold {
		g.lastBX, g.lastBY = bx, by
		g.lastChanged = now
	}

	if abs(x-bx) < field.BallCapDistance/2 && now.Sub(g.lastChanged) > changedThreshold {
		g.pushing = true
	}

	lineY := field.Length - field.MarginY - goalieDistance
	out.SetCoordinate(field.Point{X: guardX(r2.Vec{X: bx, Y: by}, lineY), Y: lineY})
}

// guardX returns where on the line y = lineY the goalie should stand: the
// point where the bisector of the angle between the ball's sightlines to
// the two goalposts crosses the line. The result is kept inside the goal
// mouth.
func guardX(ball r2.Vec, lineY float64) float64 {
	postY := field.Length - field.Margin
	left := r2.Vec{X: field.Width/2 - GoalWidth/2, Y: postY}
	right := r2.Vec{X: field.Width/2 + GoalWidth/2, Y: postY}

	x := ball.X
	toLeft, toRight := r2.Sub(left, ball), r2.Sub(right, ball)
	if r2.Norm(toLeft) > 0 && r2.Norm(toRight) > 0 {
		dir := r2.Add(r2.Unit(toLeft), r2.Unit(toRight))
		if math.Abs(dir.Y) > 1e-6 {
			t := (lineY - ball.Y) / dir.Y
			x = ball.X + t*dir.X
		}
	}

	x = field.Clamp(x, left.X, right.X)
	return field.Clamp(x, field.Margin+goalieMinX, field.Width-field.Margin-goalieMinX)
}
