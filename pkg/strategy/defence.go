package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/field"
)

const lastPushThreshold = 100 * time.Millisecond

// defence sits between the ball and the defended goal.
type defence struct {
	lastPush time.Time
}

func (d *defence) tick(now time.Time, s Snapshot, out Targets) {
	bx, by := s.Ball.X, s.Ball.Y
	y := s.Coordinate.Y

	out.SetHeading(0)

	if y > by {
		d.lastPush = now
	}

	if now.Sub(d.lastPush) < lastPushThreshold {
		out.SetCoordinate(field.Point{X: bx, Y: by + 1.5})
		return
	}
	out.SetCoordinate(field.Point{X: bx, Y: by - field.ClearanceY - 2})
}
