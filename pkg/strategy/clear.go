package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/field"
)

const (
	pushDistance = 20.0
	pushDuration = 250 * time.Millisecond
	waitDistance = 20.0
	waitDuration = 2000 * time.Millisecond
)

// clearing lines up beside the ball, shoves it off the goal line, then backs
// off for a while so it does not clear into the same spot again.
type clearing struct {
	pushed      bool
	pushedTime  time.Time
	waiting     bool
	waitingTime time.Time
	movingX     bool
}

func newClear(now time.Time) *clearing {
	return &clearing{pushedTime: now, waitingTime: now}
}

func (c *clearing) tick(now time.Time, s Snapshot, out Targets) {
	x, y := s.Coordinate.X, s.Coordinate.Y
	bx, by := s.Ball.X, s.Ball.Y

	out.SetHeading(0)

	if c.pushed && now.Sub(c.pushedTime) > pushDuration {
		if !c.waiting {
			c.waiting = true
			c.waitingTime = now
		}
		if now.Sub(c.waitingTime) < waitDuration {
			out.SetCoordinate(field.Point{X: bx, Y: by + waitDistance})
			return
		}
		c.pushed = false
		c.waiting = false
	}

	p := field.Point{X: bx}
	if (!c.pushed && y-by < pushDistance-2) ||
		(!c.movingX && abs(x-bx) > field.BallCapDistance) ||
		(c.movingX && abs(x-bx) > field.BallCapDistance/2) {
		c.movingX = true
		p.Y = by - pushDistance - field.BallCapDistance
	} else {
		c.movingX = false
		p.Y = by - field.BallCapDistance - 3
	}

	if !c.movingX && !c.pushed {
		c.pushed = true
		c.pushedTime = now
	}

	out.SetCoordinate(p)
}
