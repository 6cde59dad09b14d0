package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/field"
)

// boundsStep is how far each tick nudges the target; effectively a speed.
const boundsStep = 10.0

// bounds moves back into the field from whichever lines fired. The flags
// latch until the behavior is rebuilt.
type bounds struct {
	wasLeft, wasRight, wasFront, wasBack bool
}

func (b *bounds) tick(_ time.Time, s Snapshot, out Targets) {
	x, y := s.Coordinate.X, s.Coordinate.Y
	l := s.Lines

	p := field.Point{X: x, Y: y}

	switch {
	case l.Left || b.wasLeft:
		b.wasLeft = true
		p.X = x + boundsStep
	case l.Right || b.wasRight:
		b.wasRight = true
		p.X = x - boundsStep
	}

	// The back branch tests wasRight, not wasBack: once the right line has
	// fired the robot also backs off along Y.
	switch {
	case l.Front || b.wasFront:
		b.wasFront = true
		p.Y = y + boundsStep
	case l.Back || b.wasRight:
		b.wasBack = true
		p.Y = y - boundsStep
	}

	out.SetHeading(0)
	out.SetCoordinate(p)
}
