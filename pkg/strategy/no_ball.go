package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/field"
)

const (
	noBallDistance       = 35.0
	goalieNoBallDistance = 5.0
	checkDistance        = 5.0
	searchStep           = 5.0
	standoffThresholdX   = 10.0
	standoffThresholdY   = 10.0
)

// noBall parks in front of the defended goal and sweeps sideways looking
// for the ball.
type noBall struct {
	checkLeft bool
}

func (n *noBall) tick(_ time.Time, s Snapshot, out Targets) {
	x, y, ok := s.Coordinate.X, s.Coordinate.Y, s.Coordinate.Valid

	out.SetHeading(0)

	if !ok {
		out.SetCoordinate(field.Point{X: x, Y: y + 5})
		return
	}

	distance := noBallDistance
	if s.Goalie {
		distance = goalieNoBallDistance
	}

	standoff := field.Point{X: field.Width / 2, Y: field.Length - field.MarginY - distance}

	if abs(standoff.Y-y) > standoffThresholdY || abs(standoff.X-x) > standoffThresholdX {
		out.SetCoordinate(standoff)
		return
	}

	if x < standoff.X-checkDistance {
		n.checkLeft = false
	} else if x > standoff.X+checkDistance {
		n.checkLeft = true
	}

	if n.checkLeft {
		out.SetCoordinate(field.Point{X: x - searchStep, Y: standoff.Y})
	} else {
		out.SetCoordinate(field.Point{X: x + searchStep, Y: standoff.Y})
	}
}
