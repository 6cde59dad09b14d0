package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/field"
)

// getOut returns to the nearest end of the playing area.
type getOut struct{}

func (getOut) tick(_ time.Time, s Snapshot, out Targets) {
	x, y := s.Coordinate.X, s.Coordinate.Y

	out.SetHeading(0)

	if y < field.Length/2 {
		out.SetCoordinate(field.Point{X: x, Y: field.MarginY})
		return
	}
	out.SetCoordinate(field.Point{X: x, Y: field.Length - field.MarginY})
}
