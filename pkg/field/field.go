// Package field holds the playing-field geometry and the small amount of
// angle math every other package shares.
//
// All positions are in centimeters in the field frame: the origin is a
// corner, X runs across the field and Y runs along it. Moving towards the
// goal being attacked decreases Y.
package field

import "math"

// Field dimensions (cm).
const (
	Length = 243.0
	Width  = 182.0

	// Margin is the distance from the wall to the line.
	Margin = 25.0

	// MarginX and MarginY bound the area the robot is expected to play in.
	MarginX = Margin + 40.0
	MarginY = Margin + 30.0

	ClearanceX = 20.0
	ClearanceY = 30.0

	// BallCapDistance and BallCapWidth describe the box in front of the
	// robot where the ball counts as captured.
	BallCapDistance = 7.0
	BallCapWidth    = 4.0
)

// Position is a field-frame point with a validity flag. A position that is
// not valid still carries the last known values.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Valid bool    `json:"valid"`
}

// Point is a target coordinate without a validity flag.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Invalidate returns p with Valid cleared.
func (p Position) Invalidate() Position {
	p.Valid = false
	return p
}

// Point drops the validity flag.
func (p Position) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// NormalizeAngle maps any angle in degrees into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	n := math.Mod(deg, 360)
	if n <= -180 {
		n += 360
	} else if n > 180 {
		n -= 360
	}
	return n
}

// Vector returns the magnitude of (x, y) and its bearing in radians,
// measured from the +Y axis towards +X.
func Vector(x, y float64) (magnitude, angle float64) {
	return math.Hypot(x, y), math.Atan2(x, y)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
