package movement

import (
	"math"

	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
)

// Motor mixing constants.
const (
	// MotorMin is added to every non-zero wheel to get past static friction.
	MotorMin = 26.0
	// MotorMinFinal is the smallest wheel command actually sent.
	MotorMinFinal = 27.0

	AngleRatio    = 0.2 // share of the motor range for rotation
	PositionRatio = 0.8 // share of the motor range for translation

	motorRange = robot.MaxMotorSpeed - MotorMin
)

// Drive mixes a translation and a rotation into wheel commands for the
// four omni wheels mounted at 45 degrees.
//
// speed is in [0, 1], angle is the robot-relative direction of travel in
// degrees with 0 straight ahead, and rotation is in [-1, 1].
func Drive(speed, angle, rotation float64) robot.MotorCommand {
	a := field.Radians(field.NormalizeAngle(45 - angle))
	s := speed * PositionRatio * motorRange

	sin, cos := math.Sincos(a)
	m := math.Max(math.Abs(sin), math.Abs(cos))

	sx := s * cos / m
	sy := s * sin / m

	wheels := [4]float64{sy, -sx, sx, -sy}

	var out [4]int16
	for i, w := range wheels {
		w += rotation * AngleRatio * motorRange
		w += math.Copysign(MotorMin, w)
		if math.Abs(w) < MotorMinFinal {
			w = 0
		}
		out[i] = int16(math.Round(w))
	}

	return robot.MotorCommand{FL: out[0], FR: out[1], BL: out[2], BR: out[3]}
}
