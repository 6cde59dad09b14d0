package movement

import "math"

// PID is a discrete PID controller. Each term and the output are bounded
// symmetrically. The derivative acts on the measurement, not the error, so
// a setpoint jump does not kick the output.
type PID struct {
	Setpoint    float64
	OutputLimit float64

	Kp, Ki, Kd             float64
	PLimit, ILimit, DLimit float64

	integral float64
	prev     float64
	hasPrev  bool
}

// NewPID creates a controller with all gains zero.
func NewPID(setpoint, outputLimit float64) *PID {
	return &PID{Setpoint: setpoint, OutputLimit: outputLimit}
}

// P sets the proportional gain and its limit.
func (p *PID) P(gain, limit float64) *PID {
	p.Kp, p.PLimit = gain, limit
	return p
}

// I sets the integral gain and the limit on the accumulated term.
func (p *PID) I(gain, limit float64) *PID {
	p.Ki, p.ILimit = gain, limit
	return p
}

// D sets the derivative gain and its limit.
func (p *PID) D(gain, limit float64) *PID {
	p.Kd, p.DLimit = gain, limit
	return p
}

// Next feeds one measurement and returns the control output.
// The derivative term is zero on the first sample.
func (p *PID) Next(measurement float64) float64 {
	err := p.Setpoint - measurement

	pTerm := bound(p.Kp*err, p.PLimit)

	p.integral = bound(p.integral+p.Ki*err, p.ILimit)

	var dTerm float64
	if p.hasPrev {
		dTerm = bound(-p.Kd*(measurement-p.prev), p.DLimit)
	}
	p.prev, p.hasPrev = measurement, true

	return bound(pTerm+p.integral+dTerm, p.OutputLimit)
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.integral = 0
	p.prev, p.hasPrev = 0, false
}

func bound(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
