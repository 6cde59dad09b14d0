package robot

import "github.com/chamburr/soccer/pkg/signal"

// RangingSample is one time-of-flight reading. Signal is the sensor's
// confidence proxy; higher is better.
type RangingSample struct {
	Distance uint16 `json:"distance"`
	Signal   uint16 `json:"signal"`
}

// LidarData is one reading from each of the four body-fixed ranging sensors.
type LidarData struct {
	Front RangingSample `json:"front"`
	Left  RangingSample `json:"left"`
	Right RangingSample `json:"right"`
	Back  RangingSample `json:"back"`
}

// CameraData is a robot-relative polar observation of the ball and the
// attacked goal. An angle and distance of (0, 0) means not detected.
type CameraData struct {
	Angle     float64 `json:"angle"`
	Dist      float64 `json:"dist"`
	GoalAngle float64 `json:"goal_angle"`
	GoalDist  float64 `json:"goal_dist"`
}

// BallDetected reports whether the ball was seen in this frame.
func (c CameraData) BallDetected() bool {
	return c.Angle != 0 || c.Dist != 0
}

// GoalDetected reports whether the goal was seen in this frame.
func (c CameraData) GoalDetected() bool {
	return c.GoalAngle != 0 || c.GoalDist != 0
}

// Sides is one boolean per side of the robot. It carries line sensor
// triggers and un-ignore requests.
type Sides struct {
	Front bool `json:"front"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Back  bool `json:"back"`
}

// Any reports whether any side is set.
func (s Sides) Any() bool {
	return s.Front || s.Left || s.Right || s.Back
}

// MotorCommand is a signed speed per wheel, bounded by ±MaxMotorSpeed.
type MotorCommand struct {
	FL int16 `json:"fl"`
	FR int16 `json:"fr"`
	BL int16 `json:"bl"`
	BR int16 `json:"br"`
}

// MaxMotorSpeed is the PWM resolution of the motor driver.
const MaxMotorSpeed = 255

// Zero reports whether every wheel is stopped.
func (m MotorCommand) Zero() bool {
	return m == MotorCommand{}
}

// Bus carries the raw sensor feeds into the core and the wheel command out.
// Every channel is a latest-value mailbox: drivers never block on a slow
// consumer and consumers only ever see the newest sample.
type Bus struct {
	Lidar   *signal.Signal[LidarData]
	Camera  *signal.Signal[CameraData]
	Heading *signal.Signal[float64]
	Line    *signal.Signal[Sides]
	Capture *signal.Signal[bool]
	Start   *signal.Signal[bool]
	Motor   *signal.Signal[MotorCommand]
}

// NewBus creates a Bus with empty mailboxes.
func NewBus() *Bus {
	return &Bus{
		Lidar:   signal.New[LidarData](),
		Camera:  signal.New[CameraData](),
		Heading: signal.New[float64](),
		Line:    signal.New[Sides](),
		Capture: signal.New[bool](),
		Start:   signal.New[bool](),
		Motor:   signal.New[MotorCommand](),
	}
}
