// Package estimate turns raw sensor samples into field-frame estimates: the
// robot coordinate from the four ranging sensors, ball and goal positions
// from the camera, and the fused heading.
package estimate

import (
	"context"
	"log/slog"
	"math"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/signal"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// CoordinateConfig holds the outlier rejection thresholds.
type CoordinateConfig struct {
	// DistanceOffset is added to every heading-corrected distance. It is the
	// distance from the sensor face to the robot centre.
	DistanceOffset float64

	DistMin         float64 // readings closer than this are implausible
	SignalMin       uint16  // readings weaker than this are untrusted
	ChangeTolerance float64 // max jump from the last accepted value
	IgnoreTolerance int     // counters above this only clear via the cross-check

	LengthTolerance float64 // front + back vs field length
	WidthTolerance  float64 // left + right vs field width
}

// DefaultCoordinateConfig returns the thresholds tuned on the field.
func DefaultCoordinateConfig() CoordinateConfig {
	return CoordinateConfig{
		DistanceOffset:  3.5,
		DistMin:         20,
		SignalMin:       200,
		ChangeTolerance: 5,
		IgnoreTolerance: 100,
		LengthTolerance: 14,
		WidthTolerance:  8,
	}
}

// Canonical sides, after the heading remap.
const (
	front = iota
	back
	left
	right
	numSides
)

var sideNames = [numSides]string{"front", "back", "left", "right"}

type reading struct {
	dist   float64
	signal uint16
}

// Coordinate estimates the robot position from the ranging sensors.
//
// Each side has an ignore counter: 0 means trusted, a positive value counts
// consecutive implausible readings and -1 is a manual request to trust the
// side again.
type Coordinate struct {
	cfg CoordinateConfig

	last   [numSides]float64
	ignore [numSides]int

	vars   debug.Reporter
	logger *slog.Logger
}

// NewCoordinate creates an estimator with all sides trusted.
func NewCoordinate(cfg CoordinateConfig, vars debug.Reporter) *Coordinate {
	if vars == nil {
		vars = debug.Nop{}
	}
	return &Coordinate{
		cfg:    cfg,
		vars:   vars,
		logger: log.Component("coordinate"),
	}
}

// Ignore returns the ignore counters as front, back, left, right.
func (c *Coordinate) Ignore() [4]int {
	return c.ignore
}

// Unignore marks the requested sides as trusted again. Sides that were
// already trusted are left alone.
func (c *Coordinate) Unignore(s robot.Sides) {
	req := [numSides]bool{front: s.Front, back: s.Back, left: s.Left, right: s.Right}
	for i, set := range req {
		if set && c.ignore[i] != 0 {
			c.ignore[i] = -1
		}
	}
}

// Step processes one ranging bundle at the given heading. It returns the
// new position and false when either axis has no trusted side left.
func (c *Coordinate) Step(data robot.LidarData, heading float64) (x, y float64, ok bool) {
	r := c.correct(data, heading)

	for i := range r {
		c.vars.Set("lidar dist "+sideNames[i], r[i].dist)
		c.vars.Set("lidar ignore "+sideNames[i], c.ignore[i])
	}

	c.checkAxis(r, front, back, field.Length, c.cfg.LengthTolerance)
	c.checkAxis(r, left, right, field.Width, c.cfg.WidthTolerance)

	if (c.ignore[front] != 0 && c.ignore[back] != 0) || (c.ignore[left] != 0 && c.ignore[right] != 0) {
		c.vars.Set("lidar ok", false)
		return 0, 0, false
	}

	useFront := c.prefer(r, front, back)
	useLeft := c.prefer(r, left, right)

	if useLeft {
		x = r[left].dist
	} else {
		x = field.Width - r[right].dist
	}
	if useFront {
		y = r[front].dist
	} else {
		y = field.Length - r[back].dist
	}

	for i := range r {
		if c.ignore[i] <= 0 {
			c.last[i] = r[i].dist
		}
	}

	c.vars.Set("lidar ok", true)
	c.vars.Set("lidar x", x)
	c.vars.Set("lidar y", y)
	return x, y, true
}

// correct projects each reading onto the field axes and remaps the
// body-fixed sensors to field-facing sides.
func (c *Coordinate) correct(data robot.LidarData, heading float64) [numSides]reading {
	cos := math.Abs(math.Cos(field.Radians(heading)))
	fix := func(s robot.RangingSample) reading {
		return reading{dist: float64(s.Distance)*cos + c.cfg.DistanceOffset, signal: s.Signal}
	}

	f, b, l, r := fix(data.Front), fix(data.Back), fix(data.Left), fix(data.Right)

	switch {
	case math.Abs(heading) <= 45:
	case math.Abs(heading) >= 135:
		f, b, l, r = b, f, r, l
	case heading > 0:
		f, b, l, r = r, l, b, f
	default:
		f, b, l, r = l, r, f, b
	}

	return [numSides]reading{front: f, back: b, left: l, right: r}
}

// checkAxis updates the ignore counters of one axis. Opposite walls summing
// to the field dimension clears both sides at once; otherwise each side is
// judged on its own.
func (c *Coordinate) checkAxis(r [numSides]reading, a, b int, dimension, tolerance float64) {
	if min(r[a].signal, r[b].signal) > c.cfg.SignalMin && math.Abs(r[a].dist+r[b].dist-dimension) < tolerance {
		c.ignore[a] = 0
		c.ignore[b] = 0
		return
	}
	c.checkSide(r, a)
	c.checkSide(r, b)
}

func (c *Coordinate) checkSide(r [numSides]reading, i int) {
	if r[i].dist < c.cfg.DistMin ||
		r[i].signal < c.cfg.SignalMin ||
		math.Abs(r[i].dist-c.last[i]) > c.cfg.ChangeTolerance {
		c.ignore[i]++
	} else if c.ignore[i] <= c.cfg.IgnoreTolerance {
		c.ignore[i] = 0
	}
}

// prefer reports whether side a should be used over its opposite b. When
// both are trusted the stronger signal wins, ties going to a.
func (c *Coordinate) prefer(r [numSides]reading, a, b int) bool {
	if c.ignore[a] <= 0 && c.ignore[b] <= 0 {
		return r[a].signal >= r[b].signal
	}
	return c.ignore[a] <= 0
}

// CoordinateTask runs the estimator against the lidar feed.
type CoordinateTask struct {
	est   *Coordinate
	world *worldmodel.WorldModel
	lidar *signal.Signal[robot.LidarData]
}

// NewCoordinateTask wires an estimator to its input and the store.
func NewCoordinateTask(est *Coordinate, world *worldmodel.WorldModel, bus *robot.Bus) *CoordinateTask {
	return &CoordinateTask{est: est, world: world, lidar: bus.Lidar}
}

// Run processes lidar bundles and un-ignore requests until ctx is done.
// Every processed bundle publishes a coordinate change, valid or not.
func (t *CoordinateTask) Run(ctx context.Context) error {
	t.est.logger.Info("starting coordinate")

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-t.world.Unignore.C():
			t.est.Unignore(s)
		case data := <-t.lidar.C():
			x, y, ok := t.est.Step(data, t.world.Heading())
			if ok {
				t.world.SetCoordinate(field.Position{X: x, Y: y, Valid: true})
			} else {
				t.world.InvalidateCoordinate()
			}
			t.world.CoordinateChanged.Publish(struct{}{})
		}
	}
}
