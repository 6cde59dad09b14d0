// Package strategy decides what the robot should be doing and turns that
// decision into target headings and coordinates.
//
// The Arbiter is a state machine over behavior kinds. Each kind owns a
// small private state that is rebuilt from scratch whenever the arbiter
// switches to it.
package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// Kind identifies a behavior.
type Kind int

const (
	None Kind = iota
	Attack
	Bounds
	Clear
	Defence
	Goalie
	GetOut
	NoBall
)

var kindNames = map[Kind]string{
	None:    "none",
	Attack:  "attack",
	Bounds:  "bounds",
	Clear:   "clear",
	Defence: "defence",
	Goalie:  "goalie",
	GetOut:  "get_out",
	NoBall:  "no_ball",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Snapshot is the read-only input to one arbiter tick.
type Snapshot struct {
	Ball       field.Position
	Coordinate field.Position
	Goal       field.Position
	Captured   bool
	Lines      robot.Sides
	Goalie     bool
	// FromCamera is true when this tick was caused by a fresh camera frame.
	FromCamera bool

	// GoHome and GoOther bypass the behaviors with a fixed target.
	GoHome  bool
	GoOther bool
}

// Targets receives the output of a behavior.
type Targets interface {
	SetHeading(deg float64)
	SetCoordinate(p field.Point)
}

type worldTargets struct {
	world *worldmodel.WorldModel
}

// WorldTargets sends targets to the store's target mailboxes.
func WorldTargets(world *worldmodel.WorldModel) Targets {
	return worldTargets{world: world}
}

func (t worldTargets) SetHeading(deg float64) {
	t.world.HeadingTarget.Send(deg)
}

func (t worldTargets) SetCoordinate(p field.Point) {
	t.world.CoordinateTarget.Send(p)
}

// behavior is the per-kind state machine. Every tick must emit a heading
// target, even when the behavior does not care about heading, or the
// rotation loop stalls waiting for one.
type behavior interface {
	tick(now time.Time, s Snapshot, out Targets)
}

func newBehavior(k Kind, now time.Time, vars debug.Reporter) behavior {
	switch k {
	case Attack:
		return newAttack(now, vars)
	case Bounds:
		return &bounds{}
	case Clear:
		return newClear(now)
	case Defence:
		return &defence{}
	case Goalie:
		return newGoalie(now)
	case GetOut:
		return getOut{}
	case NoBall:
		return &noBall{}
	default:
		return nil
	}
}
