package strategy

import (
	"time"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
)

// Arbiter timing and distances.
const (
	// StrategyDwell is the minimum time in a behavior before switching away.
	StrategyDwell = 15 * time.Millisecond
	// BoundsDwell is the minimum time in Bounds once the lines clear.
	BoundsDwell = 100 * time.Millisecond

	NoBallTimeout       = 500 * time.Millisecond
	GoalieNoBallTimeout = 200 * time.Millisecond // goalie returns home sooner

	// GoalieAttackGrace lets a goalie that just pushed the ball keep
	// attacking instead of going straight back to the line.
	GoalieAttackGrace = 6000 * time.Millisecond

	// StrikerDistance keeps a field player this far off its own goal area.
	StrikerDistance = 30.0

	approachDistance = 50.0
)

// Arbiter picks the active behavior on every tick and runs it.
type Arbiter struct {
	now  func() time.Time
	vars debug.Reporter

	kind    Kind
	current behavior

	lastChanged        time.Time
	lastBallFound      time.Time
	lastGoalieAttacked time.Time
}

// NewArbiter creates an arbiter with no active behavior. now defaults to
// time.Now.
func NewArbiter(now func() time.Time, vars debug.Reporter) *Arbiter {
	if now == nil {
		now = time.Now
	}
	if vars == nil {
		vars = debug.Nop{}
	}
	t := now()
	return &Arbiter{
		now:           now,
		vars:          vars,
		kind:          None,
		lastChanged:   t,
		lastBallFound: t,
	}
}

// Kind returns the active behavior.
func (a *Arbiter) Kind() Kind {
	return a.kind
}

// Step decides the behavior for s, rebuilds its state if it changed, and
// runs one tick of it against out.
func (a *Arbiter) Step(s Snapshot, out Targets) Kind {
	now := a.now()
	kind := a.decide(now, s)

	switch {
	case s.GoHome:
		out.SetHeading(0)
		out.SetCoordinate(field.Point{X: field.Width / 2, Y: field.Length - field.MarginY})
		return a.kind
	case s.GoOther:
		out.SetHeading(0)
		out.SetCoordinate(field.Point{X: field.Margin, Y: field.MarginY})
		return a.kind
	}

	if kind != a.kind || a.current == nil {
		a.current = newBehavior(kind, now, a.vars)
	}
	if a.current != nil {
		a.current.tick(now, s, out)
	}
	a.vars.Set("strategy", kind.String())

	a.kind = kind
	return kind
}

// decide applies the decision order, the role and boundary overrides, and
// the dwell times. It updates the arbiter's timers but not the behavior.
func (a *Arbiter) decide(now time.Time, s Snapshot) Kind {
	x, y, ok := s.Coordinate.X, s.Coordinate.Y, s.Coordinate.Valid
	bx, by := s.Ball.X, s.Ball.Y

	if ok {
		bx = field.Clamp(bx, 0, field.Width)
		by = field.Clamp(by, 0, field.Length)
	}

	a.vars.Set("ball x", bx)
	a.vars.Set("ball y", by)

	if s.Ball.Valid {
		a.lastBallFound = now
	}

	dist, _ := field.Vector(x-bx, y-by)

	noBall := NoBallTimeout
	striker := StrikerDistance
	if s.Goalie {
		noBall = GoalieNoBallTimeout
		striker = 0
	}
	unseen := now.Sub(a.lastBallFound)

	var kind Kind
	switch {
	case ok && dist < approachDistance && unseen < noBall &&
		(bx < field.MarginX || bx > field.Width-field.MarginX) &&
		by < field.Margin+10 && by < y:
		kind = Clear
	case ok && (y < field.MarginY-5 || y > field.Length-field.MarginY+5):
		kind = GetOut
	case unseen > noBall:
		kind = NoBall
	case dist > approachDistance:
		kind = Attack
	case ok &&
		(by > y || (by+field.BallCapDistance > y && abs(x-bx) > field.BallCapWidth/2)) &&
		by > field.Length-field.MarginY-field.ClearanceY-striker:
		kind = Defence
	default:
		kind = Attack
	}

	if s.Goalie && (kind == Clear || kind == Attack) {
		if g, isGoalie := a.current.(*goalie); isGoalie && a.kind == Goalie && g.pushing {
			a.lastGoalieAttacked = now
		}
		if !(now.Sub(a.lastGoalieAttacked) < GoalieAttackGrace && kind == Attack) {
			kind = Goalie
		}
	}

	switch {
	case s.Lines.Any():
		kind = Bounds
		a.lastChanged = now
	case kind != a.kind && a.dwelling(now):
		kind = a.kind
	default:
		a.lastChanged = now
	}

	return kind
}

// dwelling reports whether the current behavior has not yet been active
// long enough to be left.
func (a *Arbiter) dwelling(now time.Time) bool {
	elapsed := now.Sub(a.lastChanged)
	if a.kind == Bounds {
		return elapsed < BoundsDwell
	}
	return elapsed < StrategyDwell
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
