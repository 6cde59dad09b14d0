package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/field"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/settings"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// recorder captures behavior output
type recorder struct {
	mu       sync.Mutex
	headings []float64
	coords   []field.Point
}

func (r *recorder) SetHeading(deg float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headings = append(r.headings, deg)
}

func (r *recorder) SetCoordinate(p field.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coords = append(r.coords, p)
}

func (r *recorder) last() field.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.coords) == 0 {
		return field.Point{}
	}
	return r.coords[len(r.coords)-1]
}

func pos(x, y float64) field.Position {
	return field.Position{X: x, Y: y, Valid: true}
}

func assertPoint(t *testing.T, want, got field.Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "no_ball", NoBall.String())
	assert.Equal(t, "get_out", GetOut.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestArbiter_NoBallWithInvalidCoordinate(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	clock.advance(600 * time.Millisecond)

	// Stale ball nearby, robot lost
	kind := arb.Step(Snapshot{
		Ball:       field.Position{X: 91, Y: 100},
		Coordinate: field.Position{X: 91, Y: 120},
	}, out)

	assert.Equal(t, NoBall, kind)
	require.Len(t, out.headings, 1)
	assert.Equal(t, 0.0, out.headings[0])
	assertPoint(t, field.Point{X: 91, Y: 125}, out.last())
}

func TestArbiter_DecisionOrder(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		snap    Snapshot
		want    Kind
	}{
		{
			name: "clear beats get out",
			snap: Snapshot{Coordinate: pos(45, 40), Ball: pos(40, 30)},
			want: Clear,
		},
		{
			name: "get out",
			snap: Snapshot{Coordinate: pos(91, 40), Ball: pos(91, 30)},
			want: GetOut,
		},
		{
			name:    "no ball",
			elapsed: 600 * time.Millisecond,
			snap:    Snapshot{Coordinate: pos(91, 120), Ball: field.Position{X: 91, Y: 100}},
			want:    NoBall,
		},
		{
			name: "far ball",
			snap: Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60)},
			want: Attack,
		},
		{
			name: "ball behind",
			snap: Snapshot{Coordinate: pos(91, 140), Ball: pos(91, 150)},
			want: Defence,
		},
		{
			name: "ball ahead",
			snap: Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 140)},
			want: Attack,
		},
		{
			name: "lines force bounds",
			snap: Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), Lines: robot.Sides{Left: true}},
			want: Bounds,
		},
		{
			name: "goalie replaces attack",
			snap: Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), Goalie: true},
			want: Goalie,
		},
		{
			name: "goalie still defends",
			snap: Snapshot{Coordinate: pos(91, 160), Ball: pos(91, 170), Goalie: true},
			want: Defence,
		},
		{
			name: "lines beat goalie",
			snap: Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), Goalie: true, Lines: robot.Sides{Back: true}},
			want: Bounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			arb := NewArbiter(clock.now, nil)
			clock.advance(20 * time.Millisecond)
			clock.advance(tt.elapsed)

			got := arb.Step(tt.snap, &recorder{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArbiter_StaysIdleDuringInitialDwell(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	clock.advance(5 * time.Millisecond)
	kind := arb.Step(Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60)}, out)
	assert.Equal(t, None, kind)
	assert.Empty(t, out.coords)
}

func TestArbiter_StrategyDwell(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	attack := Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60)}
	defend := Snapshot{Coordinate: pos(91, 140), Ball: pos(91, 150)}

	clock.advance(20 * time.Millisecond)
	require.Equal(t, Attack, arb.Step(attack, out))

	clock.advance(5 * time.Millisecond)
	assert.Equal(t, Attack, arb.Step(defend, out), "switch held back by dwell")

	clock.advance(15 * time.Millisecond)
	assert.Equal(t, Defence, arb.Step(defend, out))
}

func TestArbiter_BoundsHysteresis(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	onLine := Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), Lines: robot.Sides{Front: true}}
	offLine := Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60)}

	clock.advance(20 * time.Millisecond)

	// Flapping line sensor: every result stays Bounds
	for i := 0; i < 20; i++ {
		snap := offLine
		if i%2 == 0 {
			snap = onLine
		}
		assert.Equal(t, Bounds, arb.Step(snap, out), "tick %d", i)
		clock.advance(5 * time.Millisecond)
	}

	// Off the line, but not for long enough
	clock.advance(50 * time.Millisecond)
	assert.Equal(t, Bounds, arb.Step(offLine, out))

	clock.advance(60 * time.Millisecond)
	assert.Equal(t, Attack, arb.Step(offLine, out))
}

func TestArbiter_RebuildsBehaviorOnChange(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	clock.advance(20 * time.Millisecond)
	arb.Step(Snapshot{Coordinate: pos(100, 100), Lines: robot.Sides{Right: true}}, out)
	assertPoint(t, field.Point{X: 90, Y: 90}, out.last())

	// Latched while still in Bounds
	clock.advance(10 * time.Millisecond)
	arb.Step(Snapshot{Coordinate: pos(100, 100), Ball: pos(100, 20)}, out)
	assert.Equal(t, Bounds, arb.Kind())
	assertPoint(t, field.Point{X: 90, Y: 90}, out.last())

	// Leave and come back: flags start clear
	clock.advance(200 * time.Millisecond)
	arb.Step(Snapshot{Coordinate: pos(100, 100), Ball: pos(100, 20)}, out)
	require.Equal(t, Attack, arb.Kind())
	clock.advance(10 * time.Millisecond)
	arb.Step(Snapshot{Coordinate: pos(100, 100), Lines: robot.Sides{Front: true}}, out)
	assertPoint(t, field.Point{X: 100, Y: 110}, out.last())
}

func TestArbiter_GoalieAttackGrace(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	// Ball parked right in front of the goalie
	snap := Snapshot{Coordinate: pos(91, 185), Ball: pos(91, 180), Goalie: true}

	clock.advance(20 * time.Millisecond)
	require.Equal(t, Goalie, arb.Step(snap, out))

	// Ball has not moved for long enough: goalie starts pushing
	clock.advance(2600 * time.Millisecond)
	require.Equal(t, Goalie, arb.Step(snap, out))

	clock.advance(20 * time.Millisecond)
	assert.Equal(t, Attack, arb.Step(snap, out), "pushing goalie may attack")

	clock.advance(5000 * time.Millisecond)
	assert.Equal(t, Attack, arb.Step(snap, out), "still inside the grace period")

	clock.advance(1100 * time.Millisecond)
	assert.Equal(t, Goalie, arb.Step(snap, out), "grace period over")
}

func TestArbiter_GoHomeOverride(t *testing.T) {
	clock := newFakeClock()
	arb := NewArbiter(clock.now, nil)
	out := &recorder{}

	clock.advance(20 * time.Millisecond)
	kind := arb.Step(Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), GoHome: true}, out)
	assert.Equal(t, None, kind)
	assertPoint(t, field.Point{X: field.Width / 2, Y: field.Length - field.MarginY}, out.last())

	arb.Step(Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 60), GoOther: true}, out)
	assertPoint(t, field.Point{X: field.Margin, Y: field.MarginY}, out.last())
}

func TestBounds_BackBranchFollowsRightFlag(t *testing.T) {
	tests := []struct {
		name  string
		lines []robot.Sides
		want  field.Point
	}{
		{"left", []robot.Sides{{Left: true}}, field.Point{X: 110, Y: 100}},
		{"back", []robot.Sides{{Back: true}}, field.Point{X: 100, Y: 90}},
		{"front left", []robot.Sides{{Front: true, Left: true}}, field.Point{X: 110, Y: 110}},
		// Right also backs off along Y, and stays latched
		{"right", []robot.Sides{{Right: true}}, field.Point{X: 90, Y: 90}},
		{"right latched", []robot.Sides{{Right: true}, {}}, field.Point{X: 90, Y: 90}},
		{"back not latched by itself", []robot.Sides{{Back: true}, {}}, field.Point{X: 100, Y: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &bounds{}
			out := &recorder{}
			for _, l := range tt.lines {
				b.tick(time.Time{}, Snapshot{Coordinate: pos(100, 100), Lines: l}, out)
			}
			assertPoint(t, tt.want, out.last())
		})
	}
}

func TestDefence(t *testing.T) {
	now := newFakeClock().now()
	d := &defence{}
	out := &recorder{}

	// Robot behind the ball: push through it
	d.tick(now, Snapshot{Coordinate: pos(91, 160), Ball: pos(91, 150)}, out)
	assertPoint(t, field.Point{X: 91, Y: 151.5}, out.last())

	// Ball passed the robot, inside the grace window
	d.tick(now.Add(50*time.Millisecond), Snapshot{Coordinate: pos(91, 140), Ball: pos(91, 150)}, out)
	assertPoint(t, field.Point{X: 91, Y: 151.5}, out.last())

	d.tick(now.Add(200*time.Millisecond), Snapshot{Coordinate: pos(91, 140), Ball: pos(91, 150)}, out)
	assertPoint(t, field.Point{X: 91, Y: 118}, out.last())
}

func TestGetOut(t *testing.T) {
	out := &recorder{}
	getOut{}.tick(time.Time{}, Snapshot{Coordinate: pos(70, 30)}, out)
	assertPoint(t, field.Point{X: 70, Y: field.MarginY}, out.last())

	getOut{}.tick(time.Time{}, Snapshot{Coordinate: pos(70, 210)}, out)
	assertPoint(t, field.Point{X: 70, Y: field.Length - field.MarginY}, out.last())
}

func TestNoBall(t *testing.T) {
	standoffY := field.Length - field.MarginY - noBallDistance

	tests := []struct {
		name  string
		coord field.Position
		goal  bool
		want  field.Point
	}{
		{"lost", field.Position{X: 50, Y: 60}, false, field.Point{X: 50, Y: 65}},
		{"far", pos(40, 100), false, field.Point{X: field.Width / 2, Y: standoffY}},
		{"goalie far", pos(40, 100), true, field.Point{X: field.Width / 2, Y: field.Length - field.MarginY - goalieNoBallDistance}},
		{"search right", pos(91, standoffY), false, field.Point{X: 96, Y: standoffY}},
		{"search turns left", pos(97, standoffY), false, field.Point{X: 92, Y: standoffY}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &noBall{}
			out := &recorder{}
			n.tick(time.Time{}, Snapshot{Coordinate: tt.coord, Goalie: tt.goal}, out)
			assertPoint(t, tt.want, out.last())
		})
	}
}

func TestClear_PushThenWait(t *testing.T) {
	clock := newFakeClock()
	c := newClear(clock.now())
	out := &recorder{}

	// Too close: back off along y first
	c.tick(clock.now(), Snapshot{Coordinate: pos(40, 40), Ball: pos(40, 30)}, out)
	assertPoint(t, field.Point{X: 40, Y: 30 - pushDistance - field.BallCapDistance}, out.last())

	// Far enough behind the ball now: push
	c = newClear(clock.now())
	snap := Snapshot{Coordinate: pos(40, 60), Ball: pos(40, 30)}
	c.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 40, Y: 20}, out.last())

	clock.advance(300 * time.Millisecond)
	c.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 40, Y: 50}, out.last())

	clock.advance(1000 * time.Millisecond)
	c.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 40, Y: 50}, out.last())

	clock.advance(1100 * time.Millisecond)
	c.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 40, Y: 20}, out.last())
}

func TestGoalie(t *testing.T) {
	clock := newFakeClock()
	g := newGoalie(clock.now())
	out := &recorder{}
	lineY := field.Length - field.MarginY - goalieDistance

	g.tick(clock.now(), Snapshot{Coordinate: field.Position{X: 91, Y: 180}}, out)
	assertPoint(t, field.Point{X: 91, Y: 185}, out.last())

	g.tick(clock.now(), Snapshot{Coordinate: pos(91, 185), Ball: pos(91, 100)}, out)
	assertPoint(t, field.Point{X: 91, Y: lineY}, out.last())
	assert.False(t, g.pushing)

	g.tick(clock.now(), Snapshot{Coordinate: pos(91, 185), Ball: pos(40, 100)}, out)
	p := out.last()
	assert.Greater(t, p.X, field.Width/2-GoalWidth/2)
	assert.Less(t, p.X, 91.0)
	assert.InDelta(t, 74.83, p.X, 0.05)

	clock.advance(2600 * time.Millisecond)
	g.tick(clock.now(), Snapshot{Coordinate: pos(42, 185), Ball: pos(40, 100)}, out)
	assert.True(t, g.pushing, "ball stationary in front of the goalie")
}

func TestGuardX(t *testing.T) {
	lineY := field.Length - field.MarginY - goalieDistance
	lo, hi := field.Width/2-GoalWidth/2, field.Width/2+GoalWidth/2

	tests := []struct {
		name string
		ball field.Point
		want float64
	}{
		{"centred", field.Point{X: 91, Y: 50}, 91},
		{"far left corner", field.Point{X: 10, Y: 200}, lo},
		{"far right corner", field.Point{X: 175, Y: 200}, hi},
		{"on the goal line", field.Point{X: 91, Y: field.Length - field.Margin}, 91},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := guardX(r2.Vec{X: tt.ball.X, Y: tt.ball.Y}, lineY)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestAttack_Approach(t *testing.T) {
	clock := newFakeClock()
	a := newAttack(clock.now(), debug.Nop{})
	out := &recorder{}
	clock.advance(300 * time.Millisecond)

	// Straight behind the ball
	a.tick(clock.now(), Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 100)}, out)
	assertPoint(t, field.Point{X: 91, Y: 107}, out.last())

	// Off to the side: hold back until the alignment window opens
	a.tick(clock.now(), Snapshot{Coordinate: pos(80, 150), Ball: pos(91, 100)}, out)
	assertPoint(t, field.Point{X: 91, Y: 110}, out.last())

	clock.advance(2500 * time.Millisecond)
	a.tick(clock.now(), Snapshot{Coordinate: pos(80, 150), Ball: pos(91, 100)}, out)
	assertPoint(t, field.Point{X: 91, Y: 107}, out.last())
}

func TestAttack_CirclesBackWhenAhead(t *testing.T) {
	clock := newFakeClock()
	a := newAttack(clock.now(), debug.Nop{})
	out := &recorder{}
	clock.advance(300 * time.Millisecond)

	a.tick(clock.now(), Snapshot{Coordinate: pos(91, 90), Ball: pos(91, 100)}, out)
	assertPoint(t, field.Point{X: 76, Y: 90}, out.last())
	assert.True(t, a.movingBack)

	// Near the left wall always go round the field side
	a.tick(clock.now(), Snapshot{Coordinate: pos(30, 90), Ball: pos(40, 100)}, out)
	assertPoint(t, field.Point{X: 55, Y: 90}, out.last())
}

func TestAttack_CarriesBallToGoal(t *testing.T) {
	clock := newFakeClock()
	a := newAttack(clock.now(), debug.Nop{})
	out := &recorder{}
	clock.advance(300 * time.Millisecond)

	snap := Snapshot{Coordinate: pos(91, 105), Ball: pos(91, 100)}
	a.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 91, Y: 105}, out.last())
	assert.True(t, a.aligned)

	clock.advance(10 * time.Millisecond)
	a.tick(clock.now(), snap, out)
	assertPoint(t, field.Point{X: 91, Y: 70}, out.last())

	// Capture lost
	clock.advance(300 * time.Millisecond)
	a.tick(clock.now(), Snapshot{Coordinate: pos(91, 150), Ball: pos(91, 100)}, out)
	assert.False(t, a.aligned)
	assertPoint(t, field.Point{X: 91, Y: 107}, out.last())
}

func TestAttack_UsesSeenGoalWhenLost(t *testing.T) {
	clock := newFakeClock()
	a := newAttack(clock.now(), debug.Nop{})
	out := &recorder{}

	snap := Snapshot{
		Coordinate: field.Position{X: 91, Y: 105},
		Ball:       pos(91, 100),
		Goal:       pos(131, 75),
		Captured:   true,
	}
	a.tick(clock.now(), snap, out)
	a.tick(clock.now(), snap, out)

	// Goal is up and to the right: the target swings right
	p := out.last()
	assert.Greater(t, p.X, 91.0)
	assert.Less(t, p.Y, 105.0)
}

func TestTask_LineEvent(t *testing.T) {
	world := worldmodel.New()
	bus := robot.NewBus()
	st, err := settings.NewStore(settings.DefaultConfig())
	require.NoError(t, err)

	task := NewTask(NewArbiter(nil, nil), world, bus, st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = task.Run(ctx) }()

	bus.Line.Send(robot.Sides{Left: true})

	select {
	case s := <-world.Unignore.C():
		assert.Equal(t, robot.Sides{Left: true}, s)
	case <-time.After(time.Second):
		t.Fatal("no unignore request")
	}

	select {
	case h := <-world.HeadingTarget.C():
		assert.Equal(t, 0.0, h)
	case <-time.After(time.Second):
		t.Fatal("no heading target")
	}

	select {
	case p := <-world.CoordinateTarget.C():
		assertPoint(t, field.Point{X: 10, Y: 0}, p)
	case <-time.After(time.Second):
		t.Fatal("no coordinate target")
	}
}
