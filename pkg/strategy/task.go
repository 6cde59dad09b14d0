package strategy

import (
	"context"
	"sync/atomic"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/settings"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// Task feeds the arbiter from the line sensors, the capture sensor and the
// ball estimator.
type Task struct {
	arb      *Arbiter
	world    *worldmodel.WorldModel
	bus      *robot.Bus
	settings *settings.Store
	out      Targets

	kind atomic.Int32
}

// NewTask creates a strategy task. Targets go to the store's mailboxes.
func NewTask(arb *Arbiter, world *worldmodel.WorldModel, bus *robot.Bus, st *settings.Store) *Task {
	return &Task{
		arb:      arb,
		world:    world,
		bus:      bus,
		settings: st,
		out:      WorldTargets(world),
	}
}

// Run re-evaluates the strategy on every line event, ball change and
// capture event until ctx is done.
func (t *Task) Run(ctx context.Context) error {
	logger := log.Component("strategy")
	logger.Info("starting strategy")

	ballChanged := t.world.BallChanged.Subscribe()
	defer ballChanged.Close()

	ball := t.world.Ball()
	coord := t.world.Coordinate()
	var (
		captured   bool
		lines      robot.Sides
		fromCamera bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case lines = <-t.bus.Line.C():
			// A line means the robot is at a wall the ranging sensors may
			// have been distrusting.
			t.world.Unignore.Send(lines)
			fromCamera = false
		case fromCamera = <-ballChanged.C():
			ball = t.world.Ball()
			coord = t.world.Coordinate()
		case captured = <-t.bus.Capture.C():
			fromCamera = false
		}

		cfg := t.settings.Get()
		prev := t.arb.Kind()
		kind := t.arb.Step(Snapshot{
			Ball:       ball,
			Coordinate: coord,
			Goal:       t.world.Goal(),
			Captured:   captured,
			Lines:      lines,
			Goalie:     cfg.Goalie,
			FromCamera: fromCamera,
			GoHome:     cfg.GoHome,
			GoOther:    cfg.GoOther,
		}, t.out)

		t.kind.Store(int32(kind))
		if kind != prev {
			logger.Debug("strategy changed", "from", prev, "to", kind)
		}
	}
}

// Kind returns the behavior chosen on the last tick. Safe to call from any
// goroutine.
func (t *Task) Kind() Kind {
	return Kind(t.kind.Load())
}
