package estimate

import (
	"context"

	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/signal"
	"github.com/chamburr/soccer/pkg/worldmodel"
)

// Heading republishes the fused IMU heading into the store.
type Heading struct {
	world *worldmodel.WorldModel
	imu   *signal.Signal[float64]
}

// NewHeading creates a heading tracker.
func NewHeading(world *worldmodel.WorldModel, bus *robot.Bus) *Heading {
	return &Heading{world: world, imu: bus.Heading}
}

// Run copies every heading sample into the store and notifies subscribers.
func (h *Heading) Run(ctx context.Context) error {
	log.Component("heading").Info("starting heading")

	for {
		select {
		case <-ctx.Done():
			return nil
		case deg := <-h.imu.C():
			h.world.SetHeading(deg)
			h.world.HeadingChanged.Publish(struct{}{})
		}
	}
}
