package app

import (
	"context"

	"github.com/chamburr/soccer/pkg/debug"
	"github.com/chamburr/soccer/pkg/robot"
	"github.com/chamburr/soccer/pkg/settings"
)

// registerFunctions installs the operator debug functions.
func (a *App) registerFunctions() {
	r := a.Functions

	r.Register("start", nil, func(context.Context, debug.Args) error {
		return a.Start()
	})

	r.Register("stop", nil, func(context.Context, debug.Args) error {
		a.Stop()
		return nil
	})

	r.Register("drive", []debug.Arg{
		{Name: "speed", Kind: debug.Float},
		{Name: "angle", Kind: debug.Float},
		{Name: "rotation", Kind: debug.Float},
	}, func(_ context.Context, args debug.Args) error {
		a.Movement.Drive(args.Float("speed"), args.Float("angle"), args.Float("rotation"))
		return nil
	})

	r.Register("go_home", nil, func(context.Context, debug.Args) error {
		_, err := a.Settings.Update(func(c *settings.Config) {
			c.GoHome, c.GoOther, c.Started = true, false, true
		})
		return err
	})

	r.Register("go_other", nil, func(context.Context, debug.Args) error {
		_, err := a.Settings.Update(func(c *settings.Config) {
			c.GoHome, c.GoOther, c.Started = false, true, true
		})
		return err
	})

	r.Register("set_goalie", []debug.Arg{{Name: "enable", Kind: debug.Bool}}, func(_ context.Context, args debug.Args) error {
		a.Settings.SetGoalie(args.Bool("enable"))
		return nil
	})

	r.Register("set_pid", []debug.Arg{
		{Name: "p1", Kind: debug.Float},
		{Name: "d1", Kind: debug.Float},
		{Name: "p2", Kind: debug.Float},
		{Name: "d2", Kind: debug.Float},
	}, func(_ context.Context, args debug.Args) error {
		_, err := a.Settings.Update(func(c *settings.Config) {
			c.Rotation = settings.Gains{P: args.Float("p1"), D: args.Float("d1")}
			c.Translation = settings.Gains{P: args.Float("p2"), D: args.Float("d2")}
		})
		if err != nil {
			return err
		}
		// A new target makes the rotation loop rebuild its PID.
		a.World.HeadingTarget.Send(0.01)
		return nil
	})

	r.Register("unignore", []debug.Arg{
		{Name: "front", Kind: debug.Bool},
		{Name: "left", Kind: debug.Bool},
		{Name: "right", Kind: debug.Bool},
		{Name: "back", Kind: debug.Bool},
	}, func(_ context.Context, args debug.Args) error {
		a.World.Unignore.Send(robot.Sides{
			Front: args.Bool("front"),
			Left:  args.Bool("left"),
			Right: args.Bool("right"),
			Back:  args.Bool("back"),
		})
		return nil
	})
}
