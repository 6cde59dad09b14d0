// Soccer runs the robot control core: estimators, strategy and motion
// loops, with sensors and motors reached over MQTT and an operator API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/chamburr/soccer/internal/config"
	"github.com/chamburr/soccer/internal/log"
	"github.com/chamburr/soccer/pkg/app"
	"github.com/chamburr/soccer/pkg/debug"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// parseFlags builds the app configuration from flags, which default to the
// environment. A tuning file has the last word on role and gains.
func parseFlags() (app.Config, error) {
	cfg := app.DefaultConfig()

	addr := flag.String("addr", config.Addr(), "Operator API listen address (empty disables)")
	broker := flag.String("broker", config.MQTTBroker(), "MQTT broker URL")
	noMQTT := flag.Bool("no-mqtt", false, "Run without the MQTT bridge (bench mode)")
	role := flag.String("role", config.Role(), "Starting role: player or goalie")
	level := flag.String("log-level", config.LogLevel(), "Log level: debug, info, warn, error")
	tuning := flag.String("tuning", config.TuningPath(), "YAML tuning file")
	verbose := flag.Bool("debug", false, "Log every debug variable update (very verbose)")
	noLogStream := flag.Bool("no-log-stream", false, "Do not stream logs to /ws/logs")
	flag.Parse()

	log.Init(*level)
	debug.Enabled = *verbose

	cfg.Addr = *addr
	cfg.MQTT.Broker = *broker
	cfg.MQTTEnabled = !*noMQTT
	cfg.StreamLogs = !*noLogStream
	cfg.LogLevel = log.ParseLevel(*level)

	if err := config.ValidateRole(*role); err != nil {
		return cfg, err
	}
	cfg.Settings.Goalie = *role == config.RoleGoalie

	if *tuning != "" {
		t, err := config.LoadTuning(*tuning)
		if err != nil {
			return cfg, err
		}
		if err := t.Apply(&cfg.Settings); err != nil {
			return cfg, err
		}
		if t.DistanceOffset != nil {
			cfg.Coordinate.DistanceOffset = *t.DistanceOffset
		}
		log.Info("loaded tuning", "path", *tuning)
	}
	return cfg, nil
}
