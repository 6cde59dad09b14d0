// Package config provides environment and tuning file helpers for the
// soccer commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Defaults used when the environment is silent.
const (
	DefaultAddr     = ":8080"
	DefaultBroker   = "tcp://localhost:1883"
	DefaultRole     = RolePlayer
	DefaultLogLevel = "info"
	DefaultURL      = "http://localhost:8080"
)

// Roles.
const (
	RolePlayer = "player"
	RoleGoalie = "goalie"
)

// ErrInvalidRole is returned for roles other than player and goalie.
var ErrInvalidRole = errors.New("config: invalid role")

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Addr returns the API listen address from SOCCER_ADDR.
func Addr() string {
	return env("SOCCER_ADDR", DefaultAddr)
}

// MQTTBroker returns the broker URL from SOCCER_MQTT_BROKER.
func MQTTBroker() string {
	return env("SOCCER_MQTT_BROKER", DefaultBroker)
}

// Role returns the starting role from SOCCER_ROLE.
func Role() string {
	return strings.ToLower(env("SOCCER_ROLE", DefaultRole))
}

// LogLevel returns the log level from SOCCER_LOG_LEVEL.
func LogLevel() string {
	return strings.ToLower(env("SOCCER_LOG_LEVEL", DefaultLogLevel))
}

// TuningPath returns the tuning file path from SOCCER_TUNING. Empty means
// no tuning file.
func TuningPath() string {
	return os.Getenv("SOCCER_TUNING")
}

// RobotURL returns the robot API base URL from SOCCER_URL, for soccerctl.
func RobotURL() string {
	return strings.TrimRight(env("SOCCER_URL", DefaultURL), "/")
}

// ValidateRole checks a role name.
func ValidateRole(role string) error {
	switch role {
	case RolePlayer, RoleGoalie:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRole, role)
}
