// Package settings holds the runtime configuration the operator can change
// while the robot is running: the start flag, the role and the PID gains.
package settings

import (
	"errors"
	"fmt"
	"math"

	"github.com/chamburr/soccer/pkg/signal"
)

// ErrInvalidGain is returned when a PID gain is negative or not finite.
var ErrInvalidGain = errors.New("settings: invalid gain")

// Gains is a proportional/derivative pair.
type Gains struct {
	P float64 `json:"p" yaml:"p"`
	D float64 `json:"d" yaml:"d"`
}

// Validate checks that both gains are finite and non-negative.
func (g Gains) Validate() error {
	for _, v := range []float64{g.P, g.D} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidGain, v)
		}
	}
	return nil
}

// Config is the runtime configuration.
type Config struct {
	Started bool `json:"started"`
	Goalie  bool `json:"goalie"`

	// GoHome and GoOther replace the behaviors with a fixed target.
	GoHome  bool `json:"go_home"`
	GoOther bool `json:"go_other"`

	Rotation    Gains `json:"rotation"`    // heading loop
	Translation Gains `json:"translation"` // position loop
}

// DefaultConfig returns the tuned defaults: stopped, field player.
func DefaultConfig() Config {
	return Config{
		Rotation:    Gains{P: 0.2, D: 0.07},
		Translation: Gains{P: 0.10, D: 0.1},
	}
}

// Validate checks the gains.
func (c Config) Validate() error {
	if err := c.Rotation.Validate(); err != nil {
		return fmt.Errorf("rotation: %w", err)
	}
	if err := c.Translation.Validate(); err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	return nil
}

// Store guards a Config. Readers always get a copy.
type Store struct {
	cell *signal.Cell[Config]
}

// NewStore creates a Store holding cfg.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{cell: signal.NewCell(cfg)}, nil
}

// Get returns a snapshot of the configuration.
func (s *Store) Get() Config {
	return s.cell.Load()
}

// Update applies fn to a copy of the configuration and stores the result if
// it validates. The stored configuration is unchanged on error.
func (s *Store) Update(fn func(*Config)) (Config, error) {
	var err error
	next := s.cell.Update(func(cur Config) Config {
		cand := cur
		fn(&cand)
		if err = cand.Validate(); err != nil {
			return cur
		}
		return cand
	})
	return next, err
}

// Started reports whether the motion loops should act.
func (s *Store) Started() bool {
	return s.cell.Load().Started
}

// Goalie reports whether the robot plays as goalkeeper.
func (s *Store) Goalie() bool {
	return s.cell.Load().Goalie
}

// SetStarted sets the start flag.
func (s *Store) SetStarted(started bool) {
	s.cell.Update(func(c Config) Config {
		c.Started = started
		return c
	})
}

// SetGoalie sets the role flag.
func (s *Store) SetGoalie(goalie bool) {
	s.cell.Update(func(c Config) Config {
		c.Goalie = goalie
		return c
	})
}
