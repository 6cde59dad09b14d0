package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chamburr/soccer/pkg/settings"
)

// Tuning is the optional on-robot tuning file. Unset fields keep their
// defaults.
//
//	role: goalie
//	distance_offset: 3.5
//	rotation: {p: 0.2, d: 0.07}
//	translation: {p: 0.1, d: 0.1}
type Tuning struct {
	Role           string          `yaml:"role"`
	DistanceOffset *float64        `yaml:"distance_offset"`
	Rotation       *settings.Gains `yaml:"rotation"`
	Translation    *settings.Gains `yaml:"translation"`
}

// LoadTuning reads a tuning file. Unknown keys are rejected so typos do not
// silently fall back to defaults. An empty file sets nothing.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning

	f, err := os.Open(path)
	if err != nil {
		return t, fmt.Errorf("open tuning: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}

	if t.Role != "" {
		if err := ValidateRole(t.Role); err != nil {
			return t, err
		}
	}
	return t, nil
}

// Apply overrides cfg with whatever the file sets and validates the result.
func (t Tuning) Apply(cfg *settings.Config) error {
	if t.Role != "" {
		if err := ValidateRole(t.Role); err != nil {
			return err
		}
		cfg.Goalie = t.Role == RoleGoalie
	}
	if t.Rotation != nil {
		cfg.Rotation = *t.Rotation
	}
	if t.Translation != nil {
		cfg.Translation = *t.Translation
	}
	return cfg.Validate()
}
