// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/volren"
)

// Preset is a named bundle of persistent settings, typically loaded from
// a YAML file of clinical window presets.
type Preset struct {
	Name           string        `yaml:"name"`
	Window         volren.Window `yaml:"window"`
	Compositing    string        `yaml:"compositing"`
	SamplingStep   float64       `yaml:"sampling_step"`
	Lighting       bool          `yaml:"lighting"`
	DensityGate    float64       `yaml:"density_gate"`
	DensityCeiling float64       `yaml:"density_ceiling"`
	ClipBounds     ClipBox       `yaml:"clip_bounds"`
	ClipSpheres    []ClipSphere  `yaml:"clip_spheres"`
}

// LoadPresets decodes a YAML preset list.
func LoadPresets(r io.Reader) ([]Preset, error) {
	var presets []Preset
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&presets); err != nil {
		return nil, fmt.Errorf("render: decode presets: %w", err)
	}
	for i, p := range presets {
		if p.Name == "" {
			return nil, fmt.Errorf("render: preset %d has no name", i)
		}
		if _, err := parseCompositing(p.Compositing); err != nil {
			return nil, fmt.Errorf("render: preset %q: %w", p.Name, err)
		}
	}
	return presets, nil
}

func parseCompositing(s string) (volren.CompositingMode, error) {
	switch s {
	case "", "blend":
		return volren.CompositingBlend, nil
	case "max":
		return volren.CompositingMaxIntensity, nil
	case "min":
		return volren.CompositingMinIntensity, nil
	case "average":
		return volren.CompositingAverage, nil
	default:
		return 0, fmt.Errorf("unknown compositing mode %q", s)
	}
}

// ApplyPreset installs a preset's settings as the persistent layer and
// records its name in subsequent render metadata.
func (c *Coordinator) ApplyPreset(p Preset) error {
	mode, err := parseCompositing(p.Compositing)
	if err != nil {
		return fmt.Errorf("render: preset %q: %w", p.Name, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.settings.Window = p.Window
	c.settings.Compositing = mode
	c.settings.SamplingStep = p.SamplingStep
	c.settings.Lighting = p.Lighting
	c.settings.DensityGate = p.DensityGate
	c.settings.DensityCeiling = p.DensityCeiling
	c.settings.ClipBounds = p.ClipBounds
	c.settings.ClipSpheres = p.ClipSpheres
	c.settings.Normalize()
	c.preset = p.Name
	return nil
}
