// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/volren"
)

// ClipSphere excludes a spherical region from rendering, in normalized
// volume coordinates.
type ClipSphere struct {
	Center [3]float32 `yaml:"center"`
	Radius float32    `yaml:"radius"`
}

// ClipBox restricts rendering to a normalized axis-aligned box; samples
// outside it are skipped. The zero value disables clipping.
type ClipBox struct {
	Min [3]float32 `yaml:"min"`
	Max [3]float32 `yaml:"max"`
}

// Enabled reports whether the box bounds a non-empty region.
func (b ClipBox) Enabled() bool {
	return b.Max[0] > b.Min[0] && b.Max[1] > b.Min[1] && b.Max[2] > b.Min[2]
}

// Contains reports whether a normalized position lies inside the box.
func (b ClipBox) Contains(x, y, z float32) bool {
	return x >= b.Min[0] && x <= b.Max[0] &&
		y >= b.Min[1] && y <= b.Max[1] &&
		z >= b.Min[2] && z <= b.Max[2]
}

// Settings is the coordinator's persistent parameter layer. Every field
// has a usable zero-adjacent default filled in by Normalize; a render
// request's transient overrides take precedence field by field.
type Settings struct {
	// Window is the intensity window. A zero window defers to the
	// dataset's intrinsic intensity range.
	Window volren.Window `yaml:"window"`

	// Compositing selects the accumulation strategy.
	Compositing volren.CompositingMode `yaml:"-"`

	// SamplingStep is the ray-march step in normalized volume units.
	SamplingStep float64 `yaml:"sampling_step"`

	// Lighting toggles the lighting term; when off the software renderer
	// and kernel dim output to 70 percent.
	Lighting bool `yaml:"lighting"`

	// DensityGate drops windowed samples at or below this value.
	DensityGate float64 `yaml:"density_gate"`

	// DensityCeiling drops windowed samples above this value. Zero or a
	// value outside (0,1] means no ceiling.
	DensityCeiling float64 `yaml:"density_ceiling"`

	// AdaptiveSampling halves the step while the camera is stationary.
	AdaptiveSampling bool `yaml:"adaptive_sampling"`

	// ToneCurves holds optional per-channel response curves, sampled
	// uniformly over [0,1]. A nil channel is linear.
	ToneCurves [4][]float32 `yaml:"-"`

	// ChannelGain scales each output channel; zero means 1.
	ChannelGain [4]float64 `yaml:"-"`

	// ClipBounds restricts rendering to a normalized box.
	ClipBounds ClipBox `yaml:"clip_bounds"`

	// ClipSpheres excludes regions from both render paths.
	ClipSpheres []ClipSphere `yaml:"clip_spheres"`

	// Filter selects volume texture sampling.
	Filter FilterSetting `yaml:"-"`
}

// FilterSetting names the volume sampling mode.
type FilterSetting uint8

const (
	// FilterTrilinear interpolates between voxels.
	FilterTrilinear FilterSetting = iota

	// FilterNearest snaps to the nearest voxel.
	FilterNearest
)

// Normalize fills defaults for unset fields.
func (s *Settings) Normalize() {
	if s.SamplingStep <= 0 {
		s.SamplingStep = 0.004
	}
	if s.DensityCeiling <= 0 || s.DensityCeiling > 1 {
		s.DensityCeiling = 1
	}
	for i := range s.ChannelGain {
		if s.ChannelGain[i] == 0 {
			s.ChannelGain[i] = 1
		}
	}
}

// resolved is the flattened parameter set one render executes with, after
// applying the full precedence chain.
type resolved struct {
	Width, Height  int
	Camera         [3][3]float32
	Window         volren.Window
	Compositing    volren.CompositingMode
	SamplingStep   float64
	Adaptive       bool
	Lighting       bool
	DensityGate    float64
	DensityCeiling float64
	ToneCurves     [4][]float32
	ChannelGain    [4]float64
	ClipBounds     ClipBox
	ClipSpheres    []ClipSphere
	Filter         FilterSetting
}

// resolve flattens request overrides, persistent settings and dataset
// defaults, highest precedence first.
func resolve(d *volren.VolumeDataset, s Settings, req *volren.RenderRequest) resolved {
	s.Normalize()
	r := resolved{
		Width:          req.Width,
		Height:         req.Height,
		Camera:         req.Camera,
		Window:         s.Window,
		Compositing:    s.Compositing,
		SamplingStep:   s.SamplingStep,
		Lighting:       s.Lighting,
		DensityGate:    s.DensityGate,
		DensityCeiling: s.DensityCeiling,
		ToneCurves:     s.ToneCurves,
		ChannelGain:    s.ChannelGain,
		ClipBounds:     s.ClipBounds,
		ClipSpheres:    s.ClipSpheres,
		Filter:         s.Filter,
	}
	if r.Window.Width <= 0 {
		r.Window = volren.WindowFromRange(d.IntensityMin, d.IntensityMax)
	}
	if req.Window != nil {
		r.Window = *req.Window
	}
	if req.Compositing != nil {
		r.Compositing = *req.Compositing
	}
	if req.SamplingDistance != nil && *req.SamplingDistance > 0 {
		r.SamplingStep = *req.SamplingDistance
	}
	if req.Lighting != nil {
		r.Lighting = *req.Lighting
	}
	if r.Camera == ([3][3]float32{}) {
		r.Camera = [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}
	return r
}
