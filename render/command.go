// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/volren"

// Command is an incremental mutation of the coordinator's persistent
// settings. Commands apply atomically via Send: a render either sees all
// of a batch or none of it.
type Command func(*Coordinator)

// Send applies commands in order under the coordinator's lock.
func (c *Coordinator) Send(cmds ...Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, cmd := range cmds {
		cmd(c)
	}
	c.settings.Normalize()
}

// SetCompositing selects the accumulation strategy.
func SetCompositing(m volren.CompositingMode) Command {
	return func(c *Coordinator) { c.settings.Compositing = m }
}

// SetWindow sets the persistent intensity window.
func SetWindow(w volren.Window) Command {
	return func(c *Coordinator) { c.settings.Window = w }
}

// SetSamplingStep sets the ray-march step. Non-positive values are
// replaced by the default.
func SetSamplingStep(step float64) Command {
	return func(c *Coordinator) { c.settings.SamplingStep = step }
}

// SetLighting toggles the lighting term.
func SetLighting(on bool) Command {
	return func(c *Coordinator) { c.settings.Lighting = on }
}

// SetDensityGate sets the windowed value band samples must fall in: a
// sample contributes only when floor < v <= ceiling. A non-positive
// ceiling means no ceiling.
func SetDensityGate(floor, ceiling float64) Command {
	return func(c *Coordinator) {
		c.settings.DensityGate = floor
		c.settings.DensityCeiling = ceiling
	}
}

// SetAdaptiveSampling toggles step refinement for a stationary camera.
func SetAdaptiveSampling(on bool) Command {
	return func(c *Coordinator) { c.settings.AdaptiveSampling = on }
}

// SetToneCurve replaces one channel's response curve. A nil curve is
// linear. Channels outside [0,3] are ignored.
func SetToneCurve(channel int, curve []float32) Command {
	return func(c *Coordinator) {
		if channel >= 0 && channel < len(c.settings.ToneCurves) {
			c.settings.ToneCurves[channel] = curve
		}
	}
}

// SetChannelGain scales one output channel.
func SetChannelGain(channel int, gain float64) Command {
	return func(c *Coordinator) {
		if channel >= 0 && channel < len(c.settings.ChannelGain) {
			c.settings.ChannelGain[channel] = gain
		}
	}
}

// SetClipBounds restricts rendering to a normalized box. A zero box
// disables clipping.
func SetClipBounds(b ClipBox) Command {
	return func(c *Coordinator) { c.settings.ClipBounds = b }
}

// SetClipSpheres replaces the clip region set.
func SetClipSpheres(spheres []ClipSphere) Command {
	return func(c *Coordinator) { c.settings.ClipSpheres = spheres }
}

// SetFilter selects the volume sampling mode.
func SetFilter(f FilterSetting) Command {
	return func(c *Coordinator) { c.settings.Filter = f }
}

// SetTransferFunction replaces one channel's transfer function. The
// compiled lookup texture is cached by content, so setting an equal
// function allocates nothing.
func SetTransferFunction(channel int, tf volren.TransferFunction) Command {
	return func(c *Coordinator) {
		if channel >= 0 && channel < len(c.tfs) {
			c.tfs[channel] = tf
		}
	}
}
