// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"unsafe"

	"github.com/gogpu/volren"
)

// toneCurveSamples is the sample count every tone curve is baked to. All
// four channel buffers share one length; the kernel reads the length of
// channel zero for all of them.
const toneCurveSamples = 256

// transferWidth is the lookup texture width transfer functions bake to.
const transferWidth = 256

// paramsUniform mirrors Params in the raymarch kernel. Every field is a
// vec4 to sidestep WGSL struct alignment rules.
type paramsUniform struct {
	Dims      [4]float32
	Spacing   [4]float32
	Intensity [4]float32
	Window    [4]float32
	Step      [4]float32
	ClipMin   [4]float32
	ClipMax   [4]float32
}

// optionFlag bits, mirrored by the kernel.
const (
	optionLighting uint32 = 1 << iota
	optionClip
	optionClipBox
	optionAdaptive
)

// optionsUniform mirrors Options in the raymarch kernel.
type optionsUniform struct {
	Flags       uint32
	Compositing uint32
	_           uint32
	_           uint32
}

// cameraUniform mirrors Camera in the raymarch kernel.
type cameraUniform struct {
	Right   [4]float32
	Up      [4]float32
	Forward [4]float32
}

// viewportUniform mirrors Viewport in the raymarch kernel.
type viewportUniform struct {
	Size [2]float32
	_    [2]float32
}

func buildParams(d *volren.VolumeDataset, r resolved) paramsUniform {
	// Window bounds are normalized against the dataset intensity range,
	// matching the kernel's normalized samples.
	lo, hi := d.IntensityMin, d.IntensityMax
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	return paramsUniform{
		Dims:      [4]float32{float32(d.Width), float32(d.Height), float32(d.Depth), 0},
		Spacing:   [4]float32{d.Spacing[0], d.Spacing[1], d.Spacing[2], 0},
		Intensity: [4]float32{float32(lo), float32(hi), 0, 0},
		Window: [4]float32{
			float32((r.Window.Center - lo) / span),
			float32(r.Window.Width / span),
			0, 0,
		},
		Step: [4]float32{
			float32(r.SamplingStep),
			float32(r.DensityGate),
			float32(r.DensityCeiling),
			0,
		},
		ClipMin: [4]float32{
			r.ClipBounds.Min[0], r.ClipBounds.Min[1], r.ClipBounds.Min[2], 0,
		},
		ClipMax: [4]float32{
			r.ClipBounds.Max[0], r.ClipBounds.Max[1], r.ClipBounds.Max[2], 0,
		},
	}
}

func buildOptions(r resolved) optionsUniform {
	var flags uint32
	if r.Lighting {
		flags |= optionLighting
	}
	if len(r.ClipSpheres) > 0 {
		flags |= optionClip
	}
	if r.ClipBounds.Enabled() {
		flags |= optionClipBox
	}
	if r.Adaptive {
		flags |= optionAdaptive
	}
	return optionsUniform{Flags: flags, Compositing: uint32(r.Compositing)}
}

func buildCamera(r resolved) cameraUniform {
	return cameraUniform{
		Right:   [4]float32{r.Camera[0][0], r.Camera[0][1], r.Camera[0][2], 0},
		Up:      [4]float32{r.Camera[1][0], r.Camera[1][1], r.Camera[1][2], 0},
		Forward: [4]float32{r.Camera[2][0], r.Camera[2][1], r.Camera[2][2], 0},
	}
}

// buildToneCurve bakes one channel to the shared sample count, applying
// the channel gain. A nil curve is the linear ramp.
func buildToneCurve(curve []float32, gain float64) []float32 {
	out := make([]float32, toneCurveSamples)
	for i := range out {
		t := float32(i) / float32(toneCurveSamples-1)
		v := t
		if len(curve) == 1 {
			v = curve[0]
		} else if len(curve) > 1 {
			// Piecewise-linear resample of the caller's curve.
			pos := t * float32(len(curve)-1)
			idx := int(pos)
			if idx >= len(curve)-1 {
				v = curve[len(curve)-1]
			} else {
				frac := pos - float32(idx)
				v = curve[idx] + (curve[idx+1]-curve[idx])*frac
			}
		}
		v *= float32(gain)
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		out[i] = v
	}
	return out
}

// buildClipPoints flattens clip spheres into vec4s. The kernel requires
// the binding to exist, so an empty set encodes one zero sphere.
func buildClipPoints(spheres []ClipSphere) ([]float32, uint32) {
	if len(spheres) == 0 {
		return make([]float32, 4), 0
	}
	out := make([]float32, 0, len(spheres)*4)
	for _, s := range spheres {
		out = append(out, s.Center[0], s.Center[1], s.Center[2], s.Radius)
	}
	return out, uint32(len(spheres))
}

func f32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
