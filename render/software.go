// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/parallel"
)

// renderSoftware is the deterministic CPU fallback. It windows the
// mid-depth axial slice through the same tone-curve and gain chain the
// kernel uses and scales the result to the viewport. Two calls with
// identical inputs produce byte-identical images.
func renderSoftware(d *volren.VolumeDataset, r resolved) *volren.Image {
	mid := d.Depth / 2
	curves := [4][]float32{}
	for ch := range curves {
		curves[ch] = buildToneCurve(r.ToneCurves[ch], r.ChannelGain[ch])
	}
	dim := float64(1)
	if !r.Lighting {
		dim = 0.7
	}

	slice := image.NewRGBA(image.Rect(0, 0, d.Width, d.Height))
	zNorm := (float32(mid) + 0.5) / float32(d.Depth)
	parallel.For(d.Height, func(y int) {
		for x := 0; x < d.Width; x++ {
			idx := slice.PixOffset(x, y)
			slice.Pix[idx+3] = 0xff
			if clippedVoxel(&r, x, y, d, zNorm) {
				continue
			}
			v := r.Window.Apply(d.VoxelAt(x, y, mid))
			if v <= r.DensityGate || v > r.DensityCeiling {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				slice.Pix[idx+ch] = toByte(sampleCurve(curves[ch], v) * dim)
			}
		}
	})

	img := volren.NewImage(r.Width, r.Height)
	draw.ApproxBiLinear.Scale(img.RGBA(), img.RGBA().Bounds(), slice, slice.Bounds(), draw.Src, nil)
	return img
}

func clippedVoxel(r *resolved, x, y int, d *volren.VolumeDataset, zNorm float32) bool {
	if !r.ClipBounds.Enabled() && len(r.ClipSpheres) == 0 {
		return false
	}
	px := (float32(x) + 0.5) / float32(d.Width)
	py := (float32(y) + 0.5) / float32(d.Height)
	if r.ClipBounds.Enabled() && !r.ClipBounds.Contains(px, py, zNorm) {
		return true
	}
	for _, s := range r.ClipSpheres {
		dx := px - s.Center[0]
		dy := py - s.Center[1]
		dz := zNorm - s.Center[2]
		if dx*dx+dy*dy+dz*dz < s.Radius*s.Radius {
			return true
		}
	}
	return false
}

// sampleCurve looks a windowed value up in a baked tone curve, matching
// the kernel's integer index truncation.
func sampleCurve(curve []float32, v float64) float64 {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	idx := int(v * float64(len(curve)-1))
	return float64(curve[idx])
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
