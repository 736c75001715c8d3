// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/internal/gpu"
)

func TestSoftwareLightingBrightens(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(SetWindow(volren.WindowFromRange(50, 150)))

	d := uniformDataset(4, 100, -1000, 1000)
	req := &volren.RenderRequest{Width: 4, Height: 4}
	dimmed, err := c.RenderImage(context.Background(), d, req)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	c.Send(SetLighting(true))
	lit, err := c.RenderImage(context.Background(), d, req)
	if err != nil {
		t.Fatalf("lit render: %v", err)
	}
	if dimmed.Image.Pix[0] >= lit.Image.Pix[0] {
		t.Errorf("lighting off %d >= on %d", dimmed.Image.Pix[0], lit.Image.Pix[0])
	}
}

func TestSoftwareDensityGate(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		SetDensityGate(0.6, 1), // windowed value 0.5 falls below the floor
	)

	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] != 0 || res.Image.Pix[i+1] != 0 || res.Image.Pix[i+2] != 0 {
			t.Fatalf("gated pixel %d = %v, want black", i/4, res.Image.Pix[i:i+3])
		}
	}
}

func TestSoftwareDensityCeiling(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		SetDensityGate(0, 0.4), // windowed value 0.5 exceeds the ceiling
	)

	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] != 0 || res.Image.Pix[i+1] != 0 || res.Image.Pix[i+2] != 0 {
			t.Fatalf("pixel %d = %v, want black above ceiling", i/4, res.Image.Pix[i:i+3])
		}
	}

	// Raising the ceiling above the windowed value lets samples through.
	c.Send(SetDensityGate(0, 0.9))
	res, err = c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if res.Image.Pix[0] == 0 {
		t.Error("sample below ceiling was dropped")
	}
}

func TestSoftwareClipSphereBlanksRegion(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		SetClipSpheres([]ClipSphere{{Center: [3]float32{0.5, 0.5, 0.5}, Radius: 2}}),
	)

	// A sphere covering the whole normalized volume clips every voxel.
	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for i := 0; i < len(res.Image.Pix); i += 4 {
		if res.Image.Pix[i] != 0 {
			t.Fatalf("clipped pixel %d = %d, want 0", i/4, res.Image.Pix[i])
		}
	}
}

func TestSoftwareClipBoundsExcludesOutside(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		// Keep only the left half of the normalized volume.
		SetClipBounds(ClipBox{Min: [3]float32{0, 0, 0}, Max: [3]float32{0.5, 1, 1}}),
	)

	// Render at the dataset's own resolution so pixels map to voxels.
	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for y := 0; y < 4; y++ {
		row := res.Image.Pix[y*res.Image.Stride:]
		if row[0] == 0 {
			t.Errorf("row %d: pixel inside clip box is black", y)
		}
		if right := row[3*4]; right != 0 {
			t.Errorf("row %d: pixel outside clip box = %d, want 0", y, right)
		}
	}
}

func TestSoftwareChannelGain(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		SetChannelGain(0, 2),
	)

	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if r, g := res.Image.Pix[0], res.Image.Pix[1]; r <= g {
		t.Errorf("gained red %d <= green %d", r, g)
	}
}

func TestSoftwareToneCurveInverts(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	inverted := []float32{1, 0}
	c.Send(
		SetWindow(volren.WindowFromRange(50, 150)),
		SetToneCurve(0, inverted),
		SetToneCurve(1, inverted),
		SetToneCurve(2, inverted),
	)

	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// Windowed 0.5 through the inverted ramp stays near 0.5, so the
	// check is against the linear dark end instead: a near-zero voxel
	// maps bright.
	dark := uniformDataset(4, 51, -1000, 1000)
	darkRes, err := c.RenderImage(context.Background(), dark, &volren.RenderRequest{Width: 4, Height: 4})
	if err != nil {
		t.Fatalf("dark render: %v", err)
	}
	if darkRes.Image.Pix[0] <= res.Image.Pix[0] {
		t.Errorf("inverted curve: near-zero voxel %d not brighter than mid voxel %d",
			darkRes.Image.Pix[0], res.Image.Pix[0])
	}
}

func TestBuildToneCurveResampling(t *testing.T) {
	linear := buildToneCurve(nil, 1)
	if len(linear) != toneCurveSamples {
		t.Fatalf("curve length %d, want %d", len(linear), toneCurveSamples)
	}
	if linear[0] != 0 || linear[len(linear)-1] != 1 {
		t.Errorf("linear ramp endpoints %v, %v", linear[0], linear[len(linear)-1])
	}

	clamped := buildToneCurve(nil, 3)
	if clamped[len(clamped)-1] != 1 {
		t.Errorf("gain output not clamped: %v", clamped[len(clamped)-1])
	}

	flat := buildToneCurve([]float32{0.25}, 1)
	for i, v := range flat {
		if v != 0.25 {
			t.Fatalf("single-point curve sample %d = %v, want 0.25", i, v)
		}
	}
}

func TestBuildClipPoints(t *testing.T) {
	pts, n := buildClipPoints(nil)
	if n != 0 || len(pts) != 4 {
		t.Errorf("empty set = %v count %d, want one zero vec4 and count 0", pts, n)
	}
	pts, n = buildClipPoints([]ClipSphere{{Center: [3]float32{1, 2, 3}, Radius: 4}})
	if n != 1 || len(pts) != 4 || pts[3] != 4 {
		t.Errorf("one sphere = %v count %d", pts, n)
	}
}

func TestAdaptiveSamplingHalvesStep(t *testing.T) {
	d := uniformDataset(4, 100, -1000, 1000)
	req := &volren.RenderRequest{Width: 4, Height: 4}

	steps := make([]float64, 0, 3)
	dev := gpu.NewMemDevice()
	dev.OnDispatch = func(e *gpu.MemEncoder, gx, gy, gz int) {
		buf := e.Buffer(int(gpu.SlotParams))
		if buf == nil {
			t.Error("params buffer not bound")
			return
		}
		bits := binary.LittleEndian.Uint32(buf.Bytes()[16*4:])
		steps = append(steps, float64(math.Float32frombits(bits)))
	}
	c := New(Options{Device: dev})
	defer c.Close()
	c.Send(SetAdaptiveSampling(true), SetSamplingStep(0.01))

	for i := 0; i < 3; i++ {
		if _, err := c.RenderImage(context.Background(), d, req); err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
	}
	if len(steps) != 3 {
		t.Fatalf("observed %d dispatches, want 3", len(steps))
	}
	// The uniform stores the step as float32.
	full := float64(float32(0.01))
	if steps[0] != full {
		t.Errorf("first step %v, want %v", steps[0], full)
	}
	if steps[1] >= steps[0] {
		t.Errorf("stationary camera did not refine: %v -> %v", steps[0], steps[1])
	}

	// A camera change resets to the full step.
	rotated := *req
	rotated.Camera = [3][3]float32{{0, 1, 0}, {1, 0, 0}, {0, 0, 1}}
	if _, err := c.RenderImage(context.Background(), d, &rotated); err != nil {
		t.Fatalf("rotated render: %v", err)
	}
	if got := steps[len(steps)-1]; got != full {
		t.Errorf("camera change step %v, want %v", got, full)
	}
}
