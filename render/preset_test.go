// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"strings"
	"testing"

	"github.com/gogpu/volren"
)

const presetYAML = `
- name: bone
  window:
    center: 500
    width: 2000
  compositing: max
  sampling_step: 0.002
- name: soft-tissue
  window:
    center: 40
    width: 400
  lighting: true
  density_gate: 0.05
  clip_spheres:
    - center: [0.5, 0.5, 0.5]
      radius: 0.25
`

func TestLoadPresets(t *testing.T) {
	presets, err := LoadPresets(strings.NewReader(presetYAML))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(presets) != 2 {
		t.Fatalf("got %d presets, want 2", len(presets))
	}
	bone := presets[0]
	if bone.Name != "bone" || bone.Compositing != "max" || bone.SamplingStep != 0.002 {
		t.Errorf("bone preset = %+v", bone)
	}
	if bone.Window.Center != 500 || bone.Window.Width != 2000 {
		t.Errorf("bone window = %+v", bone.Window)
	}
	soft := presets[1]
	if !soft.Lighting || soft.DensityGate != 0.05 || len(soft.ClipSpheres) != 1 {
		t.Errorf("soft-tissue preset = %+v", soft)
	}
	if soft.ClipSpheres[0].Radius != 0.25 {
		t.Errorf("clip sphere = %+v", soft.ClipSpheres[0])
	}
}

func TestLoadPresetsRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "- window:\n    center: 1\n    width: 2\n"},
		{"bad compositing", "- name: x\n  compositing: multiply\n"},
		{"not yaml", "{{{"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadPresets(strings.NewReader(tc.yaml)); err == nil {
				t.Error("accepted invalid preset list")
			}
		})
	}
}

func TestApplyPreset(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()

	presets, err := LoadPresets(strings.NewReader(presetYAML))
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if err := c.ApplyPreset(presets[0]); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if got := c.AppliedPreset(); got != "bone" {
		t.Errorf("AppliedPreset = %q, want bone", got)
	}
	s := c.CurrentSettings()
	if s.Compositing != volren.CompositingMaxIntensity || s.SamplingStep != 0.002 {
		t.Errorf("settings after preset = %+v", s)
	}

	d := uniformDataset(4, 100, -1000, 1000)
	res, err := c.RenderImage(context.Background(), d, &volren.RenderRequest{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Meta.Preset != "bone" {
		t.Errorf("metadata preset %q, want bone", res.Meta.Preset)
	}
	if res.Meta.Window.Center != 500 {
		t.Errorf("metadata window center %v, want 500", res.Meta.Window.Center)
	}
}

func TestApplyPresetRejectsBadCompositing(t *testing.T) {
	c := New(Options{DisableGPU: true})
	defer c.Close()
	if err := c.ApplyPreset(Preset{Name: "x", Compositing: "multiply"}); err == nil {
		t.Error("accepted unknown compositing mode")
	}
}
