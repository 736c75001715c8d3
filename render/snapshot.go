// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"log/slog"

	"github.com/gogpu/volren"
)

func slogger() *slog.Logger { return volren.Logger() }

// Snapshot records how the most recent render executed, for diagnostics.
type Snapshot struct {
	// GPU is true when the compute pipeline produced the image.
	GPU bool

	// Meta holds the resolved parameters of the render.
	Meta volren.RenderMetadata

	// Uploads and Binds are cumulative argument-encoder counters, zero
	// while no GPU pipeline exists.
	Uploads, Binds uint64

	// FallbackCause describes why the software path ran, empty on the
	// GPU path.
	FallbackCause string
}

func (c *Coordinator) makeSnapshot(onGPU bool, meta volren.RenderMetadata, cause error) Snapshot {
	s := Snapshot{GPU: onGPU, Meta: meta}
	if c.args != nil {
		st := c.args.State()
		s.Uploads = st.Uploads
		s.Binds = st.Binds
	}
	if cause != nil {
		s.FallbackCause = cause.Error()
	}
	return s
}

// LastSnapshot returns diagnostics for the most recent render.
func (c *Coordinator) LastSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// AppliedPreset returns the name of the active preset, empty when none.
func (c *Coordinator) AppliedPreset() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preset
}

// CurrentSettings returns a copy of the persistent parameter layer.
func (c *Coordinator) CurrentSettings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}
