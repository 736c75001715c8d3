// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"

	"github.com/gogpu/volren"
	"github.com/gogpu/volren/analysis"
)

// RefreshHistogram recomputes the dataset's intensity histogram off the
// render path and stores it for LastHistogram. The computation runs on
// the CPU in its own goroutine so interactive rendering is never blocked;
// it treats the dataset as a read-only snapshot for its duration. The
// returned channel closes when the result is stored or the context ends.
func (c *Coordinator) RefreshHistogram(ctx context.Context, d *volren.VolumeDataset, binCount int, normalized bool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h, err := analysis.New(nil).Histogram(ctx, d, binCount, 0, 0)
		if err != nil {
			slogger().Warn("render: histogram refresh failed", "err", err)
			return
		}
		if normalized {
			analysis.Normalize(&h)
		}
		c.mu.Lock()
		c.histogram = h
		c.hasHist = true
		c.mu.Unlock()
	}()
	return done
}

// LastHistogram returns the most recent refreshed histogram.
func (c *Coordinator) LastHistogram() (volren.HistogramResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.histogram, c.hasHist
}
