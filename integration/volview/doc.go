// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package volview embeds volume renders in gogpu GPU-accelerated windows.
//
// View owns a render coordinator and manages the image-to-window pipeline:
//
//	render.Coordinator (raymarch) -> RGBA image -> GPU texture -> Window
//
// The coordinator shares the window's GPU device through the provider, so
// no second device is created. When the provider cannot share a device the
// view still works through its own device or the software renderer.
//
// Basic usage with gogpu:
//
//	view, err := volview.New(app.GPUContextProvider(), 800, 600)
//	if err != nil { ... }
//	defer view.Close()
//
//	view.SetDataset(dataset)
//	view.Coordinator().Send(render.SetWindow(volren.WindowFromRange(-100, 400)))
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    view.RenderTo(context.Background(), dc.AsTextureDrawer())
//	})
//
// View is NOT safe for concurrent use. Create one View per goroutine, or
// use external synchronization.
package volview
