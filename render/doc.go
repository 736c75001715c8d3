// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render turns render requests into images.
//
// The Coordinator is the package's entry point. It lazily acquires a GPU
// device on first use, binds volume and transfer-function textures
// through a resource argument encoder with identity-keyed caches, and
// dispatches the raymarch kernel. Any GPU failure after construction
// degrades transparently to a deterministic CPU software renderer; the
// caller always receives an image of exactly the requested viewport.
//
// Parameters resolve in a fixed precedence: per-call request overrides
// beat the coordinator's persistent settings, which beat the dataset's
// intrinsic intensity range.
package render
