// Package volren is a GPU volume rendering core with a guaranteed CPU fallback.
//
// volren renders 3-D scalar volumes (medical imaging datasets) through a WebGPU
// compute pipeline and transparently degrades to a deterministic software
// renderer when no GPU is available or any GPU operation fails. It also ships
// GPU-accelerated volume analysis (intensity histograms, Gaussian smoothing,
// bounding-box ray intersection) used to drive rendering parameters.
//
// The package is organized around three components:
//
//   - analysis.Engine: stateless volumetric algorithms (histogram, blur, ray
//     casting) that work with or without a GPU device.
//   - internal/gpu.ArgumentEncoder: a resource binding manager that minimizes
//     redundant GPU uploads via two-level dirty tracking.
//   - render.Coordinator: the top-level orchestrator exposing the render,
//     command and histogram API consumed by host applications.
//
// The root package holds the value types exchanged with callers: VolumeDataset,
// TransferFunction, RenderRequest, Image and HistogramResult. Datasets are
// owned by the caller and treated strictly read-only by every component.
//
// volren produces no log output by default. Call SetLogger to enable logging:
//
//	volren.SetLogger(slog.Default())
package volren
