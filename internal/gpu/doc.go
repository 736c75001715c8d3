// Package gpu provides the GPU device abstraction and resource argument
// encoding for volume rendering.
//
// The package has two layers:
//
//   - A small device abstraction (Device, Buffer, Texture, Sampler, Pipeline,
//     Encoder) with a gogpu/wgpu-backed implementation. The abstraction exists
//     so the coordinator and the analysis engine can run against a test double
//     and so CPU fallback decisions stay in one place.
//   - ArgumentEncoder, the resource binding manager for the volume compute
//     kernel. It owns the kernel's fixed binding slot table, tracks per-slot
//     dirtiness, and skips redundant uploads and rebinds.
//
// The binding slot table is validated against the compiled kernel's declared
// resource interface at construction. A mismatch is a build-time contract
// violation and fails loudly (ErrLayoutMismatch); it is never patched around
// at runtime.
package gpu
