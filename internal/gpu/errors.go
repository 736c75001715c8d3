package gpu

import "errors"

// Device and encoder errors.
var (
	// ErrDeviceUnavailable is returned when no usable GPU compute device
	// exists. Callers route to the CPU fallback on this error.
	ErrDeviceUnavailable = errors.New("gpu: no usable compute device")

	// ErrResourceCreation is returned when a texture, buffer or sampler
	// allocation fails. Non-fatal: the caller falls back for this call only.
	ErrResourceCreation = errors.New("gpu: resource creation failed")

	// ErrSubmission is returned when a command buffer cannot be encoded or
	// submitted. Non-fatal: the caller falls back for this call only.
	ErrSubmission = errors.New("gpu: command submission failed")

	// ErrLayoutMismatch is returned when the host-side binding slot table
	// disagrees with the compiled kernel's declared resource layout.
	// Fatal at construction; indicates a build-time contract violation.
	ErrLayoutMismatch = errors.New("gpu: binding layout mismatch")

	// ErrDestroyed is returned when operating on a destroyed resource.
	ErrDestroyed = errors.New("gpu: resource has been destroyed")

	// ErrSizeMismatch is returned when upload data does not match the
	// resource's allocated size.
	ErrSizeMismatch = errors.New("gpu: data size does not match resource")
)
