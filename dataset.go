package volren

import (
	"errors"
	"fmt"
	"unsafe"
)

// Dataset errors.
var (
	// ErrInvalidDimensions is returned when dataset dimensions are not positive.
	ErrInvalidDimensions = errors.New("volren: invalid dataset dimensions")

	// ErrDatasetSizeMismatch is returned when the voxel buffer length does not
	// match the declared dimensions and pixel format.
	ErrDatasetSizeMismatch = errors.New("volren: voxel buffer length does not match dimensions")
)

// PixelFormat identifies the numeric encoding of a dataset's voxels.
type PixelFormat uint8

const (
	// PixelFormatInt16 is signed 16-bit little-endian voxels (CT Hounsfield data).
	PixelFormatInt16 PixelFormat = iota

	// PixelFormatUint16 is unsigned 16-bit little-endian voxels (MR magnitude data).
	PixelFormatUint16
)

// String returns a human-readable name for the format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatInt16:
		return "Int16"
	case PixelFormatUint16:
		return "Uint16"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(f))
	}
}

// BytesPerVoxel returns the storage size of one voxel.
func (f PixelFormat) BytesPerVoxel() int {
	switch f {
	case PixelFormatInt16, PixelFormatUint16:
		return 2
	default:
		return 2
	}
}

// FloatConvertible reports whether the format has a floating-point mapping.
// Formats without one cannot pass through the Gaussian filter pipeline.
func (f PixelFormat) FloatConvertible() bool {
	switch f {
	case PixelFormatInt16, PixelFormatUint16:
		return true
	default:
		return false
	}
}

// HardwareHistogram reports whether the hardware histogram primitive can
// consume the format directly. Signed 16-bit data requires a reinterpretation
// the primitive cannot do, so it routes to the CPU histogram path.
func (f PixelFormat) HardwareHistogram() bool {
	return f == PixelFormatUint16
}

// VolumeDataset is an immutable voxel buffer plus metadata.
//
// The dataset is owned by the caller and read-only to every volren component.
// No component may mutate Data while a render, histogram or ray cast is
// reading it.
type VolumeDataset struct {
	// Data holds the raw little-endian voxel bytes, X-fastest, then Y, then Z.
	Data []byte

	// Width, Height and Depth are the voxel grid dimensions.
	Width, Height, Depth int

	// Spacing is the physical voxel spacing per axis (millimeters).
	Spacing [3]float32

	// Format is the numeric encoding of Data.
	Format PixelFormat

	// IntensityMin and IntensityMax bound the dataset's intensity range
	// and serve as the intrinsic default rendering window.
	IntensityMin, IntensityMax float64

	// Generation is an optional caller-maintained counter that participates
	// in DatasetIdentity. Callers that reuse a buffer in place at the same
	// address should bump Generation to invalidate cached GPU resources;
	// callers that never do may leave it zero.
	Generation uint64
}

// Validate checks dimensions against the buffer length.
func (d *VolumeDataset) Validate() error {
	if d.Width <= 0 || d.Height <= 0 || d.Depth <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidDimensions, d.Width, d.Height, d.Depth)
	}
	want := d.Width * d.Height * d.Depth * d.Format.BytesPerVoxel()
	if len(d.Data) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrDatasetSizeMismatch, len(d.Data), want)
	}
	return nil
}

// VoxelCount returns the total number of voxels.
func (d *VolumeDataset) VoxelCount() int {
	return d.Width * d.Height * d.Depth
}

// SliceBytes returns the byte length of one Z slice.
func (d *VolumeDataset) SliceBytes() int {
	return d.Width * d.Height * d.Format.BytesPerVoxel()
}

// Slice returns the raw bytes of the Z slice at depth z.
func (d *VolumeDataset) Slice(z int) []byte {
	n := d.SliceBytes()
	return d.Data[z*n : (z+1)*n]
}

// VoxelAt returns the voxel at (x, y, z) as a float64 using the dataset's
// format-specific numeric binding.
func (d *VolumeDataset) VoxelAt(x, y, z int) float64 {
	idx := ((z*d.Height+y)*d.Width + x) * 2
	raw := uint16(d.Data[idx]) | uint16(d.Data[idx+1])<<8
	if d.Format == PixelFormatInt16 {
		return float64(int16(raw))
	}
	return float64(raw)
}

// Identity returns the dataset's cache fingerprint.
func (d *VolumeDataset) Identity() DatasetIdentity {
	var ptr uintptr
	if len(d.Data) > 0 {
		ptr = uintptr(unsafe.Pointer(&d.Data[0]))
	}
	return DatasetIdentity{
		ptr:        ptr,
		length:     len(d.Data),
		generation: d.Generation,
	}
}

// DatasetIdentity is a cheap, non-owning fingerprint used to decide GPU cache
// validity: backing-array address, byte length and the dataset's Generation.
//
// Equality is a heuristic, not a content hash. Content changes behind an
// unchanged address, length and generation are invisible to caches keyed by
// this type. This is a documented trade-off that avoids O(n) hashing per
// render; callers that mutate buffers in place must bump
// VolumeDataset.Generation.
//
// DatasetIdentity is comparable and can be used as a map key.
type DatasetIdentity struct {
	ptr        uintptr
	length     int
	generation uint64
}

// IsZero reports whether the identity refers to no dataset.
func (id DatasetIdentity) IsZero() bool {
	return id.ptr == 0 && id.length == 0 && id.generation == 0
}

// String returns a compact diagnostic form.
func (id DatasetIdentity) String() string {
	return fmt.Sprintf("dataset[%#x+%d g%d]", id.ptr, id.length, id.generation)
}
