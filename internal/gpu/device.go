package gpu

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// FilterMode selects texture sampling interpolation.
type FilterMode uint8

const (
	// FilterNearest is nearest-neighbor sampling.
	FilterNearest FilterMode = iota

	// FilterLinear is trilinear interpolation.
	FilterLinear
)

// String returns a human-readable name for the mode.
func (m FilterMode) String() string {
	switch m {
	case FilterNearest:
		return "Nearest"
	case FilterLinear:
		return "Linear"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// BindingKind classifies the resource a binding slot expects.
type BindingKind uint8

const (
	// BindingUniform is a uniform buffer.
	BindingUniform BindingKind = iota

	// BindingStorage is a read-only or read-write storage buffer.
	BindingStorage

	// BindingTexture2D is a sampled 2-D texture.
	BindingTexture2D

	// BindingTexture2DArray is a sampled 2-D array texture.
	BindingTexture2DArray

	// BindingTexture3D is a sampled 3-D texture.
	BindingTexture3D

	// BindingStorageTexture2D is a writable 2-D storage texture.
	BindingStorageTexture2D

	// BindingSampler is a sampler state.
	BindingSampler
)

// String returns a human-readable name for the kind.
func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "Uniform"
	case BindingStorage:
		return "Storage"
	case BindingTexture2D:
		return "Texture2D"
	case BindingTexture2DArray:
		return "Texture2DArray"
	case BindingTexture3D:
		return "Texture3D"
	case BindingStorageTexture2D:
		return "StorageTexture2D"
	case BindingSampler:
		return "Sampler"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// BindingDecl is one resource declaration in a compute kernel's interface.
type BindingDecl struct {
	// Binding is the slot ordinal (the WGSL @binding index).
	Binding int

	// Kind is the declared resource kind.
	Kind BindingKind
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a texture to create.
// Depth > 1 with Array false describes a 3-D texture; Array true describes a
// 2-D array texture with Depth layers.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width, Height and Depth are the texture dimensions. Depth is the
	// layer count for array textures.
	Width, Height, Depth int

	// Array marks a 2-D array texture rather than a 3-D texture.
	Array bool

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// SamplerDescriptor describes a sampler state.
type SamplerDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Filter selects the interpolation mode for min and mag filtering.
	Filter FilterMode
}

// PipelineDescriptor describes a compute pipeline to compile.
type PipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// WGSL is the kernel source. The pipeline's declared binding layout is
	// parsed from this text, keeping the kernel the single source of truth.
	WGSL string

	// EntryPoint is the compute entry function name.
	EntryPoint string
}

// Device is the minimal compute device surface volren needs.
//
// The production implementation is backed by gogpu/wgpu (see Open). Tests use
// in-memory doubles. All creation failures are recoverable errors, never
// panics: the coordinator's fallback path depends on that.
type Device interface {
	// CreateBuffer allocates a GPU buffer.
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// CreateTexture allocates a GPU texture.
	CreateTexture(desc *TextureDescriptor) (Texture, error)

	// CreateSampler creates a sampler state.
	CreateSampler(desc *SamplerDescriptor) (Sampler, error)

	// CreatePipeline compiles a compute kernel and returns its pipeline.
	CreatePipeline(desc *PipelineDescriptor) (Pipeline, error)

	// Begin starts recording a command sequence.
	Begin(label string) (Encoder, error)

	// Name identifies the device for diagnostics.
	Name() string

	// Destroy releases the device and everything created from it.
	Destroy()
}

// Buffer is a GPU buffer handle.
type Buffer interface {
	// Size returns the allocated byte size.
	Size() uint64

	// Upload writes data to the buffer, starting at offset zero.
	Upload(data []byte) error

	// Read copies the buffer contents into dst after prior submissions
	// complete. It suspends the calling goroutine without busy-waiting.
	Read(ctx context.Context, dst []byte) error

	// Destroy releases the buffer. Idempotent.
	Destroy()
}

// Texture is a GPU texture handle.
type Texture interface {
	// Width, Height and Depth return the texture dimensions.
	Width() int
	Height() int
	Depth() int

	// Format returns the texel format.
	Format() gputypes.TextureFormat

	// Upload writes one layer (2-D array) or depth slice (3-D) of the
	// texture. Rows in data are bytesPerRow apart.
	Upload(layer int, data []byte, bytesPerRow int) error

	// Read copies the first layer into dst as tightly packed rows of
	// bytesPerRow bytes, after prior submissions complete.
	Read(ctx context.Context, dst []byte, bytesPerRow int) error

	// Destroy releases the texture. Idempotent.
	Destroy()
}

// Sampler is a sampler state handle.
type Sampler interface {
	// Filter returns the interpolation mode the sampler was created with.
	Filter() FilterMode

	// Destroy releases the sampler. Idempotent.
	Destroy()
}

// Pipeline is a compiled compute pipeline.
type Pipeline interface {
	// Bindings returns the kernel's declared resource layout, ordered by
	// binding index. Used to validate the host-side slot table.
	Bindings() []BindingDecl

	// Destroy releases the pipeline. Idempotent.
	Destroy()
}

// Encoder records one command sequence: resource bindings, dispatches and
// copies, finished by a single Submit.
//
// Encoders are not safe for concurrent use; the coordinator serializes access.
type Encoder interface {
	// SetPipeline selects the compute pipeline for subsequent dispatches.
	SetPipeline(p Pipeline)

	// BindBuffer binds a buffer at the slot ordinal.
	BindBuffer(slot int, b Buffer)

	// BindTexture binds a texture at the slot ordinal.
	BindTexture(slot int, t Texture)

	// BindSampler binds a sampler at the slot ordinal.
	BindSampler(slot int, s Sampler)

	// Dispatch launches gx*gy*gz workgroups with the current bindings.
	// Every binding the pipeline declares must be bound.
	Dispatch(gx, gy, gz int) error

	// CopyTextureToBuffer records a full readback of the texture's first
	// layer into dst with rows bytesPerRow apart.
	CopyTextureToBuffer(src Texture, dst Buffer, bytesPerRow int)

	// CopyBufferToBuffer records a copy of size bytes between buffers.
	CopyBufferToBuffer(src, dst Buffer, size uint64)

	// Submit finishes recording, submits to the queue and suspends until
	// the completion signal fires or ctx is done. Never busy-waits.
	Submit(ctx context.Context) error
}

// bindingDeclRe matches WGSL resource declarations:
//
//	@group(0) @binding(3) var<storage, read> tone_curve0: array<vec2<f32>>;
var bindingDeclRe = regexp.MustCompile(
	`@group\(0\)\s*@binding\((\d+)\)\s*var(<[^>]*>)?\s*\w+\s*:\s*([^;]+);`)

// ParseBindings extracts the ordered binding layout from WGSL kernel source.
//
// The kernel text is the single source of truth for the binding contract:
// the host-side slot table is checked against this parse at pipeline
// construction. Returns an error on duplicate or non-contiguous binding
// indices, since the contract is positional.
func ParseBindings(wgsl string) ([]BindingDecl, error) {
	matches := bindingDeclRe.FindAllStringSubmatch(wgsl, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no binding declarations found", ErrLayoutMismatch)
	}

	decls := make([]BindingDecl, len(matches))
	seen := make(map[int]bool, len(matches))
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 0 || idx >= len(matches) {
			return nil, fmt.Errorf("%w: binding index %q out of range", ErrLayoutMismatch, m[1])
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: duplicate binding index %d", ErrLayoutMismatch, idx)
		}
		seen[idx] = true

		kind, err := classifyBinding(m[2], m[3])
		if err != nil {
			return nil, err
		}
		decls[idx] = BindingDecl{Binding: idx, Kind: kind}
	}
	return decls, nil
}

// classifyBinding maps a WGSL address space and type to a BindingKind.
func classifyBinding(space, typ string) (BindingKind, error) {
	space = strings.TrimSpace(space)
	typ = strings.TrimSpace(typ)
	switch {
	case strings.HasPrefix(space, "<uniform"):
		return BindingUniform, nil
	case strings.HasPrefix(space, "<storage"):
		return BindingStorage, nil
	case strings.HasPrefix(typ, "texture_storage_2d"):
		return BindingStorageTexture2D, nil
	case strings.HasPrefix(typ, "texture_2d_array"):
		return BindingTexture2DArray, nil
	case strings.HasPrefix(typ, "texture_3d"):
		return BindingTexture3D, nil
	case strings.HasPrefix(typ, "texture_2d"):
		return BindingTexture2D, nil
	case strings.HasPrefix(typ, "sampler"):
		return BindingSampler, nil
	default:
		return 0, fmt.Errorf("%w: unrecognized binding type %q", ErrLayoutMismatch, typ)
	}
}
