package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// MemDevice is an in-memory Device used by tests and benchmarks. Buffers
// and textures hold their contents in host memory, dispatches are counted
// rather than executed, and every creation and upload increments a
// counter so tests can assert on resource traffic.
type MemDevice struct {
	mu sync.Mutex

	// FailCreate, when set, makes all resource creation fail.
	FailCreate bool

	// FailSubmit, when set, makes Submit fail.
	FailSubmit bool

	// OnDispatch, when set, runs for every Dispatch with the bound
	// resources. Tests use it to emulate kernel output.
	OnDispatch func(e *MemEncoder, gx, gy, gz int)

	BuffersCreated  int
	TexturesCreated int
	SamplersCreated int
	Pipelines       int
	Uploads         int
	Dispatches      int
	Submits         int

	destroyed bool
}

// NewMemDevice returns an empty in-memory device.
func NewMemDevice() *MemDevice { return &MemDevice{} }

func (d *MemDevice) Name() string { return "mem" }

func (d *MemDevice) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyed = true
}

func (d *MemDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate {
		return nil, fmt.Errorf("%w: buffer %q", ErrResourceCreation, desc.Label)
	}
	d.BuffersCreated++
	return &MemBuffer{dev: d, label: desc.Label, data: make([]byte, desc.Size)}, nil
}

func (d *MemDevice) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate {
		return nil, fmt.Errorf("%w: texture %q", ErrResourceCreation, desc.Label)
	}
	d.TexturesCreated++
	depth := desc.Depth
	if depth < 1 {
		depth = 1
	}
	layers := make([][]byte, depth)
	return &MemTexture{dev: d, desc: *desc, layers: layers}, nil
}

func (d *MemDevice) CreateSampler(desc *SamplerDescriptor) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate {
		return nil, fmt.Errorf("%w: sampler %q", ErrResourceCreation, desc.Label)
	}
	d.SamplersCreated++
	return &MemSampler{filter: desc.Filter}, nil
}

func (d *MemDevice) CreatePipeline(desc *PipelineDescriptor) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailCreate {
		return nil, fmt.Errorf("%w: pipeline %q", ErrResourceCreation, desc.Label)
	}
	decls, err := ParseBindings(desc.WGSL)
	if err != nil {
		return nil, err
	}
	d.Pipelines++
	return &MemPipeline{decls: decls}, nil
}

func (d *MemDevice) Begin(label string) (Encoder, error) {
	return &MemEncoder{dev: d, buffers: map[int]*MemBuffer{}, textures: map[int]*MemTexture{}}, nil
}

// MemBuffer is the in-memory Buffer.
type MemBuffer struct {
	dev       *MemDevice
	label     string
	data      []byte
	destroyed bool
}

func (b *MemBuffer) Size() uint64 { return uint64(len(b.data)) }

// Bytes exposes the backing store for test assertions.
func (b *MemBuffer) Bytes() []byte { return b.data }

func (b *MemBuffer) Upload(data []byte) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if len(data) > len(b.data) {
		return fmt.Errorf("%w: upload %d into %d", ErrSizeMismatch, len(data), len(b.data))
	}
	copy(b.data, data)
	b.dev.mu.Lock()
	b.dev.Uploads++
	b.dev.mu.Unlock()
	return nil
}

func (b *MemBuffer) Read(ctx context.Context, dst []byte) error {
	if b.destroyed {
		return ErrDestroyed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	copy(dst, b.data)
	return nil
}

func (b *MemBuffer) Destroy() { b.destroyed = true }

// MemTexture is the in-memory Texture.
type MemTexture struct {
	dev       *MemDevice
	desc      TextureDescriptor
	layers    [][]byte
	destroyed bool
}

func (t *MemTexture) Width() int                     { return t.desc.Width }
func (t *MemTexture) Height() int                    { return t.desc.Height }
func (t *MemTexture) Depth() int                     { return t.desc.Depth }
func (t *MemTexture) Format() gputypes.TextureFormat { return t.desc.Format }

// Layer exposes one uploaded layer for test assertions.
func (t *MemTexture) Layer(i int) []byte { return t.layers[i] }

func (t *MemTexture) Upload(layer int, data []byte, bytesPerRow int) error {
	if t.destroyed {
		return ErrDestroyed
	}
	if layer < 0 || layer >= len(t.layers) {
		return fmt.Errorf("%w: layer %d of %d", ErrSizeMismatch, layer, len(t.layers))
	}
	t.layers[layer] = append([]byte(nil), data...)
	t.dev.mu.Lock()
	t.dev.Uploads++
	t.dev.mu.Unlock()
	return nil
}

func (t *MemTexture) Read(ctx context.Context, dst []byte, bytesPerRow int) error {
	if t.destroyed {
		return ErrDestroyed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(t.layers) > 0 {
		copy(dst, t.layers[0])
	}
	return nil
}

func (t *MemTexture) Destroy() { t.destroyed = true }

// Destroyed reports whether Destroy has been called, for cache eviction
// tests.
func (t *MemTexture) Destroyed() bool { return t.destroyed }

// MemSampler is the in-memory Sampler.
type MemSampler struct {
	filter    FilterMode
	destroyed bool
}

func (s *MemSampler) Filter() FilterMode { return s.filter }
func (s *MemSampler) Destroy()           { s.destroyed = true }

// MemPipeline is the in-memory Pipeline.
type MemPipeline struct {
	decls     []BindingDecl
	destroyed bool
}

func (p *MemPipeline) Bindings() []BindingDecl { return p.decls }
func (p *MemPipeline) Destroy()                { p.destroyed = true }

// MemEncoder records bindings and counts dispatches.
type MemEncoder struct {
	dev      *MemDevice
	pipeline *MemPipeline
	buffers  map[int]*MemBuffer
	textures map[int]*MemTexture
	sampler  *MemSampler
}

func (e *MemEncoder) SetPipeline(p Pipeline)          { e.pipeline = p.(*MemPipeline) }
func (e *MemEncoder) BindBuffer(slot int, b Buffer)   { e.buffers[slot] = b.(*MemBuffer) }
func (e *MemEncoder) BindTexture(slot int, t Texture) { e.textures[slot] = t.(*MemTexture) }
func (e *MemEncoder) BindSampler(slot int, s Sampler) { e.sampler = s.(*MemSampler) }

// Buffer returns the buffer bound at slot, or nil.
func (e *MemEncoder) Buffer(slot int) *MemBuffer { return e.buffers[slot] }

// Texture returns the texture bound at slot, or nil.
func (e *MemEncoder) Texture(slot int) *MemTexture { return e.textures[slot] }

func (e *MemEncoder) Dispatch(gx, gy, gz int) error {
	if e.pipeline == nil {
		return fmt.Errorf("%w: dispatch without pipeline", ErrSubmission)
	}
	e.dev.mu.Lock()
	e.dev.Dispatches++
	hook := e.dev.OnDispatch
	e.dev.mu.Unlock()
	if hook != nil {
		hook(e, gx, gy, gz)
	}
	return nil
}

func (e *MemEncoder) CopyTextureToBuffer(src Texture, dst Buffer, bytesPerRow int) {
	t := src.(*MemTexture)
	b := dst.(*MemBuffer)
	if len(t.layers) > 0 {
		copy(b.data, t.layers[0])
	}
}

func (e *MemEncoder) CopyBufferToBuffer(src, dst Buffer, size uint64) {
	s := src.(*MemBuffer)
	d := dst.(*MemBuffer)
	copy(d.data[:size], s.data[:size])
}

func (e *MemEncoder) Submit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	if e.dev.FailSubmit {
		return fmt.Errorf("%w: forced failure", ErrSubmission)
	}
	e.dev.Submits++
	return nil
}
